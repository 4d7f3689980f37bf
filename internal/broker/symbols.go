package broker

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// Option symbols follow the Fyers format:
//
//	NSE:NIFTY<YY><MMM><D><STRIKE><CE|PE>
//
// e.g. NSE:NIFTY25SEP419500CE for the 19500 call expiring Sep 4 2025.

const symbolPrefix = "NSE:NIFTY"

// ErrSymbolFormat is returned when a strike cannot be recovered from a symbol.
var ErrSymbolFormat = errors.New("option symbol: unrecognized format")

// ExpiryToken renders the weekly expiry date token (YY + MMM + day without
// zero padding), e.g. 25SEP4.
func ExpiryToken(expiry time.Time) string {
	return strings.ToUpper(expiry.Format("06Jan")) + strconv.Itoa(expiry.Day())
}

// BuildOptionSymbol formats a full option symbol for the given expiry,
// strike and type.
func BuildOptionSymbol(expiry time.Time, strike float64, typ OptionType) string {
	return fmt.Sprintf("%s%s%d%s", symbolPrefix, ExpiryToken(expiry), int(strike), typ)
}

// ParseStrike recovers the strike encoded in an option symbol. The symbol
// carries a date token before the strike; stripping non-digit characters
// leaves the date digits first, and the strike is the run after the fifth
// digit. Symbols whose date token contributes fewer digits fail here and the
// caller falls back to an exact-symbol lookup.
func ParseStrike(symbol string) (float64, error) {
	trimmed := symbol
	if i := strings.Index(trimmed, ":"); i >= 0 {
		trimmed = trimmed[i+1:]
	}

	var digits strings.Builder
	for _, r := range trimmed {
		if unicode.IsDigit(r) {
			digits.WriteRune(r)
		}
	}

	s := digits.String()
	if len(s) <= 5 {
		return 0, fmt.Errorf("%w: %q", ErrSymbolFormat, symbol)
	}
	strike, err := strconv.Atoi(s[5:])
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrSymbolFormat, symbol)
	}
	return float64(strike), nil
}

// OptionTypeFromSymbol reads the 2-letter option-type suffix.
func OptionTypeFromSymbol(symbol string) (OptionType, bool) {
	switch {
	case strings.HasSuffix(symbol, string(OptionCall)):
		return OptionCall, true
	case strings.HasSuffix(symbol, string(OptionPut)):
		return OptionPut, true
	}
	return "", false
}
