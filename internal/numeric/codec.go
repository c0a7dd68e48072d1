// Package numeric converts between the numeric encodings used by blockchain
// providers (hex, fixed-point decimal strings, scientific notation) and
// canonical integer base-unit decimal strings. All conversions go through
// math/big; floating point would silently lose precision above 2^53.
package numeric

import (
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"
)

var (
	// ErrMalformedNumber reports non-hex-digit input to HexToDecimalString.
	ErrMalformedNumber = errors.New("malformed number")

	// ErrPrecisionExceeded reports a decimal amount with more non-zero
	// fractional digits than the unit allows.
	ErrPrecisionExceeded = errors.New("precision exceeded")

	// ErrInvalidNumericFormat reports text that is neither plain decimal nor
	// scientific notation.
	ErrInvalidNumericFormat = errors.New("invalid numeric format")
)

var (
	plainRe      = regexp.MustCompile(`^[+-]?[0-9]+(\.[0-9]+)?$`)
	scientificRe = regexp.MustCompile(`^([+-]?)([0-9]+)(?:\.([0-9]+))?[eE]([+-]?[0-9]+)$`)
)

// HexToDecimalString interprets an unsigned hex string (optional "0x" prefix)
// as a big integer and renders it in decimal. Magnitudes beyond 64 bits are
// supported.
func HexToDecimalString(hexStr string) (string, error) {
	s := strings.TrimSpace(hexStr)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if s == "" {
		return "", fmt.Errorf("%w: empty hex string", ErrMalformedNumber)
	}

	n, ok := new(big.Int).SetString(s, 16)
	if !ok || n.Sign() < 0 {
		return "", fmt.Errorf("%w: %q is not hex", ErrMalformedNumber, hexStr)
	}
	return n.String(), nil
}

// DecimalToScaledInteger converts a human decimal amount (e.g. "1.23456789")
// into an integer string in the smallest unit with the given decimal-place
// count. Missing fractional digits are zero-padded; excess non-zero
// fractional digits fail with ErrPrecisionExceeded.
func DecimalToScaledInteger(amount string, decimals int) (string, error) {
	s := strings.TrimSpace(amount)
	if decimals < 0 {
		return "", fmt.Errorf("%w: negative decimals", ErrInvalidNumericFormat)
	}
	if !plainRe.MatchString(s) {
		return "", fmt.Errorf("%w: %q", ErrInvalidNumericFormat, amount)
	}

	neg := strings.HasPrefix(s, "-")
	s = strings.TrimLeft(s, "+-")

	intPart, fracPart := s, ""
	if dot := strings.IndexByte(s, '.'); dot >= 0 {
		intPart, fracPart = s[:dot], s[dot+1:]
	}

	if len(fracPart) > decimals {
		if strings.Trim(fracPart[decimals:], "0") != "" {
			return "", fmt.Errorf("%w: %q has more than %d fractional digits", ErrPrecisionExceeded, amount, decimals)
		}
		fracPart = fracPart[:decimals]
	}
	fracPart += strings.Repeat("0", decimals-len(fracPart))

	digits := strings.TrimLeft(intPart+fracPart, "0")
	if digits == "" {
		return "0", nil
	}
	if neg {
		return "-" + digits, nil
	}
	return digits, nil
}

// ScaledIntegerToDecimal renders a base-unit integer string back to a human
// decimal amount, the inverse of DecimalToScaledInteger. Trailing zero
// fractional digits are trimmed; an all-zero fractional part collapses to the
// bare integer.
func ScaledIntegerToDecimal(scaled string, decimals int) (string, error) {
	s := strings.TrimSpace(scaled)
	if decimals < 0 {
		return "", fmt.Errorf("%w: negative decimals", ErrInvalidNumericFormat)
	}
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimLeft(s, "+-")
	if s == "" || strings.Trim(s, "0123456789") != "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidNumericFormat, scaled)
	}
	s = strings.TrimLeft(s, "0")
	if s == "" {
		s = "0"
	}

	sign := ""
	if neg && s != "0" {
		sign = "-"
	}

	if decimals == 0 {
		return sign + s, nil
	}
	if len(s) <= decimals {
		s = strings.Repeat("0", decimals-len(s)+1) + s
	}
	intPart := s[:len(s)-decimals]
	fracPart := strings.TrimRight(s[len(s)-decimals:], "0")
	if fracPart == "" {
		if intPart == "0" {
			return "0", nil
		}
		return sign + intPart, nil
	}
	return sign + intPart + "." + fracPart, nil
}

// NormalizeScientificOrPlain accepts a plain decimal or scientific-notation
// string and returns an equivalent plain decimal string. Scientific notation
// is expanded by shifting the decimal point textually; parsing through a
// float would corrupt large exponents.
//
// HTML-looking content fails fast: a misconfigured endpoint returning an
// error page must not be mistaken for a balance.
func NormalizeScientificOrPlain(text string) (string, error) {
	s := strings.TrimSpace(text)
	if s == "" {
		return "", fmt.Errorf("%w: empty input", ErrInvalidNumericFormat)
	}
	if strings.ContainsAny(s, "<>") || strings.Contains(strings.ToLower(s), "html") {
		return "", fmt.Errorf("%w: input looks like markup", ErrInvalidNumericFormat)
	}

	if plainRe.MatchString(s) {
		return trimPlain(s), nil
	}

	m := scientificRe.FindStringSubmatch(s)
	if m == nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidNumericFormat, text)
	}
	sign, intPart, fracPart, expStr := m[1], m[2], m[3], m[4]
	if sign == "+" {
		sign = ""
	}

	exp, ok := new(big.Int).SetString(expStr, 10)
	if !ok || !exp.IsInt64() {
		return "", fmt.Errorf("%w: exponent out of range in %q", ErrInvalidNumericFormat, text)
	}

	// Shift the decimal point by the exponent over the raw digit string.
	digits := intPart + fracPart
	point := int64(len(intPart)) + exp.Int64()

	var out string
	switch {
	case point <= 0:
		out = "0." + strings.Repeat("0", int(-point)) + digits
	case point >= int64(len(digits)):
		out = digits + strings.Repeat("0", int(point)-len(digits))
	default:
		out = digits[:point] + "." + digits[point:]
	}
	return trimPlain(sign + out), nil
}

// trimPlain strips redundant leading zeros and trailing fractional zeros from
// a plain decimal string, preserving a single "0" integer part.
func trimPlain(s string) string {
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	} else {
		s = strings.TrimPrefix(s, "+")
	}

	intPart, fracPart := s, ""
	if dot := strings.IndexByte(s, '.'); dot >= 0 {
		intPart, fracPart = s[:dot], s[dot+1:]
	}
	intPart = strings.TrimLeft(intPart, "0")
	if intPart == "" {
		intPart = "0"
	}
	fracPart = strings.TrimRight(fracPart, "0")

	if fracPart == "" {
		if intPart == "0" {
			return "0"
		}
		return sign + intPart
	}
	return sign + intPart + "." + fracPart
}
