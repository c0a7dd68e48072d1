package aptos

import (
	"errors"
	"strings"
)

var errBadAddress = errors.New("bad aptos address")

// normalizeAddress renders an Aptos account address in the canonical
// 0x + 64 lowercase hex digit form, left-padding short addresses. Inputs
// with non-hex characters or longer than 32 bytes are rejected.
func normalizeAddress(address string) (string, error) {
	s := strings.TrimSpace(address)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if s == "" || len(s) > 64 {
		return "", errBadAddress
	}
	s = strings.ToLower(s)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return "", errBadAddress
		}
	}
	return "0x" + strings.Repeat("0", 64-len(s)) + s, nil
}
