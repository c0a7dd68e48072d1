package tron

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"math/big"
	"strings"
)

const base58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

var base58Indexes = func() [128]int {
	var idx [128]int
	for i := range idx {
		idx[i] = -1
	}
	for i := 0; i < len(base58Alphabet); i++ {
		idx[base58Alphabet[i]] = i
	}
	return idx
}()

var errBadAddress = errors.New("bad tron address")

// hexAddress converts a Tron base58check address (T...) to the 0x + 40 hex
// form the EVM-compatible RPC expects. Already-hex input (with or without the
// 0x41 network prefix) passes through normalized.
func hexAddress(address string) (string, error) {
	addr := strings.TrimSpace(address)
	if addr == "" {
		return "", errBadAddress
	}

	if strings.HasPrefix(addr, "0x") || strings.HasPrefix(addr, "0X") {
		addr = addr[2:]
	}
	if isHex(addr) {
		switch len(addr) {
		case 42: // 0x41 prefix + 20-byte body
			if !strings.HasPrefix(strings.ToLower(addr), "41") {
				return "", errBadAddress
			}
			return "0x" + strings.ToLower(addr[2:]), nil
		case 40:
			return "0x" + strings.ToLower(addr), nil
		default:
			return "", errBadAddress
		}
	}

	payload, err := base58CheckDecode(addr)
	if err != nil {
		return "", errBadAddress
	}
	if len(payload) != 21 || payload[0] != 0x41 {
		return "", errBadAddress
	}
	return "0x" + hex.EncodeToString(payload[1:]), nil
}

func isHex(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') && (c < 'A' || c > 'F') {
			return false
		}
	}
	return true
}

func base58CheckDecode(input string) ([]byte, error) {
	decoded, err := decodeBase58(input)
	if err != nil {
		return nil, err
	}
	if len(decoded) < 4 {
		return nil, errors.New("base58check too short")
	}
	payload := decoded[:len(decoded)-4]
	checksum := decoded[len(decoded)-4:]
	hash := sha256.Sum256(payload)
	hash = sha256.Sum256(hash[:])
	if !bytes.Equal(checksum, hash[:4]) {
		return nil, errors.New("base58check checksum mismatch")
	}
	return payload, nil
}

func decodeBase58(input string) ([]byte, error) {
	if input == "" {
		return nil, errors.New("empty base58 string")
	}

	result := big.NewInt(0)
	radix := big.NewInt(58)
	for i := 0; i < len(input); i++ {
		ch := input[i]
		if ch >= 128 || base58Indexes[ch] < 0 {
			return nil, errors.New("invalid base58 character")
		}
		result.Mul(result, radix)
		result.Add(result, big.NewInt(int64(base58Indexes[ch])))
	}

	decoded := result.Bytes()
	for i := 0; i < len(input) && input[i] == '1'; i++ {
		decoded = append([]byte{0x00}, decoded...)
	}
	return decoded, nil
}
