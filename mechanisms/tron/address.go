package tron

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mr-tron/base58"
)

// AddressPrefix is the version byte of mainnet TRON addresses
const AddressPrefix byte = 0x41

// ZeroAddress is the base58check form of the 20 zero bytes
var ZeroAddress = EncodeAddress(common.Address{})

// EncodeAddress returns the base58check form of a 20-byte account
func EncodeAddress(addr common.Address) string {
	payload := make([]byte, 0, 25)
	payload = append(payload, AddressPrefix)
	payload = append(payload, addr.Bytes()...)
	payload = append(payload, checksum(payload)...)
	return base58.Encode(payload)
}

// DecodeAddress parses a base58check TRON address
func DecodeAddress(address string) (common.Address, error) {
	raw, err := base58.Decode(address)
	if err != nil {
		return common.Address{}, fmt.Errorf("invalid TRON address %q: %w", address, err)
	}
	if len(raw) != 25 {
		return common.Address{}, fmt.Errorf("invalid TRON address %q: length %d", address, len(raw))
	}
	if raw[0] != AddressPrefix {
		return common.Address{}, fmt.Errorf("invalid TRON address %q: prefix 0x%02x", address, raw[0])
	}
	if !bytes.Equal(checksum(raw[:21]), raw[21:]) {
		return common.Address{}, fmt.Errorf("invalid TRON address %q: checksum mismatch", address)
	}
	return common.BytesToAddress(raw[1:21]), nil
}

// ParseAddress accepts base58check, 41-prefixed hex or 0x-hex
func ParseAddress(address string) (common.Address, error) {
	switch {
	case strings.HasPrefix(address, "T"):
		return DecodeAddress(address)
	case common.IsHexAddress(address):
		return common.HexToAddress(address), nil
	case len(address) == 42 && strings.HasPrefix(address, "41"):
		raw, err := hex.DecodeString(address[2:])
		if err != nil {
			return common.Address{}, fmt.Errorf("invalid TRON hex address %q: %w", address, err)
		}
		return common.BytesToAddress(raw), nil
	}
	return common.Address{}, fmt.Errorf("invalid TRON address %q", address)
}

// HexAddress returns the 41-prefixed hex form used by the full-node API
func HexAddress(addr common.Address) string {
	return fmt.Sprintf("%02x%s", AddressPrefix, hex.EncodeToString(addr.Bytes()))
}

func checksum(payload []byte) []byte {
	first := sha256.Sum256(payload)
	second := sha256.Sum256(first[:])
	return second[:4]
}

// AddressConverter maps TRON addresses onto the 20-byte accounts used by EIP-712
type AddressConverter struct{}

// ToHex converts a TRON address into checksummed 0x-hex
func (AddressConverter) ToHex(address string) (string, error) {
	addr, err := ParseAddress(address)
	if err != nil {
		return "", err
	}
	return addr.Hex(), nil
}

// ZeroAddress returns the TRON zero address
func (AddressConverter) ZeroAddress() string {
	return ZeroAddress
}
