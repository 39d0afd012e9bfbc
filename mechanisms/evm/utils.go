package evm

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
)

// CreateNonce returns a random 32-byte authorization nonce read from source.
// A nil source uses crypto/rand.
func CreateNonce(source io.Reader) ([32]byte, error) {
	var nonce [32]byte
	if source == nil {
		source = rand.Reader
	}
	if _, err := io.ReadFull(source, nonce[:]); err != nil {
		return nonce, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return nonce, nil
}

// CreateValidityWindow returns (now-ValidAfterSkew, now+period) as unix seconds,
// so validAfter < now <= validBefore holds at signing time
func CreateValidityWindow(now time.Time, period time.Duration) (validAfter, validBefore *big.Int) {
	return big.NewInt(now.Add(-ValidAfterSkew).Unix()), big.NewInt(now.Add(period).Unix())
}

// ParseUint256 parses a decimal or 0x-hex unsigned 256-bit integer
func ParseUint256(value string) (*big.Int, error) {
	if value == "" {
		return nil, fmt.Errorf("empty uint256")
	}
	n, ok := math.ParseBig256(value)
	if !ok || n.Sign() < 0 {
		return nil, fmt.Errorf("invalid uint256: %q", value)
	}
	return n, nil
}

// DecodeFixedBytes decodes 0x-hex into exactly size bytes
func DecodeFixedBytes(value string, size int) ([]byte, error) {
	b, err := hexutil.Decode(value)
	if err != nil {
		return nil, fmt.Errorf("invalid hex %q: %w", value, err)
	}
	if len(b) != size {
		return nil, fmt.Errorf("expected %d bytes, got %d", size, len(b))
	}
	return b, nil
}
