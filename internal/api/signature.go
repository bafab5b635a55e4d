package api

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// ErrInvalidSignature is returned when the signer cannot be recovered from
// (message, signature) — spec §4.1 step 1, §7.
var ErrInvalidSignature = errors.New("api: invalid signature")

// recoverSigner recovers the address that produced signatureHex over
// message, using the same personal-message prefix wallets apply before
// signing (EIP-191 "\x19Ethereum Signed Message:\n" framing). The returned
// address is the session's UserAddress and is never taken from the request
// body directly (spec §3 invariant).
func recoverSigner(message, signatureHex string) (common.Address, error) {
	sig, err := decodeSignature(signatureHex)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	digest := personalMessageHash(message)

	pub, err := crypto.SigToPub(digest, sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	return crypto.PubkeyToAddress(*pub), nil
}

// personalMessageHash reproduces the EIP-191 personal_sign digest.
func personalMessageHash(message string) []byte {
	prefixed := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(message), message)
	return crypto.Keccak256([]byte(prefixed))
}

// decodeSignature parses a 65-byte r||s||v signature, accepting either
// 0x-prefixed or bare hex, and normalizes a 27/28 v byte to 0/1 as
// crypto.SigToPub expects.
func decodeSignature(signatureHex string) ([]byte, error) {
	trimmed := strings.TrimPrefix(signatureHex, "0x")
	sig, err := hex.DecodeString(trimmed)
	if err != nil {
		return nil, fmt.Errorf("decode hex: %w", err)
	}
	if len(sig) != 65 {
		return nil, fmt.Errorf("signature must be 65 bytes, got %d", len(sig))
	}
	if sig[64] >= 27 {
		sig[64] -= 27
	}
	return sig, nil
}
