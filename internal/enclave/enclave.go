// Package enclave implements the key-issuance boundary: it generates a fresh
// keypair for a session's destination address and returns the address
// alongside an encrypted blob of the private key, never the key itself.
package enclave

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

const (
	wrappingKeySize = 32
	nonceSize       = 12

	// Version is embedded in the attestation record so a future wrapping
	// scheme (recipient-supplied public key, see spec §9) can be
	// distinguished from this one.
	Version = "relay-enclave-v1"
)

// Issued is the result of a single key-generation call. KeyRef keeps the
// issued key inside this package and must never be serialized out of it.
type Issued struct {
	Address             common.Address
	EncryptedKeyForUser string // base64(wrappingKey || nonce || authTag || ciphertext)
	AttestationReport   string // opaque JSON, delivered verbatim to callers
	KeyRef              KeyRef
}

// KeyRef holds the address and raw key of the key that was just issued in
// unexported fields, so the raw bytes are never exposed outside this
// package. Its only method is Address; it offers no signing operation.
type KeyRef struct {
	addressHex string
	privKeyHex string
}

// Address returns the address this KeyRef signs for.
func (k KeyRef) Address() common.Address {
	return common.HexToAddress(k.addressHex)
}

type attestation struct {
	Enclave    string    `json:"enclave"`
	IssuedAt   time.Time `json:"issuedAt"`
	PubKeyHash string    `json:"pubKeyHash"`
}

// Enclave issues fresh keypairs. It holds no state; every call is
// independent.
type Enclave struct{}

// New returns a ready-to-use enclave.
func New() *Enclave {
	return &Enclave{}
}

// Issue generates a 32-byte private key from a CSPRNG, derives its address,
// wraps the raw key bytes under a fresh per-call AES-256-GCM key, and
// produces an attestation record. The wrapping key and nonce travel inside
// the returned blob — see spec §4.7 / §9 for why that is deliberately weak.
func (e *Enclave) Issue() (*Issued, error) {
	privKey, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("enclave: generate key: %w", err)
	}
	addr := crypto.PubkeyToAddress(privKey.PublicKey)
	rawKey := crypto.FromECDSA(privKey)

	blob, err := wrap(rawKey)
	if err != nil {
		return nil, fmt.Errorf("enclave: wrap key: %w", err)
	}

	pubHash := sha256.Sum256(crypto.FromECDSAPub(&privKey.PublicKey))
	att := attestation{
		Enclave:    Version,
		IssuedAt:   time.Now().UTC(),
		PubKeyHash: fmt.Sprintf("%x", pubHash),
	}
	attBytes, err := json.Marshal(att)
	if err != nil {
		return nil, fmt.Errorf("enclave: marshal attestation: %w", err)
	}

	return &Issued{
		Address:             addr,
		EncryptedKeyForUser: blob,
		AttestationReport:   string(attBytes),
		KeyRef: KeyRef{
			addressHex: addr.Hex(),
			privKeyHex: fmt.Sprintf("%x", rawKey),
		},
	}, nil
}

// wrap seals rawKey under a fresh wrapping key and nonce, returning
// base64(wrappingKey || nonce || authTag || ciphertext).
func wrap(rawKey []byte) (string, error) {
	wrappingKey := make([]byte, wrappingKeySize)
	if _, err := rand.Read(wrappingKey); err != nil {
		return "", fmt.Errorf("sample wrapping key: %w", err)
	}
	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("sample nonce: %w", err)
	}

	block, err := aes.NewCipher(wrappingKey)
	if err != nil {
		return "", fmt.Errorf("new aes cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("new gcm: %w", err)
	}

	// Seal appends the auth tag after the ciphertext; split it back out so
	// the wire layout matches wrappingKey || nonce || authTag || ciphertext.
	sealed := gcm.Seal(nil, nonce, rawKey, nil)
	ciphertext := sealed[:len(sealed)-gcm.Overhead()]
	authTag := sealed[len(sealed)-gcm.Overhead():]

	out := make([]byte, 0, len(wrappingKey)+len(nonce)+len(authTag)+len(ciphertext))
	out = append(out, wrappingKey...)
	out = append(out, nonce...)
	out = append(out, authTag...)
	out = append(out, ciphertext...)

	return base64.StdEncoding.EncodeToString(out), nil
}

// Unwrap reverses wrap; exported for tests and for any caller that receives
// a claimed blob and needs to verify it round-trips (spec §8 round-trip
// property).
func Unwrap(blob string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return nil, fmt.Errorf("decode blob: %w", err)
	}
	if len(raw) < wrappingKeySize+nonceSize {
		return nil, fmt.Errorf("blob too short: %d bytes", len(raw))
	}
	wrappingKey := raw[:wrappingKeySize]
	nonce := raw[wrappingKeySize : wrappingKeySize+nonceSize]
	rest := raw[wrappingKeySize+nonceSize:]

	block, err := aes.NewCipher(wrappingKey)
	if err != nil {
		return nil, fmt.Errorf("new aes cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("new gcm: %w", err)
	}
	if len(rest) < gcm.Overhead() {
		return nil, fmt.Errorf("blob too short for auth tag")
	}
	authTag := rest[:gcm.Overhead()]
	ciphertext := rest[gcm.Overhead():]

	sealed := append(append([]byte{}, ciphertext...), authTag...)
	plain, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	return plain, nil
}
