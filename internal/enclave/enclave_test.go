package enclave

import (
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

func TestIssueRoundTrip(t *testing.T) {
	e := New()
	issued, err := e.Issue()
	require.NoError(t, err)
	require.NotEmpty(t, issued.EncryptedKeyForUser)
	require.NotEmpty(t, issued.AttestationReport)

	raw, err := Unwrap(issued.EncryptedKeyForUser)
	require.NoError(t, err)
	require.Len(t, raw, 32)

	privKey, err := crypto.ToECDSA(raw)
	require.NoError(t, err)
	require.Equal(t, issued.Address, crypto.PubkeyToAddress(privKey.PublicKey))
}

func TestIssueProducesDistinctKeys(t *testing.T) {
	e := New()
	a, err := e.Issue()
	require.NoError(t, err)
	b, err := e.Issue()
	require.NoError(t, err)
	require.NotEqual(t, a.Address, b.Address)
	require.NotEqual(t, a.EncryptedKeyForUser, b.EncryptedKeyForUser)
}

func TestUnwrapRejectsGarbage(t *testing.T) {
	_, err := Unwrap("not-base64!!")
	require.Error(t, err)

	_, err = Unwrap("AAAA")
	require.Error(t, err)
}
