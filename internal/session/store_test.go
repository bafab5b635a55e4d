package session

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCreateAndGetForRead(t *testing.T) {
	s := New()
	rec := s.Create("0xAAA", big.NewInt(2_000_000), "0xNEW", "blob", "report")
	require.Equal(t, StatusAwaitingDeposit, rec.Status)
	require.Equal(t, "0xaaa", rec.UserAddress)

	got, err := s.GetForRead(rec.SessionToken)
	require.NoError(t, err)
	require.Equal(t, rec.SessionToken, got.SessionToken)
	require.Equal(t, "blob", got.EncryptedKeyForUser)
}

func TestGetForReadNotFound(t *testing.T) {
	s := New()
	_, err := s.GetForRead("missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestStateMachineForwardOnly(t *testing.T) {
	s := New()
	rec := s.Create("0xAAA", big.NewInt(100), "0xNEW", "blob", "report")

	_, err := s.AdvanceToWithdrawalQueued(rec.SessionToken)
	require.ErrorIs(t, err, ErrInvalidState, "cannot skip deposit_detected")

	_, err = s.AdvanceToDepositDetected(rec.SessionToken, "0xtx", big.NewInt(7))
	require.NoError(t, err)

	// Replaying the same event must be a no-op error, not a silent re-apply.
	_, err = s.AdvanceToDepositDetected(rec.SessionToken, "0xtx2", big.NewInt(7))
	require.ErrorIs(t, err, ErrInvalidState)

	_, err = s.AdvanceToWithdrawalQueued(rec.SessionToken)
	require.NoError(t, err)

	final, err := s.AdvanceToCompleted(rec.SessionToken, "0xwithdraw")
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, final.Status)
	require.Equal(t, "0xwithdraw", final.WithdrawTxHash)
}

func TestWithoutKeyMaterialClearsBlob(t *testing.T) {
	s := New()
	rec := s.Create("0xAAA", big.NewInt(100), "0xNEW", "blob", "report")
	safe := rec.WithoutKeyMaterial()
	require.Empty(t, safe.EncryptedKeyForUser)
	require.Equal(t, "report", safe.AttestationReport)
}

func TestAwaitingDepositSnapshotFiltersByStatus(t *testing.T) {
	s := New()
	a := s.Create("0xAAA", big.NewInt(100), "0xA", "blobA", "reportA")
	s.Create("0xBBB", big.NewInt(200), "0xB", "blobB", "reportB")

	_, err := s.AdvanceToDepositDetected(a.SessionToken, "0xtx", big.NewInt(1))
	require.NoError(t, err)

	snap := s.AwaitingDepositSnapshot()
	require.Len(t, snap, 1)
	require.Equal(t, "0xbbb", snap[0].UserAddress)
}
