package chain

import (
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"

	"github.com/shadowrelay/relayd/internal/chain/escrowbind"
)

func TestJobID32IsDeterministic(t *testing.T) {
	a := JobID32("job-1")
	b := JobID32("job-1")
	require.Equal(t, a, b, "retries must reuse the same on-chain replay-protection key")

	c := JobID32("job-2")
	require.NotEqual(t, a, c)
}

func TestToDepositEventCopiesBigInts(t *testing.T) {
	amount := big.NewInt(42)
	depositID := big.NewInt(7)
	ev := &escrowbind.EscrowDeposited{
		From:      common.HexToAddress("0xAAA"),
		Amount:    amount,
		DepositId: depositID,
		Raw:       types.Log{TxHash: common.HexToHash("0xdead")},
	}

	out := toDepositEvent(ev)
	require.Equal(t, ev.From.Hex(), out.From)
	require.Equal(t, big.NewInt(42), out.Amount)
	require.Equal(t, big.NewInt(7), out.DepositID)

	// Mutating the source must not affect the copy.
	amount.SetInt64(999)
	require.Equal(t, big.NewInt(42), out.Amount)
}

func TestReconnectBackoffCapsAt30Seconds(t *testing.T) {
	b := newReconnectBackoff()
	for i := 0; i < 20; i++ {
		d := b.NextBackOff()
		require.LessOrEqual(t, d, 30*time.Second)
	}
}
