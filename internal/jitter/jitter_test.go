package jitter

import (
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestApplyWithinBounds(t *testing.T) {
	p := NewPolicy()
	fixedNow := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	p.Now = func() time.Time { return fixedNow }

	expected := big.NewInt(2_000_000)
	for i := 0; i < 200; i++ {
		res, err := p.Apply(expected)
		require.NoError(t, err)

		lower := big.NewInt(1_999_940)
		upper := big.NewInt(2_000_080)
		require.True(t, res.NormalizedAmount.Cmp(lower) >= 0, "normalized below lower bound: %s", res.NormalizedAmount)
		require.True(t, res.NormalizedAmount.Cmp(upper) <= 0, "normalized above upper bound: %s", res.NormalizedAmount)

		delay := res.ExecuteAfter.Sub(fixedNow)
		require.True(t, delay >= time.Second, "delay below 1s: %s", delay)
		require.True(t, delay <= 10*time.Second, "delay above 10s: %s", delay)
	}
}

func TestApplyWidenedDelayWindow(t *testing.T) {
	p := NewPolicy()
	p.DelayMaxSeconds = 60
	fixedNow := time.Now()
	p.Now = func() time.Time { return fixedNow }

	res, err := p.Apply(big.NewInt(1_000_000))
	require.NoError(t, err)
	delay := res.ExecuteAfter.Sub(fixedNow)
	require.True(t, delay >= time.Second && delay <= 60*time.Second)
}

func TestApplyDustGuard(t *testing.T) {
	p := NewPolicy()
	// With expected = 1, any negative ppm truncates to zero or below.
	sawDust := false
	for i := 0; i < 500 && !sawDust; i++ {
		_, err := p.Apply(big.NewInt(1))
		if err != nil {
			require.ErrorIs(t, err, ErrDust)
			sawDust = true
		}
	}
	require.True(t, sawDust, "expected at least one dust failure across samples")
}

func TestToleranceMinimumOneUnit(t *testing.T) {
	require.Equal(t, big.NewInt(1), Tolerance(big.NewInt(1)))
	require.Equal(t, big.NewInt(1), Tolerance(big.NewInt(9_999)))
	require.Equal(t, big.NewInt(1_000_000), Tolerance(big.NewInt(10_000_000_000)))
}
