package shared

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoundMoney(t *testing.T) {
	require.Equal(t, 10.56, RoundMoney(10.556))
	require.Equal(t, 10.55, RoundMoney(10.554))
	require.Equal(t, 0.0, RoundMoney(0))
	require.Equal(t, 100.0, RoundMoney(99.999))
}

func TestLineAmounts(t *testing.T) {
	gst, total := LineAmounts(50, 100, 18)
	require.Equal(t, 900.0, gst)
	require.Equal(t, 5900.0, total)

	gst, total = LineAmounts(3, 33.33, 5)
	require.Equal(t, 5.0, gst)
	require.Equal(t, 104.99, total)

	gst, total = LineAmounts(10, 100, 0)
	require.Equal(t, 0.0, gst)
	require.Equal(t, 1000.0, total)
}

func TestSplitGST(t *testing.T) {
	cgst, sgst := SplitGST(900)
	require.Equal(t, 450.0, cgst)
	require.Equal(t, 450.0, sgst)

	cgst, sgst = SplitGST(1)
	require.Equal(t, 0.5, cgst)
	require.Equal(t, 0.5, sgst)

	// Odd cents split equally, both halves rounded the same way.
	cgst, sgst = SplitGST(0.03)
	require.Equal(t, cgst, sgst)
	require.InDelta(t, 0.015, cgst, 0.005)
}
