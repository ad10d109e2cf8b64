package rake_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/RobotsMakeThings/clawcasino/internal/money"
	"github.com/RobotsMakeThings/clawcasino/internal/rake"
)

func TestCoinflip(t *testing.T) {
	require.Equal(t, "0.08", money.Format(rake.Coinflip(money.MustParse("2.00"))))
	// 0.66 * 4% = 0.0264 rounds down, 0.70 * 4% = 0.028 rounds up.
	require.Equal(t, "0.03", money.Format(rake.Coinflip(money.MustParse("0.66"))))
	require.Equal(t, "0.03", money.Format(rake.Coinflip(money.MustParse("0.70"))))
}

func TestRPS(t *testing.T) {
	require.Equal(t, "0.10", money.Format(rake.RPS(money.MustParse("2.00"))))
	// 0.50 * 5% = 0.025, half away from zero.
	require.Equal(t, "0.03", money.Format(rake.RPS(money.MustParse("0.50"))))
}

func TestPoker(t *testing.T) {
	caps := rake.NewCapTable()
	caps.Set("0.50/1.00", 3, money.MustParse("0.40"))
	caps.Set("0.50/1.00", 6, money.MustParse("1.00"))

	// 5% of 10.00 is 0.50, clamped to the 3-player ceiling.
	require.Equal(t, "0.40", money.Format(rake.Poker(money.MustParse("10.00"), "0.50/1.00", 3, true, caps)))

	// Below the ceiling the percentage applies untouched.
	require.Equal(t, "0.25", money.Format(rake.Poker(money.MustParse("5.00"), "0.50/1.00", 3, true, caps)))

	// Player counts clamp into 2..6 before lookup.
	require.Equal(t, "1.00", money.Format(rake.Poker(money.MustParse("100.00"), "0.50/1.00", 9, true, caps)))

	// Unknown level means no ceiling.
	require.Equal(t, "5.00", money.Format(rake.Poker(money.MustParse("100.00"), "5.00/10.00", 3, true, caps)))
}

func TestPokerNoFlopNoDrop(t *testing.T) {
	caps := rake.NewCapTable()
	require.True(t, rake.Poker(money.MustParse("3.00"), "0.50/1.00", 2, false, caps).IsZero())
}

func TestPokerEmptyPot(t *testing.T) {
	require.True(t, rake.Poker(money.Zero, "0.50/1.00", 2, true, rake.NewCapTable()).IsZero())
}

func TestCapClamp(t *testing.T) {
	caps := rake.NewCapTable()
	caps.Set("1.00/2.00", 1, money.MustParse("0.50")) // stored under 2
	limit, ok := caps.Cap("1.00/2.00", 2)
	require.True(t, ok)
	require.Equal(t, "0.50", money.Format(limit))
}
