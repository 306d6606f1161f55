package rank

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeRank_Boundaries(t *testing.T) {
	cases := []struct {
		points int
		want   string
	}{
		{0, TierUnranked},
		{1, TierBronze},
		{29, TierBronze},
		{30, TierSilver},
		{59, TierSilver},
		{60, TierGold},
		{79, TierGold},
		{80, TierPlatinum},
		{99, TierPlatinum},
		{100, TierDiamond},
		{250, TierDiamond},
	}

	for _, c := range cases {
		assert.Equal(t, c.want, ComputeRank(c.points), "points=%d", c.points)
	}
}

func TestComputeRank_Monotonic(t *testing.T) {
	order := map[string]int{
		TierUnranked: 0,
		TierBronze:   1,
		TierSilver:   2,
		TierGold:     3,
		TierPlatinum: 4,
		TierDiamond:  5,
	}

	prev := order[ComputeRank(0)]
	for points := 1; points <= 150; points++ {
		cur := order[ComputeRank(points)]
		assert.GreaterOrEqual(t, cur, prev, "rank regressed at %d points", points)
		prev = cur
	}
}
