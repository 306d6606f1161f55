package rank

// Ранговые лиги, от нуля очков до максимума.
const (
	TierUnranked = "Unranked"
	TierBronze   = "Bronze"
	TierSilver   = "Silver"
	TierGold     = "Gold"
	TierPlatinum = "Platinum"
	TierDiamond  = "Diamond"
)

// ComputeRank maps accumulated rank points to a tier name.
// Boundaries are inclusive: 1-29 Bronze, 30-59 Silver, 60-79 Gold,
// 80-99 Platinum, 100+ Diamond.
func ComputeRank(totalRankPoints int) string {
	switch {
	case totalRankPoints >= 100:
		return TierDiamond
	case totalRankPoints >= 80:
		return TierPlatinum
	case totalRankPoints >= 60:
		return TierGold
	case totalRankPoints >= 30:
		return TierSilver
	case totalRankPoints > 0:
		return TierBronze
	default:
		return TierUnranked
	}
}
