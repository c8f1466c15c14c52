package scoring

import (
	"math"

	"github.com/sells-group/safescan/internal/model"
)

// Claim bonus constants.
const (
	ClaimBonus    = 3
	MaxClaimBonus = 15
)

// Aggregation is the outcome of combining dimensions, bonus and caps.
type Aggregation struct {
	Weighted  float64
	Bonus     int
	Cap       *int
	WorstTier model.Grade
	Capped    bool
	Overall   int
	Grade     model.Grade
}

// ClaimBonusFor returns the bonus earned by n recognized claims.
func ClaimBonusFor(n int) int {
	if n <= 0 {
		return 0
	}
	return min(n*ClaimBonus, MaxClaimBonus)
}

// Aggregate weights the dimensions, adds the claim bonus and applies the
// ceiling of the worst ingredient tier. A cap only ever lowers the score.
func Aggregate(dims model.DimensionScores, profile Profile, condition int, records []model.IngredientRecord, recognizedClaims int) Aggregation {
	agg := Aggregation{
		Weighted: profile.Weighted(dims, condition),
		Bonus:    ClaimBonusFor(recognizedClaims),
	}
	score := agg.Weighted + float64(agg.Bonus)

	if worst, ok := model.WorstTier(records); ok {
		agg.WorstTier = worst
		if !model.GradeC.WorseThan(worst) {
			ceiling := worst.Ceiling()
			agg.Cap = &ceiling
			if score > float64(ceiling) {
				score = float64(ceiling)
				agg.Capped = true
			}
		}
	}

	agg.Overall = model.ClampScore(int(math.Round(score)))
	agg.Grade = model.GradeForScore(agg.Overall)
	return agg
}
