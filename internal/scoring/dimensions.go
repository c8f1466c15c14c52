package scoring

import (
	"math"

	"github.com/sells-group/safescan/internal/model"
	"github.com/sells-group/safescan/internal/tierdb"
)

const (
	emptyIngredientSafety  = 50
	highConcernPenalty     = 5
	moderateConcernPenalty = 2

	corporateBaseline = 70

	supplyChainBaseline = 50
	certificationBonus  = 10
	monoculturePenalty  = 15
)

// Marker-count thresholds that also trigger alerts.
const (
	MonocultureAlertCount = 3
	ProcessingHighlyCount = 3
	ProcessingUltraCount  = 5
)

// DimensionInput carries everything the four dimensions are computed from.
type DimensionInput struct {
	Ingredients       []model.IngredientRecord
	ProcessingMarkers []string
	Monoculture       []string
	Certifications    []string
	Corporate         *model.CorporateDisclosure
}

// ScoreDimensions computes the four sub-scores independently.
func ScoreDimensions(in DimensionInput) model.DimensionScores {
	return model.DimensionScores{
		IngredientSafety: IngredientSafety(in.Ingredients),
		ProcessingLevel:  ProcessingLevel(len(in.ProcessingMarkers)),
		CorporateEthics:  CorporateEthics(in.Corporate),
		SupplyChain:      SupplyChain(len(in.Certifications), len(in.Monoculture)),
	}
}

// IngredientSafety is 100 minus the average hazard, less a fixed deduction
// per high and moderate concern ingredient.
func IngredientSafety(records []model.IngredientRecord) int {
	if len(records) == 0 {
		return emptyIngredientSafety
	}
	var total, penalty int
	for _, r := range records {
		total += r.HazardScore
		switch {
		case r.HazardScore >= tierdb.HighConcernHazard:
			penalty += highConcernPenalty
		case r.HazardScore >= tierdb.ModerateConcernHazard:
			penalty += moderateConcernPenalty
		}
	}
	avg := float64(total) / float64(len(records))
	return model.ClampScore(int(math.Round(100 - avg - float64(penalty))))
}

// ProcessingLevel steps down as more ingredients carry processing markers.
func ProcessingLevel(markerCount int) int {
	switch {
	case markerCount >= ProcessingUltraCount:
		return 20
	case markerCount >= ProcessingHighlyCount:
		return 40
	case markerCount >= 1:
		return 60
	default:
		return 90
	}
}

// CorporateEthics subtracts the parent company penalty from the baseline.
func CorporateEthics(corp *model.CorporateDisclosure) int {
	if corp == nil {
		return corporateBaseline
	}
	return model.ClampScore(corporateBaseline - corp.Penalty)
}

// SupplyChain rewards certifications and penalizes monoculture commodities.
func SupplyChain(certifications, monoculture int) int {
	score := supplyChainBaseline + certifications*certificationBonus
	if monoculture >= MonocultureAlertCount {
		score -= monoculturePenalty
	}
	return model.ClampScore(score)
}
