package model

// IngredientRecord is the resolved classification of a single ingredient.
type IngredientRecord struct {
	Name             string     `json:"name"`
	ExternalEstimate *float64   `json:"external_estimate,omitempty"`
	Tier             Grade      `json:"grade"`
	HazardScore      int        `json:"hazard_score"`
	Provenance       Provenance `json:"provenance"`
	Reason           string     `json:"reason"`
	Category         string     `json:"category,omitempty"`
	NarrativeKey     string     `json:"-"`
	HiddenTruth      string     `json:"hidden_truth,omitempty"`
	NeedsReview      bool       `json:"needs_review,omitempty"`
}

// DimensionScores are the four independent 0-100 sub-scores.
type DimensionScores struct {
	IngredientSafety int `json:"ingredient_safety"`
	ProcessingLevel  int `json:"processing_level"`
	CorporateEthics  int `json:"corporate_ethics"`
	SupplyChain      int `json:"supply_chain"`
}

// CorporateDisclosure describes the parent company behind a brand.
type CorporateDisclosure struct {
	Brand         string   `json:"brand"`
	ParentCompany string   `json:"parent_company"`
	Penalty       int      `json:"penalty_applied"`
	Issues        []string `json:"issues"`
	NotableBrands []string `json:"notable_brands"`
}

// ScoreResult is the immutable outcome of scoring one scan.
type ScoreResult struct {
	ProductName         string               `json:"product_name"`
	Brand               string               `json:"brand,omitempty"`
	Category            Category             `json:"category"`
	OverallScore        int                  `json:"overall_score"`
	Grade               Grade                `json:"grade"`
	Profile             string               `json:"profile"`
	DimensionScores     DimensionScores      `json:"dimension_scores"`
	ConditionScore      *int                 `json:"condition_score,omitempty"`
	BonusApplied        int                  `json:"bonus_applied"`
	ScoreCap            *int                 `json:"score_cap,omitempty"`
	Ingredients         []IngredientRecord   `json:"ingredients_graded"`
	Alerts              []string             `json:"alerts"`
	HiddenTruths        []string             `json:"hidden_truths"`
	CorporateDisclosure *CorporateDisclosure `json:"corporate_disclosure,omitempty"`
	Recommendation      string               `json:"recommendation"`
}

// WorstTier returns the most hazardous tier among the result's ingredients.
func (r *ScoreResult) WorstTier() (Grade, bool) {
	return WorstTier(r.Ingredients)
}

// WorstTier returns the most hazardous tier in records, or false when empty.
func WorstTier(records []IngredientRecord) (Grade, bool) {
	if len(records) == 0 {
		return GradeAPlus, false
	}
	worst := GradeAPlus
	for _, rec := range records {
		if rec.Tier.WorseThan(worst) {
			worst = rec.Tier
		}
	}
	return worst, true
}
