package scoring

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/safescan/internal/model"
	"github.com/sells-group/safescan/internal/tierdb"
)

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	db, err := tierdb.Default()
	require.NoError(t, err)
	return NewEngine(db, opts...)
}

func TestEngine_ScenarioA_ToxicScoresBelowWornSafe(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)

	toxic, err := e.Score(model.ScanRequest{
		ProductName: "Fruit Punch",
		Category:    model.CategoryFood,
		Ingredients: []string{"HFCS", "Red 40", "water", "sodium benzoate"},
		ExternalHazardEstimates: map[string]float64{
			"HFCS": 5, "Red 40": 5, "sodium benzoate": 5,
		},
	})
	require.NoError(t, err)

	worn, err := e.Score(model.ScanRequest{
		ProductName: "Old Kettle",
		Category:    model.CategoryCookware,
		Ingredients: []string{"water"},
		Condition:   &model.Condition{Overall: model.ConditionDamaged},
	})
	require.NoError(t, err)

	assert.Less(t, toxic.OverallScore, worn.OverallScore)
	assert.LessOrEqual(t, toxic.OverallScore, 49)
	assert.Equal(t, model.GradeD, toxic.Grade)
	assert.Equal(t, 43, toxic.DimensionScores.IngredientSafety)
	assert.Equal(t, 40, toxic.DimensionScores.ProcessingLevel)
	assert.Contains(t, toxic.Alerts, "LIMIT: HFCS")
	assert.Contains(t, toxic.Alerts, "HIGHLY PROCESSED: 3 processing markers")

	assert.Equal(t, ProfileCondition, worn.Profile)
	require.NotNil(t, worn.ConditionScore)
	assert.Equal(t, 20, *worn.ConditionScore)
	assert.Contains(t, worn.Recommendation, "visible wear")
	assert.Nil(t, worn.ScoreCap)
}

func TestEngine_FTierCapsScore(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)

	safe := []string{"water", "olive oil", "sea salt", "whole grain", "vitamin e"}
	toxic := []string{"bha", "potassium bromate", "red 3", "sodium nitrite"}
	for i := range safe {
		for _, bad := range toxic {
			ings := append(append([]string{}, safe[:i+1]...), bad)
			res, err := e.Score(model.ScanRequest{
				ProductName:    "Mix",
				Category:       model.CategoryFood,
				Ingredients:    ings,
				PositiveClaims: []string{"gluten-free", "USDA Organic", "fair trade", "non-gmo", "dye free", "vegan"},
			})
			require.NoError(t, err)
			assert.LessOrEqual(t, res.OverallScore, 29, "%v", ings)
			assert.Equal(t, model.GradeF, res.Grade)
			assert.Contains(t, res.Alerts, "AVOID: "+bad)
		}
	}
}

func TestEngine_CapAlertOnlyWhenLowered(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)

	res, err := e.Score(model.ScanRequest{
		ProductName:    "Olive Oil Spread",
		Category:       model.CategoryFood,
		Ingredients:    []string{"olive oil", "sea salt", "xanthan gum"},
		PositiveClaims: []string{"USDA Organic", "Fair Trade", "gluten-free", "dairy-free", "soy-free"},
	})
	require.NoError(t, err)
	require.NotNil(t, res.ScoreCap)
	assert.Equal(t, 69, *res.ScoreCap)
	assert.Equal(t, 69, res.OverallScore)
	assert.Equal(t, 15, res.BonusApplied)
	assert.Contains(t, res.Alerts, "SCORE CAPPED: Product cannot score above C due to C-grade ingredients")

	low, err := e.Score(model.ScanRequest{
		ProductName: "Cured Ham",
		Category:    model.CategoryFood,
		Ingredients: []string{"bha", "bht", "red 3", "red 40", "yellow 5"},
	})
	require.NoError(t, err)
	assert.Equal(t, 27, low.OverallScore)
	require.NotNil(t, low.ScoreCap)
	for _, a := range low.Alerts {
		assert.False(t, strings.HasPrefix(a, "SCORE CAPPED"), a)
	}
}

func TestEngine_RangeInvariant(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)

	many := make([]string, 0, 150)
	for i := 0; i < 150; i++ {
		many = append(many, "bha")
	}
	inputs := [][]string{
		{""},
		{"   ", "\t"},
		many,
		{"water", "water", "water"},
		{"unknown thing 1", "unknown thing 2"},
	}
	for _, ings := range inputs {
		res, err := e.Score(model.ScanRequest{ProductName: "X", Category: model.CategoryOther, Ingredients: ings})
		require.NoError(t, err)
		for _, v := range []int{
			res.OverallScore,
			res.DimensionScores.IngredientSafety,
			res.DimensionScores.ProcessingLevel,
			res.DimensionScores.CorporateEthics,
			res.DimensionScores.SupplyChain,
		} {
			assert.GreaterOrEqual(t, v, 0)
			assert.LessOrEqual(t, v, 100)
		}
		assert.Equal(t, model.GradeForScore(res.OverallScore), res.Grade)
	}
}

func TestEngine_BlankIngredientsYieldEmptyList(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)

	res, err := e.Score(model.ScanRequest{ProductName: "X", Category: model.CategoryFood, Ingredients: []string{" "}})
	require.NoError(t, err)
	assert.Empty(t, res.Ingredients)
	assert.NotNil(t, res.Ingredients)
	assert.Equal(t, 50, res.DimensionScores.IngredientSafety)
	assert.Nil(t, res.ScoreCap)
}

func TestEngine_SortedWorstFirst(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)

	res, err := e.Score(model.ScanRequest{
		ProductName: "Snack",
		Category:    model.CategoryFood,
		Ingredients: []string{"water", "palm oil", "bht", "aspartame", "butter", "mystery powder"},
	})
	require.NoError(t, err)
	require.Len(t, res.Ingredients, 6)
	for i := 1; i < len(res.Ingredients); i++ {
		assert.False(t, res.Ingredients[i].Tier.WorseThan(res.Ingredients[i-1].Tier),
			"%s before %s", res.Ingredients[i-1].Name, res.Ingredients[i].Name)
	}
	assert.Equal(t, "bht", res.Ingredients[0].Name)

	// Stable: the two C-tier ingredients keep input order.
	var cTier []string
	for _, r := range res.Ingredients {
		if r.Tier == model.GradeC {
			cTier = append(cTier, r.Name)
		}
	}
	assert.Equal(t, []string{"palm oil", "mystery powder"}, cTier)
}

func TestEngine_UnknownIngredient(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t, WithUnknownHazard(60))

	res, err := e.Score(model.ScanRequest{ProductName: "X", Category: model.CategoryFood, Ingredients: []string{"zorbitol"}})
	require.NoError(t, err)
	require.Len(t, res.Ingredients, 1)
	rec := res.Ingredients[0]
	assert.Equal(t, 60, rec.HazardScore)
	assert.Equal(t, model.GradeD, rec.Tier)
	assert.True(t, rec.NeedsReview)
	assert.Equal(t, model.ProvenanceDefault, rec.Provenance)
	require.Len(t, res.HiddenTruths, 1)
	assert.Contains(t, res.HiddenTruths[0], "GRAS")
}

func TestEngine_EstimatesMatchCaseInsensitively(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)

	res, err := e.Score(model.ScanRequest{
		ProductName:             "Drink",
		Category:                model.CategoryFood,
		Ingredients:             []string{"Water"},
		ExternalHazardEstimates: map[string]float64{"  WATER ": 9},
	})
	require.NoError(t, err)
	rec := res.Ingredients[0]
	assert.Equal(t, 90, rec.HazardScore)
	assert.Equal(t, model.ProvenanceExternal, rec.Provenance)
	assert.Equal(t, model.GradeF, rec.Tier)
	assert.LessOrEqual(t, res.OverallScore, 29)
}

func TestEngine_CollidingEstimatesKeepHighest(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	req := model.ScanRequest{
		ProductName:             "Mystery Bar",
		Category:                model.CategoryFood,
		Ingredients:             []string{"mystery"},
		ExternalHazardEstimates: map[string]float64{"Mystery": 1, "mystery": 9, " MYSTERY ": 4},
	}

	first, err := e.Score(req)
	require.NoError(t, err)
	require.Len(t, first.Ingredients, 1)
	assert.Equal(t, 90, first.Ingredients[0].HazardScore)
	assert.Equal(t, model.GradeF, first.Ingredients[0].Tier)

	for i := 0; i < 200; i++ {
		got, err := e.Score(req)
		require.NoError(t, err)
		require.Equal(t, first.OverallScore, got.OverallScore, "run %d", i)
		require.Equal(t, first.Ingredients, got.Ingredients, "run %d", i)
	}
}

func TestEngine_Corporate(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)

	res, err := e.Score(model.ScanRequest{
		ProductName: "Pure Life",
		Brand:       "Nestle Pure Life",
		Category:    model.CategoryWater,
		Ingredients: []string{"water"},
	})
	require.NoError(t, err)
	require.NotNil(t, res.CorporateDisclosure)
	assert.Equal(t, "Nestlé", res.CorporateDisclosure.ParentCompany)
	assert.Equal(t, 15, res.CorporateDisclosure.Penalty)
	assert.Equal(t, 55, res.DimensionScores.CorporateEthics)
	assert.Contains(t, res.Alerts, "OWNED BY: Nestlé")
	require.NotEmpty(t, res.HiddenTruths)
	assert.Contains(t, res.HiddenTruths[len(res.HiddenTruths)-1], "Nestle Pure Life is owned by Nestlé.")

	none, err := e.Score(model.ScanRequest{ProductName: "X", Brand: "Tiny Farm Co", Category: model.CategoryFood, Ingredients: []string{"water"}})
	require.NoError(t, err)
	assert.Nil(t, none.CorporateDisclosure)
	assert.Equal(t, 70, none.DimensionScores.CorporateEthics)
}

func TestEngine_ProcessingAndSupplyChain(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)

	res, err := e.Score(model.ScanRequest{
		ProductName: "Candy",
		Category:    model.CategoryFood,
		Ingredients: []string{
			"high fructose corn syrup", "maltodextrin", "red 40", "yellow 5",
			"sodium benzoate", "soybean oil", "palm oil",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 20, res.DimensionScores.ProcessingLevel)
	assert.Contains(t, res.Alerts, "ULTRA-PROCESSED: 5 processing markers detected")
	assert.Equal(t, 35, res.DimensionScores.SupplyChain)
	assert.Contains(t, res.Alerts, "MONOCULTURE ALERT: 3 industrial ingredients")

	var ultra string
	for _, h := range res.HiddenTruths {
		if strings.Contains(h, "ULTRA-PROCESSED FOOD ALERT") {
			ultra = h
		}
	}
	require.NotEmpty(t, ultra)
	assert.Contains(t, ultra, "contains 5 ultra-processing markers")
	assert.NotContains(t, ultra, "{count}")

	certified, err := e.Score(model.ScanRequest{
		ProductName:    "Oats",
		Category:       model.CategoryFood,
		Ingredients:    []string{"whole grain"},
		PositiveClaims: []string{"USDA Organic", "Fair Trade"},
	})
	require.NoError(t, err)
	assert.Equal(t, 70, certified.DimensionScores.SupplyChain)
	assert.Equal(t, 6, certified.BonusApplied)
}

func TestEngine_HiddenTruthsDeduplicated(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)

	res, err := e.Score(model.ScanRequest{
		ProductName: "Cereal",
		Category:    model.CategoryFood,
		Ingredients: []string{"bha", "butylated hydroxyanisole", "mystery a", "mystery b"},
	})
	require.NoError(t, err)
	assert.Len(t, res.HiddenTruths, 2)
}

func TestEngine_InvalidRequest(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)

	tests := []model.ScanRequest{
		{ProductName: "X", Category: model.CategoryFood},
		{ProductName: "X", Category: "toys", Ingredients: []string{"water"}},
		{Category: model.CategoryFood, Ingredients: []string{"water"}},
	}
	for i, req := range tests {
		_, err := e.Score(req)
		require.Error(t, err, fmt.Sprint(i))
		assert.True(t, errors.Is(err, model.ErrInvalidRequest), fmt.Sprint(i))
	}
}

func TestRecommendation(t *testing.T) {
	t.Parallel()

	assert.Contains(t, Recommendation(model.GradeAPlus, nil), "appears to be safe")
	assert.Contains(t, Recommendation(model.GradeB, nil), "relatively safe")
	assert.Contains(t, Recommendation(model.GradeC, nil), "moderate concern")
	assert.Contains(t, Recommendation(model.GradeD, nil), "several concerning")
	assert.Contains(t, Recommendation(model.GradeF, nil), "strongly recommend avoiding")

	worn := Recommendation(model.GradeA, &model.Condition{Overall: model.ConditionWorn})
	assert.Contains(t, worn, "visible wear")
	assert.NotContains(t, Recommendation(model.GradeA, &model.Condition{Overall: model.ConditionGood}), "visible wear")
}
