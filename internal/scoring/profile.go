package scoring

import (
	"math"
	"sort"

	"github.com/rotisserie/eris"

	"github.com/sells-group/safescan/internal/model"
)

// Profile names.
const (
	ProfileStandard  = "standard"
	ProfileCondition = "condition"
)

// Profile weights the dimensions (and optionally physical condition) into an
// overall score. Weights must be non-negative and sum to 1.
type Profile struct {
	Name       string  `json:"name"`
	Ingredient float64 `json:"ingredient"`
	Processing float64 `json:"processing"`
	Corporate  float64 `json:"corporate"`
	Supply     float64 `json:"supply"`
	Condition  float64 `json:"condition"`
}

// StandardProfile is the four-dimension blend.
var StandardProfile = Profile{
	Name:       ProfileStandard,
	Ingredient: 0.40,
	Processing: 0.25,
	Corporate:  0.20,
	Supply:     0.15,
}

// ConditionProfile is used where physical condition matters more than sourcing.
var ConditionProfile = Profile{
	Name:       ProfileCondition,
	Ingredient: 0.85,
	Condition:  0.15,
}

// UsesCondition reports whether the condition score contributes.
func (p Profile) UsesCondition() bool { return p.Condition > 0 }

// Validate checks the weights.
func (p Profile) Validate() error {
	weights := []float64{p.Ingredient, p.Processing, p.Corporate, p.Supply, p.Condition}
	var sum float64
	for _, w := range weights {
		if w < 0 || math.IsNaN(w) {
			return eris.Errorf("scoring: profile %q has a negative weight", p.Name)
		}
		sum += w
	}
	if math.Abs(sum-1) > 1e-6 {
		return eris.Errorf("scoring: profile %q weights sum to %.4f, want 1", p.Name, sum)
	}
	return nil
}

// Weighted blends the dimension scores and condition score.
func (p Profile) Weighted(d model.DimensionScores, condition int) float64 {
	return p.Ingredient*float64(d.IngredientSafety) +
		p.Processing*float64(d.ProcessingLevel) +
		p.Corporate*float64(d.CorporateEthics) +
		p.Supply*float64(d.SupplyChain) +
		p.Condition*float64(model.ClampScore(condition))
}

// Profiles maps product categories to weighting profiles.
type Profiles struct {
	byName     map[string]Profile
	byCategory map[model.Category]string
}

// DefaultProfiles weights cookware by condition and everything else by the
// standard blend.
func DefaultProfiles() *Profiles {
	p, _ := NewProfiles(nil, nil)
	return p
}

// NewProfiles merges overrides into the built-in profiles and maps categories
// to them. Unknown categories or profile names are rejected.
func NewProfiles(overrides map[string]Profile, categories map[string]string) (*Profiles, error) {
	p := &Profiles{
		byName: map[string]Profile{
			ProfileStandard:  StandardProfile,
			ProfileCondition: ConditionProfile,
		},
		byCategory: map[model.Category]string{
			model.CategoryCookware: ProfileCondition,
		},
	}

	names := make([]string, 0, len(overrides))
	for name := range overrides {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		prof := overrides[name]
		prof.Name = name
		if err := prof.Validate(); err != nil {
			return nil, err
		}
		p.byName[name] = prof
	}

	for cat, name := range categories {
		c, err := model.ParseCategory(cat)
		if err != nil {
			return nil, eris.Wrap(err, "scoring: category profile")
		}
		if _, ok := p.byName[name]; !ok {
			return nil, eris.Errorf("scoring: category %q uses unknown profile %q", cat, name)
		}
		p.byCategory[c] = name
	}
	return p, nil
}

// For returns the profile for a category.
func (p *Profiles) For(c model.Category) Profile {
	if name, ok := p.byCategory[c]; ok {
		return p.byName[name]
	}
	return p.byName[ProfileStandard]
}
