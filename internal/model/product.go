package model

import (
	"strings"

	"github.com/rotisserie/eris"
)

// Category is the product category supplied by the extraction collaborator.
type Category string

const (
	CategoryFood        Category = "food"
	CategoryWater       Category = "water"
	CategoryCosmetics   Category = "cosmetics"
	CategoryCookware    Category = "cookware"
	CategoryCleaning    Category = "cleaning"
	CategorySupplements Category = "supplements"
	CategoryOther       Category = "other"
)

// Categories lists the accepted categories.
func Categories() []Category {
	return []Category{
		CategoryFood, CategoryWater, CategoryCosmetics, CategoryCookware,
		CategoryCleaning, CategorySupplements, CategoryOther,
	}
}

// ParseCategory normalizes and validates a category label.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Categories() {
		if c == known {
			return c, nil
		}
	}
	return "", eris.Wrapf(ErrInvalidRequest, "unknown category %q", s)
}

// Provenance identifies which source produced an ingredient's final hazard.
type Provenance string

const (
	ProvenanceDatabase Provenance = "database"
	ProvenanceExternal Provenance = "external"
	// ProvenanceDefault marks an ingredient neither source knew about.
	ProvenanceDefault Provenance = "default"
)

// ConditionLevel is the coarse physical condition reported for durable goods.
type ConditionLevel string

const (
	ConditionPristine ConditionLevel = "pristine"
	ConditionGood     ConditionLevel = "good"
	ConditionWorn     ConditionLevel = "worn"
	ConditionDamaged  ConditionLevel = "damaged"
)

var conditionScores = map[ConditionLevel]int{
	ConditionPristine: 100,
	ConditionGood:     80,
	ConditionWorn:     50,
	ConditionDamaged:  20,
}

// Condition describes the physical state of the scanned item.
type Condition struct {
	Score   *int           `json:"score,omitempty" yaml:"score,omitempty" validate:"omitempty,min=0,max=100"`
	Overall ConditionLevel `json:"overall,omitempty" yaml:"overall,omitempty" validate:"omitempty,oneof=pristine good worn damaged"`
}

// Value returns the 0-100 condition score. An explicit score wins over the
// level; a nil condition counts as pristine.
func (c *Condition) Value() int {
	if c == nil {
		return 100
	}
	if c.Score != nil {
		return ClampScore(*c.Score)
	}
	if v, ok := conditionScores[c.Overall]; ok {
		return v
	}
	return 100
}

// Worn reports whether the item shows wear that should be called out.
func (c *Condition) Worn() bool {
	if c == nil {
		return false
	}
	return c.Overall == ConditionWorn || c.Overall == ConditionDamaged
}
