// Package scoring turns extracted product data into a deterministic
// multi-dimension safety score and letter grade.
package scoring

import (
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/safescan/internal/model"
	"github.com/sells-group/safescan/internal/tierdb"
)

// DefaultUnknownHazard is the hazard given to an ingredient that neither the
// tier database nor an external estimate knows about. It lands in tier C.
const DefaultUnknownHazard = 40

const unknownReason = "Unknown - not in safety database. May have bypassed FDA review via GRAS loophole."

// Catalog is the read-only reference data the scorer consults.
type Catalog interface {
	Lookup(name string, category model.Category) (*tierdb.Entry, bool)
	Narrative(key string) (string, bool)
	Vocabulary() tierdb.Vocabulary
	MatchBrand(brand string) (*tierdb.Parent, bool)
}

// Classifier resolves ingredient names against the catalog.
type Classifier struct {
	catalog       Catalog
	unknownHazard int
}

// NewClassifier returns a classifier. unknownHazard is clamped to [0,100].
func NewClassifier(catalog Catalog, unknownHazard int) *Classifier {
	return &Classifier{catalog: catalog, unknownHazard: model.ClampScore(unknownHazard)}
}

// EstimateToHazard converts a 0-10 external estimate to the 0-100 hazard scale.
func EstimateToHazard(estimate float64) int {
	if math.IsNaN(estimate) {
		return 0
	}
	e := math.Max(0, math.Min(10, estimate))
	return int(math.Round(e * 10))
}

// Classify builds the record for one ingredient. It has no side effects, so
// identical inputs always yield identical records.
func (c *Classifier) Classify(name string, category model.Category, estimate *float64) model.IngredientRecord {
	rec := model.IngredientRecord{Name: strings.TrimSpace(name)}
	if estimate != nil {
		e := *estimate
		rec.ExternalEstimate = &e
	}

	entry, found := c.catalog.Lookup(name, category)
	switch {
	case found && estimate != nil:
		hazard, prov := Resolve(entry.Hazard, EstimateToHazard(*estimate))
		rec.HazardScore = hazard
		rec.Provenance = prov
		rec.Reason = entry.Reason
		if prov == model.ProvenanceExternal {
			rec.Reason = fmt.Sprintf("External analysis rates this higher (%.1f/10) than the curated entry. %s", *estimate, entry.Reason)
		}
		c.attachEntry(&rec, entry)
	case found:
		rec.HazardScore = entry.Hazard
		rec.Provenance = model.ProvenanceDatabase
		rec.Reason = entry.Reason
		c.attachEntry(&rec, entry)
	case estimate != nil:
		rec.HazardScore = EstimateToHazard(*estimate)
		rec.Provenance = model.ProvenanceExternal
		rec.Reason = fmt.Sprintf("Not in curated database. External analysis rates it %.1f/10.", *estimate)
	default:
		rec.HazardScore = c.unknownHazard
		rec.Provenance = model.ProvenanceDefault
		rec.Reason = unknownReason
		rec.NeedsReview = true
		rec.NarrativeKey = tierdb.NarrativeUnknown
		zap.L().Debug("scoring: unknown ingredient, using default hazard",
			zap.String("ingredient", rec.Name),
			zap.Int("hazard", rec.HazardScore),
		)
	}

	rec.Tier = model.TierForHazard(rec.HazardScore)
	if rec.NarrativeKey != "" {
		if text, ok := c.catalog.Narrative(rec.NarrativeKey); ok {
			rec.HiddenTruth = text
		}
	}
	return rec
}

func (c *Classifier) attachEntry(rec *model.IngredientRecord, entry *tierdb.Entry) {
	rec.Category = entry.Category
	rec.NarrativeKey = entry.Narrative
}

// Resolve reconciles a curated hazard with an external one by keeping the
// more conservative (higher) value. Ties go to the database.
func Resolve(databaseScore, externalScore int) (int, model.Provenance) {
	db := model.ClampScore(databaseScore)
	ext := model.ClampScore(externalScore)
	if ext > db {
		return ext, model.ProvenanceExternal
	}
	return db, model.ProvenanceDatabase
}
