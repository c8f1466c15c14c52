package tierdb

import "github.com/sells-group/safescan/internal/model"

// Hazard bands shared with the ingredient safety dimension.
const (
	HighConcernHazard     = 70
	ModerateConcernHazard = 40
)

// Stats summarizes the database contents.
type Stats struct {
	Version          string         `json:"version"`
	OwnershipVersion string         `json:"ownership_version"`
	TotalEntries     int            `json:"total_ingredients"`
	TotalMaterials   int            `json:"total_materials"`
	Categories       map[string]int `json:"categories"`
	Tiers            map[string]int `json:"tiers"`
	HighHazard       int            `json:"high_hazard_count"`
	ModerateHazard   int            `json:"moderate_hazard_count"`
	LowHazard        int            `json:"low_hazard_count"`
	Parents          int            `json:"parent_companies"`
	Narratives       int            `json:"narratives"`
	ProcessingTerms  int            `json:"processing_markers"`
}

// Stats counts entries by category, tier and hazard band.
func (db *DB) Stats() Stats {
	s := Stats{
		Version:          db.version,
		OwnershipVersion: db.ownershipVersion,
		Categories:       map[string]int{},
		Tiers:            map[string]int{},
		Parents:          len(db.parents),
		Narratives:       len(db.narratives),
		ProcessingTerms:  len(db.vocab.ProcessingMarkers),
	}
	for _, g := range model.AllGrades() {
		s.Tiers[g.String()] = 0
	}
	for _, e := range db.entries {
		if e.Category == "material" {
			s.TotalMaterials++
		} else {
			s.TotalEntries++
		}
		cat := e.Category
		if cat == "" {
			cat = "uncategorized"
		}
		s.Categories[cat]++
		s.Tiers[e.Tier.String()]++
		switch {
		case e.Hazard >= HighConcernHazard:
			s.HighHazard++
		case e.Hazard >= ModerateConcernHazard:
			s.ModerateHazard++
		default:
			s.LowHazard++
		}
	}
	return s
}
