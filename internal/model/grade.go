package model

import (
	"strings"

	"github.com/rotisserie/eris"
)

// Grade is the letter classification shared by ingredient tiers and overall
// product scores. Lower values are worse, so GradeF < GradeD < ... < GradeAPlus.
type Grade int

const (
	GradeF Grade = iota
	GradeD
	GradeC
	GradeB
	GradeA
	GradeAPlus
)

// ScoreRange is the inclusive 0-100 score band that maps to a grade.
type ScoreRange struct {
	Min int
	Max int
}

// gradeRanges is the single source of truth for grade/score consistency.
// Caps, grade derivation and tier baselines are all derived from it.
var gradeRanges = [...]ScoreRange{
	GradeF:     {Min: 0, Max: 29},
	GradeD:     {Min: 30, Max: 49},
	GradeC:     {Min: 50, Max: 69},
	GradeB:     {Min: 70, Max: 84},
	GradeA:     {Min: 85, Max: 94},
	GradeAPlus: {Min: 95, Max: 100},
}

var gradeLabels = [...]string{
	GradeF:     "F",
	GradeD:     "D",
	GradeC:     "C",
	GradeB:     "B",
	GradeA:     "A",
	GradeAPlus: "A+",
}

// baselineHazards is the representative 0-100 hazard of a tier-only database
// entry. Each value satisfies GradeForScore(100-h) == tier.
var baselineHazards = [...]int{
	GradeF:     100,
	GradeD:     65,
	GradeC:     45,
	GradeB:     20,
	GradeA:     10,
	GradeAPlus: 0,
}

// AllGrades lists every grade from worst to best.
func AllGrades() []Grade {
	return []Grade{GradeF, GradeD, GradeC, GradeB, GradeA, GradeAPlus}
}

// Valid reports whether g is one of the defined grades.
func (g Grade) Valid() bool {
	return g >= GradeF && g <= GradeAPlus
}

func (g Grade) String() string {
	if !g.Valid() {
		return "unknown"
	}
	return gradeLabels[g]
}

// Range returns the score band for g.
func (g Grade) Range() ScoreRange {
	if !g.Valid() {
		return ScoreRange{}
	}
	return gradeRanges[g]
}

// Ceiling is the highest overall score a product may have when g is the worst
// tier present among its ingredients.
func (g Grade) Ceiling() int {
	return g.Range().Max
}

// BaselineHazard returns the hazard score assigned to a database entry that
// only declares a tier.
func (g Grade) BaselineHazard() int {
	if !g.Valid() {
		return baselineHazards[GradeC]
	}
	return baselineHazards[g]
}

// WorseThan reports whether g is a strictly more hazardous grade than other.
func (g Grade) WorseThan(other Grade) bool {
	return g < other
}

// ClampScore bounds a score to [0,100].
func ClampScore(score int) int {
	switch {
	case score < 0:
		return 0
	case score > 100:
		return 100
	default:
		return score
	}
}

// GradeForScore derives the grade of a 0-100 safety score. The score is
// clamped first so the result is always a defined grade.
func GradeForScore(score int) Grade {
	score = ClampScore(score)
	for _, g := range AllGrades() {
		r := gradeRanges[g]
		if score >= r.Min && score <= r.Max {
			return g
		}
	}
	return GradeF
}

// TierForHazard converts a 0-100 hazard score (higher is worse) to a tier.
func TierForHazard(hazard int) Grade {
	return GradeForScore(100 - ClampScore(hazard))
}

// ParseGrade parses a label such as "A+" or "d".
func ParseGrade(s string) (Grade, error) {
	label := strings.ToUpper(strings.TrimSpace(s))
	for g, l := range gradeLabels {
		if l == label {
			return Grade(g), nil
		}
	}
	return GradeF, eris.Errorf("model: unknown grade %q", s)
}

// MarshalText encodes the grade as its label.
func (g Grade) MarshalText() ([]byte, error) {
	if !g.Valid() {
		return nil, eris.Errorf("model: invalid grade %d", int(g))
	}
	return []byte(g.String()), nil
}

// UnmarshalText decodes a grade label.
func (g *Grade) UnmarshalText(text []byte) error {
	parsed, err := ParseGrade(string(text))
	if err != nil {
		return err
	}
	*g = parsed
	return nil
}
