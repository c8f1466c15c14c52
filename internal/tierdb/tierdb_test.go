package tierdb

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/safescan/internal/model"
)

func loadDefault(t *testing.T) *DB {
	t.Helper()
	db, err := Default()
	require.NoError(t, err)
	return db
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"  Sodium   Benzoate ", "sodium benzoate"},
		{"Häagen-Dazs", "haagen-dazs"},
		{"LÄRABAR", "larabar"},
		{"Red\t40", "red 40"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Normalize(tt.in), "input %q", tt.in)
	}
}

func TestContainsWord(t *testing.T) {
	t.Parallel()

	assert.True(t, containsWord("nestle pure life", "nestle"))
	assert.True(t, containsWord("classic m&m's peanut", "m&m's"))
	assert.False(t, containsWord("marshmallow farms", "mars"))
	assert.False(t, containsWord("mars", ""))
	assert.True(t, containsWord("mars", "mars"))
}

func TestDefault_Lookup(t *testing.T) {
	t.Parallel()
	db := loadDefault(t)

	t.Run("tier entry", func(t *testing.T) {
		t.Parallel()
		e, ok := db.Lookup("  RED 40 ", model.CategoryFood)
		require.True(t, ok)
		assert.Equal(t, model.GradeD, e.Tier)
		assert.Equal(t, model.GradeD.BaselineHazard(), e.Hazard)
		assert.NotEmpty(t, e.Reason)
	})

	t.Run("hazard entry", func(t *testing.T) {
		t.Parallel()
		e, ok := db.Lookup("formaldehyde", model.CategoryCleaning)
		require.True(t, ok)
		assert.Equal(t, 100, e.Hazard)
		assert.Equal(t, model.GradeF, e.Tier)
	})

	t.Run("narrative reference", func(t *testing.T) {
		t.Parallel()
		e, ok := db.Lookup("BHA", model.CategoryFood)
		require.True(t, ok)
		text, ok := db.Narrative(e.Narrative)
		require.True(t, ok)
		assert.Contains(t, text, "BHA")
	})

	t.Run("category restricted material", func(t *testing.T) {
		t.Parallel()
		_, ok := db.Lookup("glass", model.CategoryFood)
		assert.False(t, ok)

		e, ok := db.Lookup("glass", model.CategoryCookware)
		require.True(t, ok)
		assert.Equal(t, model.GradeAPlus, e.Tier)
	})

	t.Run("unknown", func(t *testing.T) {
		t.Parallel()
		_, ok := db.Lookup("unobtainium", model.CategoryFood)
		assert.False(t, ok)
	})

	t.Run("exact match only", func(t *testing.T) {
		t.Parallel()
		_, ok := db.Lookup("red 40 lake", model.CategoryFood)
		assert.False(t, ok)
	})
}

func TestDefault_Search(t *testing.T) {
	t.Parallel()
	db := loadDefault(t)

	e, matched, ok := db.Search("Sodium Lauryl Sulfate (SLS)")
	require.True(t, ok)
	assert.Equal(t, "sodium lauryl sulfate", matched)
	assert.Equal(t, e.Name, matched)

	_, _, ok = db.Search("   ")
	assert.False(t, ok)
}

func TestDefault_MatchBrand(t *testing.T) {
	t.Parallel()
	db := loadDefault(t)

	tests := []struct {
		brand  string
		parent string
	}{
		{"Nestle Pure Life", "Nestlé"},
		{"Häagen-Dazs", "Nestlé"},
		{"Kellogg's", "Kellogg's"},
		{"M&M's", "Mars"},
		{"lunchables", "Kraft Heinz"},
	}
	for _, tt := range tests {
		p, ok := db.MatchBrand(tt.brand)
		require.True(t, ok, tt.brand)
		assert.Equal(t, tt.parent, p.Name, tt.brand)
		assert.Positive(t, p.Penalty)
	}

	_, ok := db.MatchBrand("Marshmallow Farms")
	assert.False(t, ok)
	_, ok = db.MatchBrand("")
	assert.False(t, ok)
}

func TestDefault_NarrativesAndVocabulary(t *testing.T) {
	t.Parallel()
	db := loadDefault(t)

	for _, key := range []string{NarrativeUnknown, NarrativeUltraProcessed, NarrativeMonoculture} {
		text, ok := db.Narrative(key)
		assert.True(t, ok, key)
		assert.NotEmpty(t, text, key)
	}
	ultra, _ := db.Narrative(NarrativeUltraProcessed)
	assert.Contains(t, ultra, "{count}")

	v := db.Vocabulary()
	assert.Contains(t, v.ProcessingMarkers, "high fructose corn syrup")
	assert.Contains(t, v.MonocultureTerms, "palm")
	assert.Contains(t, v.Certifications, "fair trade")
	assert.Contains(t, v.ClaimTerms, "hypoallergenic")
}

func TestDefault_Stats(t *testing.T) {
	t.Parallel()
	db := loadDefault(t)

	s := db.Stats()
	assert.Equal(t, db.Version(), s.Version)
	assert.Equal(t, 18, s.TotalMaterials)
	assert.Greater(t, s.TotalEntries, 100)
	assert.Equal(t, 10, s.Parents)
	assert.Equal(t, s.TotalEntries+s.TotalMaterials, s.HighHazard+s.ModerateHazard+s.LowHazard)
	assert.Positive(t, s.Tiers["F"])
	assert.Positive(t, s.Categories["food_dye"])
}

func TestLoad_Overrides(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	tiers := writeFile(t, dir, "tiers.yaml", `
version: test-1
entries:
  - name: Widget Oil
    tier: B
  - name: Gloop
    hazard: 85
    narrative: gras_unknown
  - name: pan coating
    hazard: 50
    categories: [cookware]
  - name: pan coating
    hazard: 10
    categories: [food]
`)
	owners := writeFile(t, dir, "owners.yaml", `
version: owners-1
parents:
  - parent: Acme Holdings
    penalty: 20
    brands: [Acme, Roadrunner Snacks]
    notable_brands: [Acme]
    issues: [Anvil recalls]
`)

	db, err := Load(Options{TiersPath: tiers, OwnershipPath: owners})
	require.NoError(t, err)
	assert.Equal(t, "test-1", db.Version())

	e, ok := db.Lookup("widget oil", model.CategoryFood)
	require.True(t, ok)
	assert.Equal(t, model.GradeB.BaselineHazard(), e.Hazard)

	e, ok = db.Lookup("gloop", model.CategoryFood)
	require.True(t, ok)
	assert.Equal(t, model.GradeF, e.Tier)

	e, ok = db.Lookup("pan coating", model.CategoryCookware)
	require.True(t, ok)
	assert.Equal(t, 50, e.Hazard)
	e, ok = db.Lookup("pan coating", model.CategoryFood)
	require.True(t, ok)
	assert.Equal(t, 10, e.Hazard)

	p, ok := db.MatchBrand("Roadrunner Snacks Original")
	require.True(t, ok)
	assert.Equal(t, "Acme Holdings", p.Name)
	assert.Equal(t, "owners-1", db.Stats().OwnershipVersion)
}

func TestLoad_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		errMsg  string
	}{
		{"both tier and hazard", "entries:\n  - name: x\n    tier: C\n    hazard: 40\n", "both tier and hazard"},
		{"neither", "entries:\n  - name: x\n", "neither tier nor hazard"},
		{"hazard range", "entries:\n  - name: x\n    hazard: 140\n", "out of range"},
		{"bad tier", "entries:\n  - name: x\n    tier: E\n", "unknown grade"},
		{"unknown narrative", "entries:\n  - name: x\n    tier: C\n    narrative: nope\n", "unknown narrative"},
		{"duplicate", "entries:\n  - name: X\n    tier: C\n  - name: ' x '\n    tier: D\n", "duplicate"},
		{"bad category", "entries:\n  - name: x\n    tier: C\n    categories: [toys]\n", "unknown category"},
		{"empty name", "entries:\n  - name: '  '\n    tier: C\n", "name is empty"},
		{"bad yaml", "entries: [\n", "parse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			path := writeFile(t, t.TempDir(), "tiers.yaml", tt.content)
			_, err := Load(Options{TiersPath: path})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(Options{OwnershipPath: filepath.Join(t.TempDir(), "missing.yaml")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tierdb: read")
}

func TestLoad_BadPenalty(t *testing.T) {
	t.Parallel()

	path := writeFile(t, t.TempDir(), "owners.yaml", "parents:\n  - parent: Bad Co\n    penalty: -5\n")
	_, err := Load(Options{OwnershipPath: path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "penalty")
}
