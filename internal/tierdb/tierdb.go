// Package tierdb holds the curated hazard tier database, the parent-company
// ownership table, the consumer narratives and the term vocabularies used by
// the scorer. All data is read-only after Load.
package tierdb

import (
	"embed"
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/safescan/internal/model"
)

//go:embed data/*.yaml
var dataFS embed.FS

// Narrative keys referenced by the scorer.
const (
	NarrativeUnknown        = "gras_unknown"
	NarrativeUltraProcessed = "ultra_processed"
	NarrativeMonoculture    = "monoculture"
)

// Entry is one curated ingredient or material.
type Entry struct {
	Name          string
	Tier          model.Grade
	Hazard        int
	Reason        string
	Category      string
	Source        string
	Concerns      []string
	Narrative     string
	Categories    []model.Category
	Certification bool
}

// AppliesTo reports whether the entry is valid for products of category c.
// Entries without a category list apply everywhere.
func (e *Entry) AppliesTo(c model.Category) bool {
	if len(e.Categories) == 0 {
		return true
	}
	for _, allowed := range e.Categories {
		if allowed == c {
			return true
		}
	}
	return false
}

// Parent is a corporate owner and the brands it sells.
type Parent struct {
	Name          string   `yaml:"parent"`
	Penalty       int      `yaml:"penalty"`
	Brands        []string `yaml:"brands"`
	NotableBrands []string `yaml:"notable_brands"`
	Issues        []string `yaml:"issues"`
}

// Vocabulary holds the term lists matched against ingredient names and claims.
type Vocabulary struct {
	ProcessingMarkers []string `yaml:"processing_markers"`
	MonocultureTerms  []string `yaml:"monoculture_terms"`
	Certifications    []string `yaml:"certifications"`
	ClaimTerms        []string `yaml:"claim_terms"`
}

// Options selects alternate data files. Empty paths use the embedded data.
type Options struct {
	TiersPath     string
	OwnershipPath string
}

// DB is the loaded, immutable database.
type DB struct {
	version          string
	ownershipVersion string
	entries          []*Entry
	byName           map[string][]*Entry
	parents          []*Parent
	narratives       map[string]string
	vocab            Vocabulary
}

type rawEntry struct {
	Name          string   `yaml:"name"`
	Tier          string   `yaml:"tier"`
	Hazard        *int     `yaml:"hazard"`
	Reason        string   `yaml:"reason"`
	Category      string   `yaml:"category"`
	Source        string   `yaml:"source"`
	Concerns      []string `yaml:"concerns"`
	Narrative     string   `yaml:"narrative"`
	Categories    []string `yaml:"categories"`
	Certification bool     `yaml:"certification"`
}

type tierFile struct {
	Version string     `yaml:"version"`
	Entries []rawEntry `yaml:"entries"`
}

type ownershipFile struct {
	Version string    `yaml:"version"`
	Parents []*Parent `yaml:"parents"`
}

type narrativeFile struct {
	Narratives map[string]string `yaml:"narratives"`
}

// Default loads the embedded database.
func Default() (*DB, error) {
	return Load(Options{})
}

// Load reads and validates the database.
func Load(opts Options) (*DB, error) {
	var tiers tierFile
	if err := readYAML(opts.TiersPath, "data/tiers.yaml", &tiers); err != nil {
		return nil, err
	}
	var owners ownershipFile
	if err := readYAML(opts.OwnershipPath, "data/ownership.yaml", &owners); err != nil {
		return nil, err
	}
	var narr narrativeFile
	if err := readYAML("", "data/narratives.yaml", &narr); err != nil {
		return nil, err
	}
	var vocab Vocabulary
	if err := readYAML("", "data/vocabulary.yaml", &vocab); err != nil {
		return nil, err
	}

	db := &DB{
		version:          tiers.Version,
		ownershipVersion: owners.Version,
		byName:           make(map[string][]*Entry, len(tiers.Entries)),
		narratives:       narr.Narratives,
		vocab:            normalizeVocab(vocab),
	}
	if db.narratives == nil {
		db.narratives = map[string]string{}
	}
	for _, key := range []string{NarrativeUnknown, NarrativeUltraProcessed, NarrativeMonoculture} {
		if _, ok := db.narratives[key]; !ok {
			return nil, eris.Errorf("tierdb: narrative %q is missing", key)
		}
	}

	for i, raw := range tiers.Entries {
		e, err := db.buildEntry(raw)
		if err != nil {
			return nil, eris.Wrapf(err, "tierdb: entry %d", i)
		}
		for _, other := range db.byName[e.Name] {
			if overlaps(other, e) {
				return nil, eris.Errorf("tierdb: duplicate entry %q", e.Name)
			}
		}
		db.entries = append(db.entries, e)
		db.byName[e.Name] = append(db.byName[e.Name], e)
	}

	for i, p := range owners.Parents {
		if strings.TrimSpace(p.Name) == "" {
			return nil, eris.Errorf("tierdb: parent %d has no name", i)
		}
		if p.Penalty < 0 || p.Penalty > 100 {
			return nil, eris.Errorf("tierdb: parent %q penalty %d out of range", p.Name, p.Penalty)
		}
		db.parents = append(db.parents, p)
	}
	return db, nil
}

func readYAML(path, embedded string, out any) error {
	var (
		data []byte
		err  error
	)
	if path != "" {
		data, err = os.ReadFile(path)
		if err != nil {
			return eris.Wrapf(err, "tierdb: read %s", path)
		}
	} else {
		data, err = dataFS.ReadFile(embedded)
		if err != nil {
			return eris.Wrapf(err, "tierdb: read embedded %s", embedded)
		}
		path = embedded
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return eris.Wrapf(err, "tierdb: parse %s", path)
	}
	return nil
}

func (db *DB) buildEntry(raw rawEntry) (*Entry, error) {
	name := Normalize(raw.Name)
	if name == "" {
		return nil, eris.New("name is empty")
	}
	e := &Entry{
		Name:          name,
		Reason:        raw.Reason,
		Category:      raw.Category,
		Source:        raw.Source,
		Concerns:      raw.Concerns,
		Narrative:     raw.Narrative,
		Certification: raw.Certification,
	}
	switch {
	case raw.Tier != "" && raw.Hazard != nil:
		return nil, eris.Errorf("%q declares both tier and hazard", name)
	case raw.Tier != "":
		g, err := model.ParseGrade(raw.Tier)
		if err != nil {
			return nil, eris.Wrapf(err, "%q", name)
		}
		e.Tier = g
		e.Hazard = g.BaselineHazard()
	case raw.Hazard != nil:
		if *raw.Hazard < 0 || *raw.Hazard > 100 {
			return nil, eris.Errorf("%q hazard %d out of range", name, *raw.Hazard)
		}
		e.Hazard = *raw.Hazard
		e.Tier = model.TierForHazard(e.Hazard)
	default:
		return nil, eris.Errorf("%q declares neither tier nor hazard", name)
	}
	if e.Narrative != "" {
		if _, ok := db.narratives[e.Narrative]; !ok {
			return nil, eris.Errorf("%q references unknown narrative %q", name, e.Narrative)
		}
	}
	for _, c := range raw.Categories {
		cat, err := model.ParseCategory(c)
		if err != nil {
			return nil, eris.Wrapf(err, "%q", name)
		}
		e.Categories = append(e.Categories, cat)
	}
	if e.Reason == "" {
		e.Reason = fmt.Sprintf("Curated %s entry.", e.Tier)
	}
	return e, nil
}

// overlaps reports whether two entries with the same name could both match
// one product category.
func overlaps(a, b *Entry) bool {
	if len(a.Categories) == 0 || len(b.Categories) == 0 {
		return true
	}
	for _, c := range a.Categories {
		if b.AppliesTo(c) {
			return true
		}
	}
	return false
}

func normalizeVocab(v Vocabulary) Vocabulary {
	norm := func(terms []string) []string {
		out := make([]string, 0, len(terms))
		for _, t := range terms {
			if n := Normalize(t); n != "" {
				out = append(out, n)
			}
		}
		return out
	}
	return Vocabulary{
		ProcessingMarkers: norm(v.ProcessingMarkers),
		MonocultureTerms:  norm(v.MonocultureTerms),
		Certifications:    norm(v.Certifications),
		ClaimTerms:        norm(v.ClaimTerms),
	}
}

// Version identifies the loaded tier data.
func (db *DB) Version() string { return db.version }

// Lookup finds the entry for name that applies to category. Matching is exact
// on the normalized name.
func (db *DB) Lookup(name string, category model.Category) (*Entry, bool) {
	for _, e := range db.byName[Normalize(name)] {
		if e.AppliesTo(category) {
			return e, true
		}
	}
	return nil, false
}

// Search finds an entry by exact name, then by containment in either
// direction. It ignores category restrictions and is meant for browsing.
func (db *DB) Search(name string) (entry *Entry, matchedAs string, ok bool) {
	key := Normalize(name)
	if key == "" {
		return nil, "", false
	}
	if es := db.byName[key]; len(es) > 0 {
		return es[0], key, true
	}
	for _, e := range db.entries {
		if strings.Contains(key, e.Name) || strings.Contains(e.Name, key) {
			return e, e.Name, true
		}
	}
	return nil, "", false
}

// Narrative returns the narrative text stored under key.
func (db *DB) Narrative(key string) (string, bool) {
	text, ok := db.narratives[key]
	return text, ok
}

// Vocabulary returns the normalized term lists.
func (db *DB) Vocabulary() Vocabulary { return db.vocab }

// Parents returns the ownership table in file order.
func (db *DB) Parents() []*Parent { return db.parents }

// MatchBrand finds the parent company of brand. An exact match on the parent
// or one of its brands wins; otherwise the first parent with a brand appearing
// as whole words inside brand is returned.
func (db *DB) MatchBrand(brand string) (*Parent, bool) {
	key := Normalize(brand)
	if key == "" {
		return nil, false
	}
	for _, p := range db.parents {
		if Normalize(p.Name) == key {
			return p, true
		}
		for _, b := range p.Brands {
			if Normalize(b) == key {
				return p, true
			}
		}
	}
	for _, p := range db.parents {
		if containsWord(key, Normalize(p.Name)) {
			return p, true
		}
		for _, b := range p.Brands {
			if containsWord(key, Normalize(b)) {
				return p, true
			}
		}
	}
	return nil, false
}
