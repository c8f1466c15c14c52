package scoring

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/safescan/internal/model"
	"github.com/sells-group/safescan/internal/tierdb"
)

// Engine scores scan requests. It is safe for concurrent use and keeps no
// reference to any request or result.
type Engine struct {
	catalog    Catalog
	classifier *Classifier
	profiles   *Profiles
}

// Option configures an Engine.
type Option func(*engineOptions)

type engineOptions struct {
	unknownHazard int
	profiles      *Profiles
}

// WithUnknownHazard overrides DefaultUnknownHazard.
func WithUnknownHazard(h int) Option {
	return func(o *engineOptions) { o.unknownHazard = h }
}

// WithProfiles overrides the category weighting profiles.
func WithProfiles(p *Profiles) Option {
	return func(o *engineOptions) {
		if p != nil {
			o.profiles = p
		}
	}
}

// NewEngine builds an engine over catalog.
func NewEngine(catalog Catalog, opts ...Option) *Engine {
	o := engineOptions{unknownHazard: DefaultUnknownHazard, profiles: DefaultProfiles()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Engine{
		catalog:    catalog,
		classifier: NewClassifier(catalog, o.unknownHazard),
		profiles:   o.profiles,
	}
}

// Classifier exposes the engine's classifier.
func (e *Engine) Classifier() *Classifier { return e.classifier }

// Score validates req and produces its ScoreResult. The only error is a
// malformed request, which wraps model.ErrInvalidRequest.
func (e *Engine) Score(req model.ScanRequest) (*model.ScoreResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	vocab := e.catalog.Vocabulary()

	names := make([]string, 0, len(req.Ingredients))
	for _, name := range req.Ingredients {
		if strings.TrimSpace(name) != "" {
			names = append(names, name)
		}
	}
	// Names that normalize alike keep the most hazardous estimate.
	estimates := make(map[string]float64, len(req.ExternalHazardEstimates))
	for name, est := range req.ExternalHazardEstimates {
		key := tierdb.Normalize(name)
		if prev, ok := estimates[key]; !ok || est > prev {
			estimates[key] = est
		}
	}

	var (
		records []model.IngredientRecord
		alerts  []string
		truths  = newTruths()
	)
	for _, name := range names {
		var est *float64
		if v, ok := estimates[tierdb.Normalize(name)]; ok {
			est = &v
		}
		rec := e.classifier.Classify(name, req.Category, est)
		switch rec.Tier {
		case model.GradeF:
			alerts = append(alerts, "AVOID: "+rec.Name)
		case model.GradeD:
			alerts = append(alerts, "LIMIT: "+rec.Name)
		}
		truths.add(rec.HiddenTruth)
		records = append(records, rec)
	}

	markers := MatchTerms(names, vocab.ProcessingMarkers)
	switch n := len(markers); {
	case n >= ProcessingUltraCount:
		alerts = append(alerts, fmt.Sprintf("ULTRA-PROCESSED: %d processing markers detected", n))
		if text, ok := e.catalog.Narrative(tierdb.NarrativeUltraProcessed); ok {
			truths.add(strings.ReplaceAll(text, "{count}", strconv.Itoa(n)))
		}
	case n >= ProcessingHighlyCount:
		alerts = append(alerts, fmt.Sprintf("HIGHLY PROCESSED: %d processing markers", n))
	}

	corp := e.corporate(req.Brand)
	if corp != nil {
		alerts = append(alerts, "OWNED BY: "+corp.ParentCompany)
		truths.add(corporateNarrative(corp))
	}

	monoculture := MatchTerms(names, vocab.MonocultureTerms)
	if n := len(monoculture); n >= MonocultureAlertCount {
		alerts = append(alerts, fmt.Sprintf("MONOCULTURE ALERT: %d industrial ingredients", n))
		if text, ok := e.catalog.Narrative(tierdb.NarrativeMonoculture); ok {
			truths.add(text)
		}
	}
	certs := FindCertifications(append(append([]string{}, req.PositiveClaims...), names...), vocab.Certifications)

	dims := ScoreDimensions(DimensionInput{
		Ingredients:       records,
		ProcessingMarkers: markers,
		Monoculture:       monoculture,
		Certifications:    certs,
		Corporate:         corp,
	})

	profile := e.profiles.For(req.Category)
	condition := req.Condition.Value()
	claims := RecognizeClaims(req.PositiveClaims, vocab)
	agg := Aggregate(dims, profile, condition, records, len(claims))
	if agg.Capped {
		alerts = append(alerts, fmt.Sprintf("SCORE CAPPED: Product cannot score above %s due to %s-grade ingredients",
			agg.WorstTier, agg.WorstTier))
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Tier.WorseThan(records[j].Tier)
	})

	result := &model.ScoreResult{
		ProductName:         req.ProductName,
		Brand:               req.Brand,
		Category:            req.Category,
		OverallScore:        agg.Overall,
		Grade:               agg.Grade,
		Profile:             profile.Name,
		DimensionScores:     dims,
		BonusApplied:        agg.Bonus,
		ScoreCap:            agg.Cap,
		Ingredients:         records,
		Alerts:              nonNil(alerts),
		HiddenTruths:        nonNil(truths.list),
		CorporateDisclosure: corp,
		Recommendation:      Recommendation(agg.Grade, req.Condition),
	}
	if result.Ingredients == nil {
		result.Ingredients = []model.IngredientRecord{}
	}
	if profile.UsesCondition() || req.Condition != nil {
		result.ConditionScore = &condition
	}

	zap.L().Debug("scoring: scored product",
		zap.String("product", req.ProductName),
		zap.String("profile", profile.Name),
		zap.Int("overall", agg.Overall),
		zap.Stringer("grade", agg.Grade),
		zap.Bool("capped", agg.Capped),
	)
	return result, nil
}

func (e *Engine) corporate(brand string) *model.CorporateDisclosure {
	if strings.TrimSpace(brand) == "" {
		return nil
	}
	parent, ok := e.catalog.MatchBrand(brand)
	if !ok {
		return nil
	}
	return &model.CorporateDisclosure{
		Brand:         brand,
		ParentCompany: parent.Name,
		Penalty:       parent.Penalty,
		Issues:        append([]string{}, parent.Issues...),
		NotableBrands: append([]string{}, parent.NotableBrands...),
	}
}

func corporateNarrative(corp *model.CorporateDisclosure) string {
	var b strings.Builder
	b.WriteString("CORPORATE OWNERSHIP ALERT\n\n")
	fmt.Fprintf(&b, "%s is owned by %s.\n", corp.Brand, corp.ParentCompany)
	if len(corp.Issues) > 0 {
		b.WriteString("\nPARENT COMPANY ISSUES:\n")
		for _, issue := range corp.Issues {
			fmt.Fprintf(&b, "• %s\n", issue)
		}
	}
	if len(corp.NotableBrands) > 0 {
		notable := corp.NotableBrands
		if len(notable) > 4 {
			notable = notable[:4]
		}
		fmt.Fprintf(&b, "\nDID YOU KNOW?\n%s also makes: %s\n", corp.ParentCompany, strings.Join(notable, ", "))
	}
	return strings.TrimRight(b.String(), "\n")
}

// Recommendation returns consumer guidance for a final grade.
func Recommendation(g model.Grade, condition *model.Condition) string {
	var rec string
	switch g {
	case model.GradeAPlus, model.GradeA:
		rec = "This product appears to be safe with no significant toxic ingredients detected."
	case model.GradeB:
		rec = "This product is relatively safe but contains some ingredients of mild concern."
	case model.GradeC:
		rec = "This product contains some ingredients of moderate concern. Consider alternatives."
	case model.GradeD:
		rec = "This product contains several concerning ingredients. We recommend finding a safer alternative."
	default:
		rec = "This product contains highly toxic ingredients. We strongly recommend avoiding this product."
	}
	if condition.Worn() {
		rec += " Additionally, the visible wear on this item increases safety risks."
	}
	return rec
}

type truthList struct {
	seen map[string]bool
	list []string
}

func newTruths() *truthList { return &truthList{seen: map[string]bool{}} }

func (t *truthList) add(text string) {
	if text == "" || t.seen[text] {
		return
	}
	t.seen[text] = true
	t.list = append(t.list, text)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
