package research

import (
	"fmt"
	"strings"

	"github.com/sells-group/safescan/internal/model"
)

// SystemPrompt frames the generation call.
const SystemPrompt = "You are SafeScan's deep research agent. You investigate consumer products " +
	"on behalf of the person holding them and favor consumer protection over corporate reputation."

const reportInstructions = `Write a report with exactly SEVEN sections, each introduced by a "## " heading
with the section number and title shown below. Be direct and honest.

## 1. EXECUTIVE SUMMARY
One paragraph: should this person buy this product, and why or why not?

## 2. THE COMPANY BEHIND IT
Parent company and ownership chain, major controversies, lobbying and political
spending where known, recent lawsuits or settlements, an overall ethics assessment.

## 3. INGREDIENT DEEP DIVE
For each concerning ingredient: chemical name, its role in this product, key
research findings with citations where possible, where it is banned or allowed,
and why it remains legal in the US.

## 4. SUPPLY CHAIN INVESTIGATION
Likely sourcing of key ingredients, known suppliers and their practices, labor
concerns, environmental impact, monoculture versus sustainable farming.

## 5. REGULATORY HISTORY
FDA warning letters, recalls, FTC advertising actions and state-level actions.
Say so plainly if nothing significant was found.

## 6. BETTER ALTERNATIVES
Three to five genuinely safer, reasonably priced alternatives and why each is better.

## 7. ACTION ITEMS FOR CONSUMER
Substitutes available today, brands to support, how to read labels to avoid
similar problems, resources for learning more, and one simple next step.

Guidelines: cite sources for claims, say when information is unavailable,
separate documented facts from reasonable concerns, avoid fear-mongering
without minimizing real risks, and keep the advice actionable.

Generate the complete report now.`

// dossier accumulates what each stage learns before the single generation
// call. It is owned by one runner and never shared.
type dossier struct {
	req   model.ResearchRequest
	score *model.ScoreResult

	findings []finding
}

type finding struct {
	heading string
	lines   []string
}

func newDossier(req model.ResearchRequest) *dossier {
	return &dossier{req: req}
}

func (d *dossier) add(heading string, lines ...string) {
	if len(lines) == 0 {
		return
	}
	d.findings = append(d.findings, finding{heading: heading, lines: lines})
}

// Prompt renders the accumulated payload.
func (d *dossier) Prompt() string {
	brand := d.req.Brand
	if brand == "" {
		brand = "Unknown"
	}

	var b strings.Builder
	b.WriteString("Investigate this product in depth:\n\n")
	fmt.Fprintf(&b, "**Product**: %s\n", d.req.ProductName)
	fmt.Fprintf(&b, "**Brand**: %s\n", brand)
	fmt.Fprintf(&b, "**Category**: %s\n", d.req.Category)
	fmt.Fprintf(&b, "**Ingredients**: %s\n", strings.Join(d.req.Ingredients, ", "))

	if len(d.findings) > 0 {
		b.WriteString("\nSafeScan has already established the following. Build on it rather than repeating it.\n")
		for _, f := range d.findings {
			fmt.Fprintf(&b, "\n### %s\n", f.heading)
			for _, line := range f.lines {
				fmt.Fprintf(&b, "- %s\n", line)
			}
		}
	}

	b.WriteString("\n")
	b.WriteString(reportInstructions)
	return b.String()
}

func scoreFindings(score *model.ScoreResult) []string {
	lines := []string{
		fmt.Sprintf("Overall safety score %d/100 (grade %s)", score.OverallScore, score.Grade),
		fmt.Sprintf("Ingredient safety %d, processing level %d",
			score.DimensionScores.IngredientSafety, score.DimensionScores.ProcessingLevel),
	}
	for _, rec := range score.Ingredients {
		if rec.Tier.WorseThan(model.GradeB) {
			lines = append(lines, fmt.Sprintf("%s: grade %s, hazard %d/100. %s", rec.Name, rec.Tier, rec.HazardScore, rec.Reason))
		}
	}
	return lines
}

func corporateFindings(score *model.ScoreResult) []string {
	corp := score.CorporateDisclosure
	if corp == nil {
		return []string{"No parent company on record for this brand; verify independently."}
	}
	lines := []string{fmt.Sprintf("%s is owned by %s", corp.Brand, corp.ParentCompany)}
	for _, issue := range corp.Issues {
		lines = append(lines, "Known issue: "+issue)
	}
	if len(corp.NotableBrands) > 0 {
		lines = append(lines, "Sister brands: "+strings.Join(corp.NotableBrands, ", "))
	}
	return lines
}

func supplyFindings(score *model.ScoreResult) []string {
	lines := []string{fmt.Sprintf("Supply chain score %d/100", score.DimensionScores.SupplyChain)}
	for _, alert := range score.Alerts {
		if strings.HasPrefix(alert, "MONOCULTURE") {
			lines = append(lines, alert)
		}
	}
	return lines
}

func regulatoryFindings(score *model.ScoreResult) []string {
	var lines []string
	for _, rec := range score.Ingredients {
		if rec.Tier == model.GradeF || rec.Tier == model.GradeD {
			lines = append(lines, fmt.Sprintf("Check regulatory actions involving %s", rec.Name))
		}
	}
	for _, alert := range score.Alerts {
		if strings.HasPrefix(alert, "SCORE CAPPED") {
			lines = append(lines, alert)
		}
	}
	return lines
}

func alternativeFindings(score *model.ScoreResult) []string {
	var avoid []string
	for _, rec := range score.Ingredients {
		if rec.Tier.WorseThan(model.GradeC) {
			avoid = append(avoid, rec.Name)
		}
	}
	if len(avoid) == 0 {
		return nil
	}
	return []string{"Alternatives should be free of: " + strings.Join(avoid, ", ")}
}
