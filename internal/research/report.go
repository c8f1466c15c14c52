package research

import (
	"strings"
	"unicode"

	"github.com/rotisserie/eris"

	"github.com/sells-group/safescan/internal/model"
)

// ErrMalformedReport is returned when generated text has no usable content.
var ErrMalformedReport = eris.New("research: malformed report")

// ParseReport splits generated text on "## " headings into the canonical
// sections. Headings may carry numbering ("## 3. INGREDIENT DEEP DIVE") and
// any case. Unknown headings are dropped and missing sections stay empty, so
// the result always has every canonical title in order. Text without a single
// recognized heading is malformed.
func ParseReport(text string) (model.Sections, error) {
	if strings.TrimSpace(text) == "" {
		return nil, eris.Wrap(ErrMalformedReport, "empty generation")
	}

	canonical := make(map[string]string, len(model.ReportSectionTitles))
	for _, title := range model.ReportSectionTitles {
		canonical[headingKey(title)] = title
	}

	sections := model.NewSections()
	var (
		current string
		body    []string
		found   int
	)
	flush := func() {
		if current != "" {
			sections.Set(current, strings.TrimSpace(strings.Join(body, "\n")))
		}
		body = body[:0]
	}

	for _, line := range strings.Split(text, "\n") {
		if heading, ok := strings.CutPrefix(strings.TrimRight(line, "\r"), "## "); ok {
			flush()
			current = canonical[headingKey(heading)]
			if current != "" {
				found++
			}
			continue
		}
		if current != "" {
			body = append(body, strings.TrimRight(line, "\r"))
		}
	}
	flush()
	if found == 0 {
		return nil, eris.Wrap(ErrMalformedReport, "no recognized section headings")
	}
	return sections, nil
}

// headingKey lower-cases a heading and strips numbering and punctuation.
func headingKey(heading string) string {
	heading = strings.TrimSpace(heading)
	heading = strings.TrimLeftFunc(heading, func(r rune) bool {
		return unicode.IsDigit(r) || r == '.' || r == ')' || unicode.IsSpace(r)
	})
	heading = strings.Trim(heading, "*# ")
	return strings.Join(strings.Fields(strings.ToLower(heading)), " ")
}
