package model

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
)

// ReportSectionTitles are the seven sections of every research report, in
// presentation order.
var ReportSectionTitles = [...]string{
	"Executive Summary",
	"The Company Behind It",
	"Ingredient Deep Dive",
	"Supply Chain Investigation",
	"Regulatory History",
	"Better Alternatives",
	"Action Items For Consumer",
}

// ResearchReport is the structured output of a completed research job.
type ResearchReport struct {
	ProductName string    `json:"product_name"`
	Brand       string    `json:"brand,omitempty"`
	Category    Category  `json:"category"`
	Sections    Sections  `json:"sections"`
	FullText    string    `json:"full_text"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Section is one titled block of report narrative.
type Section struct {
	Title string
	Body  string
}

// Sections is an ordered title → body mapping. It serializes as a JSON object
// whose keys keep their order.
type Sections []Section

// NewSections returns the seven canonical sections with empty bodies.
func NewSections() Sections {
	s := make(Sections, len(ReportSectionTitles))
	for i, title := range ReportSectionTitles {
		s[i] = Section{Title: title}
	}
	return s
}

// Get returns the body stored under title.
func (s Sections) Get(title string) (string, bool) {
	for _, sec := range s {
		if sec.Title == title {
			return sec.Body, true
		}
	}
	return "", false
}

// Set replaces the body of an existing title or appends a new section.
func (s *Sections) Set(title, body string) {
	for i := range *s {
		if (*s)[i].Title == title {
			(*s)[i].Body = body
			return
		}
	}
	*s = append(*s, Section{Title: title, Body: body})
}

// Titles returns the section titles in order.
func (s Sections) Titles() []string {
	out := make([]string, len(s))
	for i, sec := range s {
		out[i] = sec.Title
	}
	return out
}

// MarshalJSON writes the sections as an ordered JSON object.
func (s Sections) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, sec := range s {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(sec.Title)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(sec.Body)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads an object back into sections, preserving key order.
func (s *Sections) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return eris.Wrap(err, "model: decode sections")
	}
	if tok == nil {
		*s = nil
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return eris.New("model: sections must be a JSON object")
	}
	var out Sections
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return eris.Wrap(err, "model: decode section title")
		}
		title, ok := keyTok.(string)
		if !ok {
			return eris.New("model: section title must be a string")
		}
		var body string
		if err := dec.Decode(&body); err != nil {
			return eris.Wrapf(err, "model: decode section %q", title)
		}
		out = append(out, Section{Title: title, Body: body})
	}
	if _, err := dec.Token(); err != nil {
		return eris.Wrap(err, "model: decode sections end")
	}
	*s = out
	return nil
}
