package anki

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// ModelType distinguishes standard note types from cloze ones.
type ModelType int

const (
	Standard ModelType = 0
	Cloze    ModelType = 1
)

const (
	defaultFont      = "Liberation Sans"
	defaultFontSize  = 20
	defaultCSS       = ".card {\n font-family: arial;\n font-size: 20px;\n text-align: center;\n color: black;\n background-color: white;\n}\n"
	defaultLatexPre  = "\\documentclass[12pt]{article}\n\\special{papersize=3in,5in}\n\\usepackage[utf8]{inputenc}\n\\usepackage{amssymb,amsmath}\n\\pagestyle{empty}\n\\setlength{\\parindent}{0in}\n\\begin{document}\n"
	defaultLatexPost = "\\end{document}"
)

// Field is one field of a model.
type Field struct {
	Name   string
	Font   string
	Size   int
	RTL    bool
	Sticky bool
}

// Template is one card template of a model. Each template yields one card
// per note.
type Template struct {
	Name  string
	QFmt  string
	AFmt  string
	BQFmt string
	BAFmt string
}

// Requirement states which fields must be non-empty for a template to
// produce a card.
type Requirement struct {
	Ord    int
	Kind   string // "any", "all" or "none"
	Fields []int
}

// MarshalJSON encodes the requirement as [ord, kind, [fields...]].
func (r Requirement) MarshalJSON() ([]byte, error) {
	fields := r.Fields
	if fields == nil {
		fields = []int{}
	}
	return json.Marshal([]any{r.Ord, r.Kind, fields})
}

// Model is a note type. Models are shared by notes and written once per
// package regardless of how many notes reference them.
type Model struct {
	ID        int64
	Name      string
	Fields    []Field
	Templates []Template
	CSS       string
	Type      ModelType
	// SortField is the index of the field shown in the browser and used for
	// duplicate detection.
	SortField int
	LatexPre  string
	LatexPost string
	// Req overrides the requirements derived from the front templates.
	Req []Requirement
}

// NewModel returns a standard model with default styling.
func NewModel(id int64, name string, fields []Field, templates []Template) *Model {
	return &Model{
		ID:        id,
		Name:      name,
		Fields:    fields,
		Templates: templates,
		CSS:       defaultCSS,
		LatexPre:  defaultLatexPre,
		LatexPost: defaultLatexPost,
	}
}

// FieldIndex returns the ordinal of the named field, or -1.
func (m *Model) FieldIndex(name string) int {
	for i, f := range m.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

type fieldDBEntry struct {
	Font   string   `json:"font"`
	Media  []string `json:"media"`
	Name   string   `json:"name"`
	Ord    int      `json:"ord"`
	RTL    bool     `json:"rtl"`
	Size   int      `json:"size"`
	Sticky bool     `json:"sticky"`
}

type templateDBEntry struct {
	AFmt  string `json:"afmt"`
	BAFmt string `json:"bafmt"`
	BQFmt string `json:"bqfmt"`
	Did   *int64 `json:"did"`
	Name  string `json:"name"`
	Ord   int    `json:"ord"`
	QFmt  string `json:"qfmt"`
}

// ModelDBEntry is the legacy JSON descriptor of a model stored in the models
// blob of the collection row.
type ModelDBEntry struct {
	CSS       string            `json:"css"`
	Did       int64             `json:"did"`
	Flds      []fieldDBEntry    `json:"flds"`
	ID        string            `json:"id"`
	LatexPost string            `json:"latexPost"`
	LatexPre  string            `json:"latexPre"`
	LatexSVG  bool              `json:"latexsvg"`
	Mod       int64             `json:"mod"`
	Name      string            `json:"name"`
	Req       []Requirement     `json:"req"`
	Sortf     int               `json:"sortf"`
	Tags      []string          `json:"tags"`
	Tmpls     []templateDBEntry `json:"tmpls"`
	Type      ModelType         `json:"type"`
	USN       int64             `json:"usn"`
	Vers      []int             `json:"vers"`
}

// ToDBEntry builds the descriptor of m as owned by deckID at timestamp.
func (m *Model) ToDBEntry(timestamp float64, deckID int64) (ModelDBEntry, error) {
	if len(m.Fields) == 0 {
		return ModelDBEntry{}, fmt.Errorf("model %d has no fields", m.ID)
	}
	if len(m.Templates) == 0 {
		return ModelDBEntry{}, fmt.Errorf("model %d has no templates", m.ID)
	}
	if m.SortField < 0 || m.SortField >= len(m.Fields) {
		return ModelDBEntry{}, fmt.Errorf("model %d sort field %d out of range", m.ID, m.SortField)
	}

	req := m.Req
	if req == nil {
		req = m.deriveRequirements()
	}

	flds := make([]fieldDBEntry, len(m.Fields))
	for i, f := range m.Fields {
		font, size := f.Font, f.Size
		if font == "" {
			font = defaultFont
		}
		if size == 0 {
			size = defaultFontSize
		}
		flds[i] = fieldDBEntry{Font: font, Media: []string{}, Name: f.Name, Ord: i, RTL: f.RTL, Size: size, Sticky: f.Sticky}
	}
	tmpls := make([]templateDBEntry, len(m.Templates))
	for i, t := range m.Templates {
		tmpls[i] = templateDBEntry{AFmt: t.AFmt, BAFmt: t.BAFmt, BQFmt: t.BQFmt, Name: t.Name, Ord: i, QFmt: t.QFmt}
	}

	return ModelDBEntry{
		CSS:       m.CSS,
		Did:       deckID,
		Flds:      flds,
		ID:        strconv.FormatInt(m.ID, 10),
		LatexPost: m.LatexPost,
		LatexPre:  m.LatexPre,
		Mod:       int64(timestamp),
		Name:      m.Name,
		Req:       req,
		Sortf:     m.SortField,
		Tags:      []string{},
		Tmpls:     tmpls,
		Type:      m.Type,
		USN:       -1,
		Vers:      []int{},
	}, nil
}

var fieldRef = regexp.MustCompile(`{{([^{}]+)}}`)

// Special template names that never refer to a note field.
var builtinRefs = map[string]bool{
	"FrontSide": true, "Tags": true, "Type": true, "Deck": true,
	"Subdeck": true, "Card": true, "CardFlag": true,
}

// deriveRequirements approximates the card generation rules: a template
// needs any of the fields its front side references. Templates referencing
// no known field fall back to the sort field.
func (m *Model) deriveRequirements() []Requirement {
	req := make([]Requirement, len(m.Templates))
	for i, t := range m.Templates {
		ords := m.referencedFields(t.QFmt)
		if len(ords) == 0 {
			ords = []int{m.SortField}
		}
		req[i] = Requirement{Ord: i, Kind: "any", Fields: ords}
	}
	return req
}

func (m *Model) referencedFields(qfmt string) []int {
	seen := make(map[int]bool)
	var ords []int
	for _, match := range fieldRef.FindAllStringSubmatch(qfmt, -1) {
		name := strings.TrimSpace(match[1])
		// Section markers and filters: {{#F}}, {{^F}}, {{/F}}, {{cloze:F}}, {{type:F}}.
		name = strings.TrimLeft(name, "#^/")
		if idx := strings.LastIndex(name, ":"); idx >= 0 {
			name = name[idx+1:]
		}
		if builtinRefs[name] {
			continue
		}
		ord := m.FieldIndex(name)
		if ord < 0 || seen[ord] {
			continue
		}
		seen[ord] = true
		ords = append(ords, ord)
	}
	return ords
}
