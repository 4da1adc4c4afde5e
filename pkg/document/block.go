package document

import (
	"github.com/stateful/labdoc/pkg/document/chart"
	"github.com/stateful/labdoc/pkg/document/table"
)

type Type string

const (
	TypeHeading   Type = "heading"
	TypeParagraph Type = "paragraph"
	TypeCode      Type = "code"
	TypeMath      Type = "math"
	TypeImage     Type = "image"
	TypeTable     Type = "table"
	TypeChart     Type = "chart"

	// TypeList is only found in old documents. Upgrade rewrites list
	// blocks into paragraphs.
	TypeList Type = "list"
)

// Types lists the block types that can be created.
var Types = []Type{TypeHeading, TypeParagraph, TypeCode, TypeMath, TypeImage, TypeTable, TypeChart}

// Valid reports whether t is a current block type.
func (t Type) Valid() bool {
	for _, v := range Types {
		if v == t {
			return true
		}
	}
	return false
}

// HasMarkup reports whether blocks of type t hold inline markup.
func (t Type) HasMarkup() bool {
	return t == TypeHeading || t == TypeParagraph
}

// HasPayload reports whether blocks of type t hold a JSON payload.
func (t Type) HasPayload() bool {
	return t == TypeTable || t == TypeChart
}

// Block is one addressable unit of a document. Table and chart payloads
// are stored JSON-encoded inside Content.
type Block struct {
	ID      string `json:"id" validate:"required"`
	Type    Type   `json:"type" validate:"required,oneof=heading paragraph code math image table chart"`
	Content string `json:"content"`

	Level    int    `json:"level,omitempty" validate:"omitempty,min=1,max=6"`
	Language string `json:"language,omitempty"`
	Caption  string `json:"caption,omitempty"`
	Width    string `json:"width,omitempty"`

	MathFormat string   `json:"mathFormat,omitempty" validate:"omitempty,oneof=latex typst"`
	MathLatex  string   `json:"mathLatex,omitempty"`
	MathTypst  string   `json:"mathTypst,omitempty"`
	MathLines  []string `json:"mathLines,omitempty"`
	MathBrace  bool     `json:"mathBrace,omitempty"`

	LineSpacing *float64 `json:"lineSpacing,omitempty" validate:"omitempty,gt=0"`
}

// Clone returns a deep copy of b.
func (b Block) Clone() Block {
	if b.MathLines != nil {
		b.MathLines = append([]string(nil), b.MathLines...)
	}
	if b.LineSpacing != nil {
		v := *b.LineSpacing
		b.LineSpacing = &v
	}
	return b
}

// TablePayload parses the table payload of a table block.
func (b Block) TablePayload() (table.Payload, bool) {
	if b.Type != TypeTable {
		return table.Payload{}, false
	}
	return table.Parse(b.Content), true
}

// ChartData parses the chart definition of a chart block.
func (b Block) ChartData() (chart.Data, bool) {
	if b.Type != TypeChart {
		return chart.Data{}, false
	}
	return chart.Parse(b.Content), true
}

// DefaultContent returns the content a new block of type t starts with.
func DefaultContent(t Type) string {
	switch t {
	case TypeTable:
		return table.Marshal(table.Default())
	case TypeChart:
		return chart.Marshal(chart.Default())
	default:
		return ""
	}
}

// NewBlock returns an empty block of type t.
func NewBlock(id string, t Type) Block {
	b := Block{ID: id, Type: t, Content: DefaultContent(t)}
	if t == TypeHeading {
		b.Level = 1
	}
	return b
}

// Patch is a partial update of a block. Nil fields are left unchanged.
type Patch struct {
	Type        *Type
	Content     *string
	Level       *int
	Language    *string
	Caption     *string
	Width       *string
	MathFormat  *string
	MathLatex   *string
	MathTypst   *string
	MathLines   []string
	MathBrace   *bool
	LineSpacing *float64
}

// ContentPatch returns a patch replacing the content.
func ContentPatch(content string) Patch {
	return Patch{Content: &content}
}

// TypePatch returns a patch switching the type.
func TypePatch(t Type) Patch {
	return Patch{Type: &t}
}

// Apply returns b with p applied. A type switch is applied first, so
// fields set in the same patch override its resets.
func (p Patch) Apply(b Block) Block {
	b = b.Clone()
	if p.Type != nil && *p.Type != b.Type {
		b = switchType(b, *p.Type)
	}
	if p.Content != nil {
		b.Content = *p.Content
	}
	if p.Level != nil {
		b.Level = *p.Level
	}
	if p.Language != nil {
		b.Language = *p.Language
	}
	if p.Caption != nil {
		b.Caption = *p.Caption
	}
	if p.Width != nil {
		b.Width = *p.Width
	}
	if p.MathFormat != nil {
		b.MathFormat = *p.MathFormat
	}
	if p.MathLatex != nil {
		b.MathLatex = *p.MathLatex
	}
	if p.MathTypst != nil {
		b.MathTypst = *p.MathTypst
	}
	if p.MathLines != nil {
		b.MathLines = append([]string(nil), p.MathLines...)
	}
	if p.MathBrace != nil {
		b.MathBrace = *p.MathBrace
	}
	if p.LineSpacing != nil {
		v := *p.LineSpacing
		b.LineSpacing = &v
	}
	return b
}

// switchType changes the type of b. Table and chart blocks get a fresh
// default payload and math blocks start with empty math fields. Content is
// not converted between types; payload content is dropped when leaving a
// payload type.
func switchType(b Block, t Type) Block {
	from := b.Type
	b.Type = t

	switch t {
	case TypeMath:
		b.MathFormat = ""
		b.MathLatex = ""
		b.MathTypst = ""
		b.MathLines = nil
		b.MathBrace = false
	case TypeTable, TypeChart:
		b.Content = DefaultContent(t)
	}
	if from.HasPayload() && !t.HasPayload() {
		b.Content = ""
	}

	if t == TypeHeading {
		if b.Level < 1 || b.Level > 6 {
			b.Level = 1
		}
	} else {
		b.Level = 0
	}
	return b
}
