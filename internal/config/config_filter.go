package config

import (
	"strings"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/pkg/errors"

	"github.com/stateful/labdoc/pkg/document"
	"github.com/stateful/labdoc/pkg/document/markup"
)

const (
	FilterTypeBlock    = "block"
	FilterTypeDocument = "document"
)

type Filter struct {
	Type      string `yaml:"type" validate:"oneof=block document"`
	Condition string `yaml:"condition" validate:"required"`

	once       sync.Once
	program    *vm.Program
	compileErr error
}

// FilterDocumentEnv is the environment document filters are evaluated in.
type FilterDocumentEnv struct {
	Title  string `expr:"title"`
	Blocks int    `expr:"blocks"`
}

// FilterBlockEnv is the environment block filters are evaluated in.
//
// The `expr` tag is used to map the field to the corresponding option.
// Without it, all variables start with capitalized letters.
type FilterBlockEnv struct {
	ID       string `expr:"id"`
	Index    int    `expr:"index"`
	Type     string `expr:"type"`
	Content  string `expr:"content"`
	Text     string `expr:"text"`
	Level    int    `expr:"level"`
	Language string `expr:"language"`
	Caption  string `expr:"caption"`
	HasMath  bool   `expr:"has_math"`
	IsList   bool   `expr:"is_list"`

	TableRows int    `expr:"table_rows"`
	TableCols int    `expr:"table_cols"`
	ChartType string `expr:"chart_type"`
}

// NewFilterBlockEnv describes block b at position index.
func NewFilterBlockEnv(b document.Block, index int) FilterBlockEnv {
	env := FilterBlockEnv{
		ID:       b.ID,
		Index:    index,
		Type:     string(b.Type),
		Content:  b.Content,
		Level:    b.Level,
		Language: b.Language,
		Caption:  b.Caption,
	}
	switch {
	case b.Type.HasMarkup():
		env.Text = markup.PlainText(b.Content)
		for _, line := range markup.Parse(b.Content).Lines {
			if line.Marker.Kind != markup.NoMarker {
				env.IsList = true
			}
			for _, in := range line.Inlines {
				if _, ok := in.(markup.Math); ok {
					env.HasMath = true
				}
			}
		}
	case b.Type == document.TypeMath:
		env.Text = b.Content
		env.HasMath = true
	case b.Type == document.TypeTable:
		p, _ := b.TablePayload()
		env.TableRows, env.TableCols = p.Rows, p.Cols
		env.Caption = p.Caption
	case b.Type == document.TypeChart:
		d, _ := b.ChartData()
		env.ChartType = string(d.ChartType)
		env.Caption = d.Title
	default:
		env.Text = strings.TrimSpace(b.Content)
	}
	return env
}

func (f *Filter) Evaluate(env interface{}) (bool, error) {
	f.once.Do(func() {
		program, err := expr.Compile(
			f.Condition,
			expr.Env(env),
			expr.AsBool(),
		)
		f.program, f.compileErr = program, errors.Wrap(err, "failed to compile filter program")
	})

	if f.program == nil {
		return false, f.compileErr
	}

	result, err := expr.Run(f.program, env)
	if err != nil {
		return false, errors.Wrap(err, "failed to run filter program")
	}
	return result.(bool), nil
}

// FilterBlocks returns the blocks of doc that pass every filter. Document
// filters that fail exclude all blocks.
func FilterBlocks(doc *document.Document, filters []*Filter) (document.Blocks, error) {
	denv := FilterDocumentEnv{Title: doc.Title, Blocks: len(doc.Blocks)}
	for _, f := range filters {
		if f.Type != FilterTypeDocument {
			continue
		}
		ok, err := f.Evaluate(denv)
		if err != nil {
			return nil, err
		}
		if !ok {
			return document.Blocks{}, nil
		}
	}

	result := document.Blocks{}
	for i, b := range doc.Blocks {
		benv := NewFilterBlockEnv(b, i)
		keep := true
		for _, f := range filters {
			if f.Type != FilterTypeBlock {
				continue
			}
			ok, err := f.Evaluate(benv)
			if err != nil {
				return nil, errors.Wrapf(err, "block %s", b.ID)
			}
			if !ok {
				keep = false
				break
			}
		}
		if keep {
			result = append(result, b)
		}
	}
	return result, nil
}
