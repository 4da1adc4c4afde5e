package document

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"

	"github.com/stateful/labdoc/pkg/document/chart"
)

// Version is written into document envelopes.
const Version = "v1"

// Document is the persisted envelope of a block array.
type Document struct {
	Version string `json:"version,omitempty"`
	Title   string `json:"title,omitempty"`
	Blocks  Blocks `json:"blocks"`
}

// Load decodes a document from either a bare block array or an envelope
// and upgrades legacy blocks. The returned flag reports whether anything
// was rewritten by the upgrade.
func Load(data []byte) (*Document, bool, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return &Document{Version: Version, Blocks: Blocks{}}, false, nil
	}

	var doc Document
	if data[0] == '[' {
		if err := json.Unmarshal(data, &doc.Blocks); err != nil {
			return nil, false, errors.Wrap(err, "failed to decode blocks")
		}
	} else if err := json.Unmarshal(data, &doc); err != nil {
		return nil, false, errors.Wrap(err, "failed to decode document")
	}
	if doc.Blocks == nil {
		doc.Blocks = Blocks{}
	}
	if doc.Version == "" {
		doc.Version = Version
	}

	var upgraded bool
	doc.Blocks, upgraded = Upgrade(doc.Blocks)
	return &doc, upgraded, nil
}

// Marshal encodes the document as an indented envelope.
func (d *Document) Marshal() ([]byte, error) {
	doc := *d
	if doc.Version == "" {
		doc.Version = Version
	}
	if doc.Blocks == nil {
		doc.Blocks = Blocks{}
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	return data, errors.WithStack(err)
}

// Upgrade rewrites legacy blocks into their current form. List blocks
// become paragraphs with one "- " marker line per non-empty line, and chart
// blocks carrying legacy fields are migrated and re-encoded. Running it on
// an upgraded document changes nothing.
func Upgrade(blocks Blocks) (Blocks, bool) {
	var (
		result  = make(Blocks, len(blocks))
		changed bool
	)
	for i, b := range blocks {
		switch b.Type {
		case TypeList:
			b = upgradeList(b)
			changed = true
		case TypeChart:
			if d, migrated := chart.ParseWithMigration(b.Content); migrated {
				b.Content = chart.Marshal(d)
				changed = true
			}
		}
		result[i] = b
	}
	return result, changed
}

func upgradeList(b Block) Block {
	var lines []string
	for _, line := range strings.Split(strings.ReplaceAll(b.Content, "\r\n", "\n"), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, "- "+line)
	}
	b.Type = TypeParagraph
	b.Content = strings.Join(lines, "\n")
	b.Level = 0
	return b
}
