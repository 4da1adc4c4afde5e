package importer

import (
	"bytes"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Frontmatter holds the fields read from a leading YAML block.
type Frontmatter struct {
	Title string `yaml:"title"`
}

var frontmatterDelim = []byte("---")

// splitFrontmatter separates a leading "---" delimited YAML block from the
// markdown content. Sources without one are returned unchanged.
func splitFrontmatter(source []byte) (raw, content []byte) {
	source = bytes.ReplaceAll(source, []byte("\r\n"), []byte("\n"))
	if !bytes.HasPrefix(source, append(frontmatterDelim, '\n')) {
		return nil, source
	}
	rest := source[len(frontmatterDelim)+1:]
	end := bytes.Index(rest, append([]byte{'\n'}, frontmatterDelim...))
	if end < 0 {
		return nil, source
	}
	raw = rest[:end]
	content = rest[end+1+len(frontmatterDelim):]
	content = bytes.TrimPrefix(content, []byte("\n"))
	return raw, content
}

func parseFrontmatter(raw []byte) (Frontmatter, error) {
	var f Frontmatter
	if len(bytes.TrimSpace(raw)) == 0 {
		return f, nil
	}
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return f, errors.Wrap(err, "invalid frontmatter")
	}
	return f, nil
}
