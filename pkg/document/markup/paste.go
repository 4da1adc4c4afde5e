package markup

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/text/unicode/norm"
)

var displayMathRe = regexp.MustCompile(`(?s)\$\$(.+?)\$\$`)

// ContainsDisplayMath reports whether pasted text carries a $$...$$ formula.
func ContainsDisplayMath(text string) bool {
	return displayMathRe.MatchString(text)
}

// SplitDisplayMath splits pasted plain text into text runs and display math
// atoms. The text is NFC-normalized first.
func SplitDisplayMath(text string) []Inline {
	text = norm.NFC.String(text)
	var result []Inline
	last := 0
	for _, loc := range displayMathRe.FindAllStringSubmatchIndex(text, -1) {
		src := strings.TrimSpace(text[loc[2]:loc[3]])
		if src == "" {
			continue
		}
		if loc[0] > last {
			result = append(result, Text{Value: text[last:loc[0]]})
		}
		result = append(result, Math{Format: LaTeX, Source: src, Display: true})
		last = loc[1]
	}
	if last < len(text) {
		result = append(result, Text{Value: text[last:]})
	}
	return result
}

// PasteFragment converts pasted plain text into nodes to insert at the
// caret: text, <br> for line breaks and pills for $$...$$ formulas.
func PasteFragment(text string) []*html.Node {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var nodes []*html.Node
	for _, in := range SplitDisplayMath(text) {
		switch v := in.(type) {
		case Text:
			for i, part := range strings.Split(v.Value, "\n") {
				if i > 0 {
					nodes = append(nodes, NewElement(atom.Br))
				}
				if part != "" {
					nodes = append(nodes, NewText(part))
				}
			}
		case Math:
			nodes = append(nodes, NewPill(v, NextPillID()))
		}
	}
	return nodes
}
