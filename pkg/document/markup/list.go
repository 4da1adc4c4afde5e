package markup

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ContinueMarker returns the marker to start the line after line with, and
// whether line is a list line with content.
func ContinueMarker(line string) (string, bool) {
	marker, rest := SplitMarker(line)
	if marker.Kind == NoMarker || strings.TrimSpace(rest) == "" {
		return "", false
	}
	return marker.Next().String(), true
}

// IsEmptyListLine reports whether line is a marker with nothing after it.
func IsEmptyListLine(line string) bool {
	marker, rest := SplitMarker(line)
	return marker.Kind != NoMarker && strings.TrimSpace(rest) == ""
}

// Enter applies the list behavior of pressing Enter at the end of line idx.
// It returns the new lines, the line the caret moves to, and false if the
// line is not a list line and the key should be handled natively.
func Enter(lines []string, idx int) ([]string, int, bool) {
	if idx < 0 || idx >= len(lines) {
		return lines, idx, false
	}
	if IsEmptyListLine(lines[idx]) {
		return exitList(lines, idx), idx, true
	}
	next, ok := ContinueMarker(lines[idx])
	if !ok {
		return lines, idx, false
	}
	result := make([]string, 0, len(lines)+1)
	result = append(result, lines[:idx+1]...)
	result = append(result, next)
	result = append(result, lines[idx+1:]...)
	return result, idx + 1, true
}

// Backspace applies the list behavior of pressing Backspace on line idx.
// Only an empty marker line is handled.
func Backspace(lines []string, idx int) ([]string, int, bool) {
	if idx < 0 || idx >= len(lines) || !IsEmptyListLine(lines[idx]) {
		return lines, idx, false
	}
	return exitList(lines, idx), idx, true
}

// exitList replaces the empty marker line idx with a plain empty line. The
// list items after it form a new list, so ordered items are renumbered
// from 1.
func exitList(lines []string, idx int) []string {
	result := make([]string, len(lines))
	copy(result, lines)
	result[idx] = ""

	num := 1
	for i := idx + 1; i < len(result); i++ {
		marker, rest := SplitMarker(result[i])
		if marker.Kind == NoMarker {
			break
		}
		if marker.Kind == OrderedMarker {
			marker.Number = num
			num++
			result[i] = marker.String() + rest
		}
	}
	return result
}

// SplitNativeList handles Enter or Backspace on an empty native list item.
// The item is replaced by an empty plain line placed after the list, and
// the items that followed it move into a new list after that line. It
// returns the inserted line for the caret, or nil if li is not an empty
// item of a list.
func SplitNativeList(li *html.Node) *html.Node {
	if li == nil || li.DataAtom != atom.Li || li.Parent == nil {
		return nil
	}
	list := li.Parent
	if list.DataAtom != atom.Ul && list.DataAtom != atom.Ol {
		return nil
	}
	if strings.TrimSpace(FromNodes([]*html.Node{textOnly(li)})) != "" {
		return nil
	}
	container := list.Parent
	if container == nil {
		return nil
	}

	var rest []*html.Node
	for c := li.NextSibling; c != nil; c = c.NextSibling {
		rest = append(rest, c)
	}
	list.RemoveChild(li)

	line := NewElement(atom.Div)
	line.AppendChild(NewElement(atom.Br))
	container.InsertBefore(line, list.NextSibling)

	if len(rest) > 0 {
		tail := NewElement(list.DataAtom)
		for _, n := range rest {
			list.RemoveChild(n)
			tail.AppendChild(n)
		}
		container.InsertBefore(tail, line.NextSibling)
	}
	if list.FirstChild == nil {
		container.RemoveChild(list)
	}
	return line
}

// textOnly wraps the children of li in a div so the item's own content
// decodes without the list marker.
func textOnly(li *html.Node) *html.Node {
	div := NewElement(atom.Div)
	for c := li.FirstChild; c != nil; c = c.NextSibling {
		div.AppendChild(cloneNode(c))
	}
	return div
}

func cloneNode(n *html.Node) *html.Node {
	clone := &html.Node{
		Type:      n.Type,
		DataAtom:  n.DataAtom,
		Data:      n.Data,
		Namespace: n.Namespace,
		Attr:      append([]html.Attribute(nil), n.Attr...),
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		clone.AppendChild(cloneNode(c))
	}
	return clone
}

// CloneNodes deep-copies nodes.
func CloneNodes(nodes []*html.Node) []*html.Node {
	result := make([]*html.Node, 0, len(nodes))
	for _, n := range nodes {
		result = append(result, cloneNode(n))
	}
	return result
}
