package typst

import (
	"regexp"
	"strings"
)

// Characters with a meaning in Typst markup. Each is escaped with a
// backslash when it appears in text.
const specials = "\\#*_$`<>@[]~=-+/"

func escapeText(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < 128 && strings.ContainsRune(specials, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// quote returns s as a Typst string literal.
func quote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\r", "", "\t", `\t`)
	return `"` + r.Replace(s) + `"`
}

var lengthRe = regexp.MustCompile(`^\d+(\.\d+)?(%|pt|mm|cm|in|em)$`)

// length returns s if it is a Typst length or ratio.
func length(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if lengthRe.MatchString(s) {
		return s, true
	}
	if s != "" && strings.Trim(s, "0123456789") == "px" {
		// Pixel widths from the editor are converted at 96 dpi.
		return strings.TrimSuffix(s, "px") + "pt * 0.75", true
	}
	return "", false
}

// rawFence returns a backtick fence longer than any run in s.
func rawFence(s string) string {
	longest, run := 0, 0
	for _, r := range s {
		if r == '`' {
			run++
			longest = max(longest, run)
		} else {
			run = 0
		}
	}
	return strings.Repeat("`", max(3, longest+1))
}

var typstColors = map[string]bool{
	"black": true, "gray": true, "silver": true, "white": true, "navy": true,
	"blue": true, "aqua": true, "teal": true, "eastern": true, "purple": true,
	"fuchsia": true, "maroon": true, "red": true, "orange": true, "yellow": true,
	"olive": true, "green": true, "lime": true,
}

var hexColorRe = regexp.MustCompile(`^#[0-9a-fA-F]{3}([0-9a-fA-F]{3})?$`)

func color(c string) (string, bool) {
	switch {
	case hexColorRe.MatchString(c):
		return "rgb(" + quote(c) + ")", true
	case typstColors[strings.ToLower(c)]:
		return strings.ToLower(c), true
	default:
		return "", false
	}
}
