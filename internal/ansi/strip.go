// Package ansi removes terminal escape sequences from text produced
// outside of labdoc, such as model output, before it reaches a terminal.
package ansi

import "regexp"

const escapeSeq = "[\u001B\u009B][[\\]()#;?]*(?:(?:(?:[a-zA-Z\\d]*(?:;[a-zA-Z\\d]*)*)?\u0007)|(?:(?:\\d{1,4}(?:;\\d{0,4})*)?[\\dA-PRZcf-ntqry=><~]))"

var escapeSeqRegexp = regexp.MustCompile(escapeSeq)

func Strip(s string) string {
	return escapeSeqRegexp.ReplaceAllString(s, "")
}
