// Package term describes the streams a command writes to and whether they
// are attached to a terminal.
package term

import (
	"errors"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"golang.org/x/term"
)

// DefaultWidth is used for output that is not a terminal.
const DefaultWidth = 80

var errNotTTY = errors.New("not a tty")

type Term interface {
	In() io.Reader
	Out() io.Writer
	ErrOut() io.Writer
	IsTTY() bool
	Size() (int, int, error)
}

func System() Term {
	return FromIO(os.Stdin, os.Stdout, os.Stderr)
}

// FromIO wraps the streams of a command. Output is a terminal only when
// out is a file attached to one.
func FromIO(in io.Reader, out, errOut io.Writer) Term {
	t := &ioTerm{in: in, out: out, errOut: errOut}
	if f, ok := out.(*os.File); ok && isTerminal(f) {
		t.tty = f
	}
	return t
}

// Width returns the number of columns of t, or DefaultWidth.
func Width(t Term) int {
	w, _, err := t.Size()
	if err != nil || w <= 0 {
		return DefaultWidth
	}
	return w
}

type ioTerm struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer
	tty    *os.File
}

func (t *ioTerm) In() io.Reader     { return t.in }
func (t *ioTerm) Out() io.Writer    { return t.out }
func (t *ioTerm) ErrOut() io.Writer { return t.errOut }
func (t *ioTerm) IsTTY() bool       { return t.tty != nil }

func (t *ioTerm) Size() (int, int, error) {
	if t.tty == nil {
		return -1, -1, errNotTTY
	}
	return term.GetSize(int(t.tty.Fd()))
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
