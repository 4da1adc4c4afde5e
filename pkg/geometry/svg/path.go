package svg

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/stateful/labdoc/pkg/geometry"
)

// parseNumbers splits a list of numbers separated by whitespace or commas.
// Signs and a second decimal point start a new number, so "1-2.5.5" reads
// as 1, -2.5, 0.5.
func parseNumbers(s string) ([]float64, error) {
	var (
		out []float64
		sc  = scanner{s: s}
	)
	for {
		sc.skipSeparators()
		if sc.done() {
			return out, nil
		}
		v, err := sc.number()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
}

type scanner struct {
	s   string
	pos int
}

func (sc *scanner) done() bool { return sc.pos >= len(sc.s) }

func (sc *scanner) skipSeparators() {
	for sc.pos < len(sc.s) && strings.IndexByte(" \t\r\n,", sc.s[sc.pos]) >= 0 {
		sc.pos++
	}
}

func (sc *scanner) number() (float64, error) {
	start := sc.pos
	i := sc.pos
	if i < len(sc.s) && (sc.s[i] == '+' || sc.s[i] == '-') {
		i++
	}
	digits, dot := false, false
	for i < len(sc.s) {
		c := sc.s[i]
		switch {
		case c >= '0' && c <= '9':
			digits = true
		case c == '.' && !dot:
			dot = true
		case (c == 'e' || c == 'E') && digits:
			j := i + 1
			if j < len(sc.s) && (sc.s[j] == '+' || sc.s[j] == '-') {
				j++
			}
			if j < len(sc.s) && sc.s[j] >= '0' && sc.s[j] <= '9' {
				i = j
				for i < len(sc.s) && sc.s[i] >= '0' && sc.s[i] <= '9' {
					i++
				}
			}
			sc.pos = i
			return parseFloat(sc.s[start:i])
		default:
			sc.pos = i
			if !digits {
				return 0, errors.Errorf("expected number at %d in %q", start, sc.s)
			}
			return parseFloat(sc.s[start:i])
		}
		i++
	}
	sc.pos = i
	if !digits {
		return 0, errors.Errorf("expected number at %d in %q", start, sc.s)
	}
	return parseFloat(sc.s[start:i])
}

func parseFloat(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	return v, errors.WithStack(err)
}

func isCommand(c byte) bool {
	return strings.IndexByte("MmLlHhVvCcSsQqTtAaZz", c) >= 0
}

var argCount = map[byte]int{
	'M': 2, 'L': 2, 'H': 1, 'V': 1, 'C': 6, 'S': 4, 'Q': 4, 'T': 2, 'A': 7, 'Z': 0,
}

// PathExtents returns the box of all points and control points of a path.
// Control points bound a Bézier segment from outside, so the box may be
// slightly larger than the painted outline. Arcs contribute their end
// points only.
func PathExtents(d string) (geometry.Rect, bool, error) {
	var (
		b              bounds
		sc             = scanner{s: d}
		cmd            byte
		x, y           float64
		startX, startY float64
	)
	for {
		sc.skipSeparators()
		if sc.done() {
			return b.rect, b.ok, nil
		}
		if c := sc.s[sc.pos]; isCommand(c) {
			cmd = c
			sc.pos++
			if cmd == 'Z' || cmd == 'z' {
				x, y = startX, startY
				continue
			}
		} else if cmd == 0 {
			return b.rect, b.ok, errors.Errorf("path must start with a command: %q", d)
		}
		if cmd == 'Z' || cmd == 'z' {
			return b.rect, b.ok, errors.Errorf("unexpected number after close in %q", d)
		}

		upper := cmd &^ 0x20
		rel := cmd != upper
		args := make([]float64, argCount[upper])
		for i := range args {
			sc.skipSeparators()
			v, err := sc.number()
			if err != nil {
				return b.rect, b.ok, err
			}
			args[i] = v
		}

		abs := func(px, py float64) (float64, float64) {
			if rel {
				return x + px, y + py
			}
			return px, py
		}

		switch upper {
		case 'M':
			x, y = abs(args[0], args[1])
			startX, startY = x, y
			b.add(x, y)
			// Further pairs after a move are line segments.
			if rel {
				cmd = 'l'
			} else {
				cmd = 'L'
			}
		case 'L', 'T':
			x, y = abs(args[0], args[1])
			b.add(x, y)
		case 'H':
			if rel {
				x += args[0]
			} else {
				x = args[0]
			}
			b.add(x, y)
		case 'V':
			if rel {
				y += args[0]
			} else {
				y = args[0]
			}
			b.add(x, y)
		case 'C':
			b.add(abs(args[0], args[1]))
			b.add(abs(args[2], args[3]))
			x, y = abs(args[4], args[5])
			b.add(x, y)
		case 'S', 'Q':
			b.add(abs(args[0], args[1]))
			x, y = abs(args[2], args[3])
			b.add(x, y)
		case 'A':
			x, y = abs(args[5], args[6])
			b.add(x, y)
		}
	}
}
