package svg

import (
	"math"
	"strings"

	"github.com/pkg/errors"

	"github.com/stateful/labdoc/pkg/geometry"
)

// Matrix is an affine transform [a c e; b d f; 0 0 1].
type Matrix struct {
	A, B, C, D, E, F float64
}

var Identity = Matrix{A: 1, D: 1}

func Translate(x, y float64) Matrix { return Matrix{A: 1, D: 1, E: x, F: y} }

func Scale(x, y float64) Matrix { return Matrix{A: x, D: y} }

func Rotate(deg float64) Matrix {
	rad := deg * math.Pi / 180
	sin, cos := math.Sincos(rad)
	return Matrix{A: cos, B: sin, C: -sin, D: cos}
}

// Mul returns m applied after n.
func (m Matrix) Mul(n Matrix) Matrix {
	return Matrix{
		A: m.A*n.A + m.C*n.B,
		B: m.B*n.A + m.D*n.B,
		C: m.A*n.C + m.C*n.D,
		D: m.B*n.C + m.D*n.D,
		E: m.A*n.E + m.C*n.F + m.E,
		F: m.B*n.E + m.D*n.F + m.F,
	}
}

func (m Matrix) Apply(x, y float64) (float64, float64) {
	return m.A*x + m.C*y + m.E, m.B*x + m.D*y + m.F
}

// ApplyRect transforms the corners of r and returns their bounding box.
func (m Matrix) ApplyRect(r geometry.Rect) geometry.Rect {
	var b bounds
	for _, p := range [][2]float64{{r.L, r.T}, {r.R, r.T}, {r.L, r.B}, {r.R, r.B}} {
		b.add(m.Apply(p[0], p[1]))
	}
	return b.rect
}

// ParseTransform parses an SVG transform list.
func ParseTransform(s string) (Matrix, error) {
	m := Identity
	rest := strings.TrimSpace(s)
	for rest != "" {
		open := strings.IndexByte(rest, '(')
		end := strings.IndexByte(rest, ')')
		if open < 0 || end < open {
			return Identity, errors.Errorf("invalid transform %q", s)
		}
		name := strings.TrimSpace(strings.Trim(rest[:open], ", \t\n"))
		args, err := parseNumbers(rest[open+1 : end])
		if err != nil {
			return Identity, errors.Wrapf(err, "invalid transform %q", s)
		}
		t, err := transformFunc(name, args)
		if err != nil {
			return Identity, err
		}
		m = m.Mul(t)
		rest = strings.TrimSpace(rest[end+1:])
	}
	return m, nil
}

func transformFunc(name string, args []float64) (Matrix, error) {
	arg := func(i int, def float64) float64 {
		if i < len(args) {
			return args[i]
		}
		return def
	}
	switch name {
	case "matrix":
		if len(args) != 6 {
			return Identity, errors.Errorf("matrix takes 6 arguments, got %d", len(args))
		}
		return Matrix{A: args[0], B: args[1], C: args[2], D: args[3], E: args[4], F: args[5]}, nil
	case "translate":
		return Translate(arg(0, 0), arg(1, 0)), nil
	case "scale":
		sx := arg(0, 1)
		return Scale(sx, arg(1, sx)), nil
	case "rotate":
		cx, cy := arg(1, 0), arg(2, 0)
		return Translate(cx, cy).Mul(Rotate(arg(0, 0))).Mul(Translate(-cx, -cy)), nil
	case "skewX":
		return Matrix{A: 1, C: math.Tan(arg(0, 0) * math.Pi / 180), D: 1}, nil
	case "skewY":
		return Matrix{A: 1, B: math.Tan(arg(0, 0) * math.Pi / 180), D: 1}, nil
	}
	return Identity, errors.Errorf("unknown transform %q", name)
}

type bounds struct {
	rect geometry.Rect
	ok   bool
}

func (b *bounds) add(x, y float64) {
	if !b.ok {
		b.rect = geometry.Rect{L: x, T: y, R: x, B: y}
		b.ok = true
		return
	}
	b.rect.L = math.Min(b.rect.L, x)
	b.rect.T = math.Min(b.rect.T, y)
	b.rect.R = math.Max(b.rect.R, x)
	b.rect.B = math.Max(b.rect.B, y)
}

func (b *bounds) addRect(r geometry.Rect) {
	b.add(r.L, r.T)
	b.add(r.R, r.B)
}
