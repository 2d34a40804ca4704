package svg

import (
	"fmt"
	"math"
	"strings"

	"github.com/phrazzld/flatmap-maker/internal/geometry"
)

// parseTransform parses a transform attribute. The functions of the list
// apply right to left, as in SVG.
func parseTransform(s string) (geometry.Affine, error) {
	m := geometry.Identity()
	rest := strings.TrimSpace(s)
	for rest != "" {
		open := strings.IndexByte(rest, '(')
		closeAt := strings.IndexByte(rest, ')')
		if open < 0 || closeAt < open {
			return geometry.Affine{}, fmt.Errorf("malformed transform %q", s)
		}
		name := strings.TrimSpace(rest[:open])
		sc := &scanner{s: rest[open+1 : closeAt]}
		var args []float64
		for !sc.done() {
			v, err := sc.number()
			if err != nil {
				return geometry.Affine{}, fmt.Errorf("transform %s: %w", name, err)
			}
			args = append(args, v)
		}
		t, err := transformFunc(name, args)
		if err != nil {
			return geometry.Affine{}, err
		}
		m = t.Then(m)
		rest = strings.TrimLeft(rest[closeAt+1:], " \t\r\n,")
	}
	return m, nil
}

func transformFunc(name string, args []float64) (geometry.Affine, error) {
	argc := func(counts ...int) error {
		for _, c := range counts {
			if len(args) == c {
				return nil
			}
		}
		return fmt.Errorf("transform %s: unexpected %d arguments", name, len(args))
	}
	rad := func(deg float64) float64 { return deg * math.Pi / 180 }

	switch name {
	case "matrix":
		if err := argc(6); err != nil {
			return geometry.Affine{}, err
		}
		return geometry.Affine{
			A: args[0], B: args[2], C: args[4],
			D: args[1], E: args[3], F: args[5],
		}, nil
	case "translate":
		if err := argc(1, 2); err != nil {
			return geometry.Affine{}, err
		}
		if len(args) == 1 {
			return geometry.Translate(args[0], 0), nil
		}
		return geometry.Translate(args[0], args[1]), nil
	case "scale":
		if err := argc(1, 2); err != nil {
			return geometry.Affine{}, err
		}
		if len(args) == 1 {
			return geometry.Scale(args[0], args[0]), nil
		}
		return geometry.Scale(args[0], args[1]), nil
	case "rotate":
		if err := argc(1, 3); err != nil {
			return geometry.Affine{}, err
		}
		r := geometry.Rotate(rad(args[0]))
		if len(args) == 1 {
			return r, nil
		}
		cx, cy := args[1], args[2]
		return geometry.Translate(-cx, -cy).Then(r).Then(geometry.Translate(cx, cy)), nil
	case "skewX":
		if err := argc(1); err != nil {
			return geometry.Affine{}, err
		}
		return geometry.SkewX(rad(args[0])), nil
	case "skewY":
		if err := argc(1); err != nil {
			return geometry.Affine{}, err
		}
		return geometry.SkewY(rad(args[0])), nil
	}
	return geometry.Affine{}, fmt.Errorf("unknown transform %q", name)
}
