package markup

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"
)

// ErrSyntax is wrapped by every parse failure.
var ErrSyntax = errors.New("markup syntax error")

// Ontologies lists the prefixes accepted in models(...) terms.
var Ontologies = []string{"ABI", "FM", "FMA", "ILX", "MA", "NCBITaxon", "UBERON"}

// shapeFlags are the bare words allowed in shape markup.
var shapeFlags = map[string]bool{
	"boundary": true, "closed": true, "exterior": true, "interior": true,
	"group": true, "invisible": true, "divider": true, "region": true,
	"centreline": true,
}

// deprecatedFlags are accepted with a warning.
var deprecatedFlags = map[string]bool{"siblings": true, "marker": true}

// Details references a detail layer drawn inside a shape.
type Details struct {
	LayerID string
	Zoom    int
}

// Shape is parsed shape markup.
type Shape struct {
	ID       string
	Class    string
	Children []string
	Details  *Details
	MaxZoom  int
	Path     string
	Style    int
	Models   string
	Label    string
	Flags    []string
	Warnings []string
}

// Has reports whether a flag is set.
func (s Shape) Has(flag string) bool {
	for _, f := range s.Flags {
		if f == flag {
			return true
		}
	}
	return false
}

// Properties returns the markup as feature properties.
func (s Shape) Properties() map[string]any {
	props := map[string]any{}
	if s.ID != "" {
		props["id"] = s.ID
	}
	if s.Class != "" {
		props["class"] = s.Class
	}
	if len(s.Children) > 0 {
		children := make([]any, len(s.Children))
		for i, c := range s.Children {
			children[i] = c
		}
		props["children"] = children
	}
	if s.Details != nil {
		props["details"] = s.Details.LayerID
		props["maxzoom"] = s.MaxZoom
	}
	if s.Path != "" {
		props["path"] = s.Path
	}
	if s.Style != 0 {
		props["style"] = s.Style
	}
	if s.Models != "" {
		props["models"] = s.Models
	}
	if s.Label != "" {
		props["label"] = s.Label
	}
	for _, f := range s.Flags {
		props[f] = true
	}
	return props
}

// Layer is a parsed layer directive.
type Layer struct {
	ID          string
	Models      string
	Description string
	Boundary    string
	Outline     string
	Zoom        []int // min, max, initial when set
}

// IsMarkup reports whether text is markup rather than plain text.
func IsMarkup(text string) bool {
	return strings.HasPrefix(strings.TrimSpace(text), ".")
}

// ParseShape parses shape markup.
func ParseShape(text string) (Shape, error) {
	var s Shape
	seen := map[string]bool{}
	err := walk(text, func(name string, args []string, raw string, hasArgs bool) error {
		if shapeFlags[name] || deprecatedFlags[name] {
			if hasArgs {
				return fmt.Errorf("%w: %s takes no arguments", ErrSyntax, name)
			}
			if deprecatedFlags[name] {
				s.Warnings = append(s.Warnings, fmt.Sprintf("%s is deprecated and ignored", name))
				return nil
			}
			if !seen[name] {
				s.Flags = append(s.Flags, name)
				seen[name] = true
			}
			return nil
		}
		if !hasArgs {
			return fmt.Errorf("%w: unknown flag %q", ErrSyntax, name)
		}
		switch name {
		case "id":
			return oneID(name, args, &s.ID)
		case "class":
			return oneID(name, args, &s.Class)
		case "path":
			return oneID(name, args, &s.Path)
		case "children":
			if len(args) == 0 {
				return fmt.Errorf("%w: children needs at least one id", ErrSyntax)
			}
			for _, a := range args {
				if !isID(a) {
					return fmt.Errorf("%w: children: invalid id %q", ErrSyntax, a)
				}
			}
			s.Children = append(s.Children, args...)
			return nil
		case "details":
			if len(args) != 2 || !isID(args[0]) {
				return fmt.Errorf("%w: details expects (LAYER, ZOOM)", ErrSyntax)
			}
			zoom, err := strconv.Atoi(args[1])
			if err != nil || zoom < 1 {
				return fmt.Errorf("%w: details: invalid zoom %q", ErrSyntax, args[1])
			}
			s.Details = &Details{LayerID: args[0], Zoom: zoom}
			s.MaxZoom = zoom - 1
			return nil
		case "style":
			if len(args) != 1 {
				return fmt.Errorf("%w: style expects one number", ErrSyntax)
			}
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("%w: style: %q is not a number", ErrSyntax, args[0])
			}
			s.Style = n
			return nil
		case "models":
			return ontologyTerm(args, &s.Models)
		case "label":
			s.Label = raw
			return nil
		}
		return fmt.Errorf("%w: unknown field %q", ErrSyntax, name)
	})
	if err != nil {
		return Shape{}, err
	}
	sort.Strings(s.Flags)
	return s, nil
}

// ParseLayer parses a layer directive.
func ParseLayer(text string) (Layer, error) {
	var l Layer
	err := walk(text, func(name string, args []string, raw string, hasArgs bool) error {
		if !hasArgs {
			return fmt.Errorf("%w: unknown layer flag %q", ErrSyntax, name)
		}
		switch name {
		case "id":
			return oneID(name, args, &l.ID)
		case "boundary":
			return oneID(name, args, &l.Boundary)
		case "outline":
			return oneID(name, args, &l.Outline)
		case "models":
			return ontologyTerm(args, &l.Models)
		case "description":
			l.Description = raw
			return nil
		case "zoom":
			if len(args) != 3 {
				return fmt.Errorf("%w: zoom expects (MIN, MAX, INITIAL)", ErrSyntax)
			}
			zoom := make([]int, 3)
			for i, a := range args {
				n, err := strconv.Atoi(a)
				if err != nil {
					return fmt.Errorf("%w: zoom: %q is not a number", ErrSyntax, a)
				}
				zoom[i] = n
			}
			l.Zoom = zoom
			return nil
		}
		return fmt.Errorf("%w: unknown layer field %q", ErrSyntax, name)
	})
	if err != nil {
		return Layer{}, err
	}
	return l, nil
}

func oneID(name string, args []string, dst *string) error {
	if len(args) != 1 || !isID(args[0]) {
		return fmt.Errorf("%w: %s expects one identifier, got %q", ErrSyntax, name, strings.Join(args, ","))
	}
	*dst = args[0]
	return nil
}

func ontologyTerm(args []string, dst *string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: models expects one term", ErrSyntax)
	}
	prefix, id, ok := strings.Cut(args[0], ":")
	if !ok || id == "" || !isKnownOntology(prefix) || !isID(id) {
		return fmt.Errorf("%w: models: %q is not an ontology term", ErrSyntax, args[0])
	}
	*dst = args[0]
	return nil
}

func isKnownOntology(prefix string) bool {
	for _, o := range Ontologies {
		if o == prefix {
			return true
		}
	}
	return false
}

func isID(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		ok := unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
		if i > 0 {
			ok = ok || r == '-' || r == '.'
		}
		if !ok {
			return false
		}
	}
	return true
}

// walk scans ".name name(arg, arg) ..." and calls fn for each item.
func walk(text string, fn func(name string, args []string, raw string, hasArgs bool) error) error {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, ".") {
		return fmt.Errorf("%w: markup must start with '.'", ErrSyntax)
	}
	s = s[1:]
	for {
		s = strings.TrimLeft(s, " \t\r\n")
		if s == "" {
			return nil
		}
		end := strings.IndexFunc(s, func(r rune) bool {
			return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-')
		})
		if end < 0 {
			end = len(s)
		}
		name := s[:end]
		if name == "" {
			return fmt.Errorf("%w: unexpected %q", ErrSyntax, s[:1])
		}
		s = s[end:]
		if !strings.HasPrefix(s, "(") {
			if err := fn(name, nil, "", false); err != nil {
				return err
			}
			continue
		}
		closeAt := strings.IndexByte(s, ')')
		if closeAt < 0 {
			return fmt.Errorf("%w: %s: missing ')'", ErrSyntax, name)
		}
		inner := s[1:closeAt]
		s = s[closeAt+1:]
		var args []string
		if strings.TrimSpace(inner) != "" {
			for _, a := range strings.Split(inner, ",") {
				args = append(args, strings.TrimSpace(a))
			}
		}
		if err := fn(name, args, strings.TrimSpace(inner), true); err != nil {
			return err
		}
	}
}
