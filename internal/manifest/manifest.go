package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/phrazzld/flatmap-maker/internal/domain"
)

// document is the manifest as written on disk.
type document struct {
	ID            string           `json:"id" validate:"required"`
	Models        string           `json:"models,omitempty"`
	AnatomicalMap string           `json:"anatomicalMap,omitempty"`
	Properties    string           `json:"properties,omitempty"`
	Sources       []sourceDocument `json:"sources" validate:"required,min=1,dive"`
}

type sourceDocument struct {
	ID       string `json:"id" validate:"required"`
	Kind     string `json:"kind" validate:"required,oneof=slides base details image"`
	Href     string `json:"href" validate:"required"`
	Boundary string `json:"boundary,omitempty" validate:"required_if=Kind image,excluded_unless=Kind image"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Load reads and validates the manifest at path.
func Load(path string) (*domain.Manifest, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, &domain.ManifestError{Reason: "cannot resolve manifest path", Err: err}
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, &domain.ManifestError{Reason: "cannot read manifest", Err: err}
	}
	return Parse(data, filepath.Dir(abs))
}

// Parse validates manifest JSON whose relative locations are resolved
// against location.
func Parse(data []byte, location string) (*domain.Manifest, error) {
	var doc document
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&doc); err != nil {
		return nil, &domain.ManifestError{Reason: "malformed JSON", Err: err}
	}

	if err := validate.Struct(&doc); err != nil {
		return nil, translate(err)
	}

	var problems []error
	seen := map[string]bool{}
	foundations := 0
	for i, s := range doc.Sources {
		if seen[s.ID] {
			problems = append(problems, &domain.ManifestError{
				Field:  fmt.Sprintf("sources[%d].id", i),
				Reason: fmt.Sprintf("duplicate source id %q", s.ID),
			})
		}
		seen[s.ID] = true
		if domain.SourceKind(s.Kind).IsFoundation() {
			foundations++
		}
		if isRemote(s.Href) {
			problems = append(problems, &domain.ManifestError{
				Field:  fmt.Sprintf("sources[%d].href", i),
				Reason: "remote sources are not supported",
			})
		}
	}
	if foundations != 1 {
		problems = append(problems, &domain.ManifestError{
			Field:  "sources",
			Reason: fmt.Sprintf("exactly one source must have kind base or slides, found %d", foundations),
		})
	}
	if len(problems) > 0 {
		return nil, errors.Join(problems...)
	}

	m := &domain.Manifest{
		ID:            doc.ID,
		Models:        doc.Models,
		AnatomicalMap: resolve(location, doc.AnatomicalMap),
		Properties:    resolve(location, doc.Properties),
		Location:      location,
		Sources:       make([]domain.Source, len(doc.Sources)),
	}
	for i, s := range doc.Sources {
		m.Sources[i] = domain.Source{
			ID:       s.ID,
			Kind:     domain.SourceKind(s.Kind),
			Href:     resolve(location, s.Href),
			Boundary: s.Boundary,
		}
	}
	return m, nil
}

func isRemote(href string) bool {
	lower := strings.ToLower(href)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// resolve makes href absolute relative to location. Empty stays empty.
func resolve(location, href string) string {
	if href == "" {
		return ""
	}
	href = strings.TrimPrefix(href, "file://")
	if filepath.IsAbs(href) {
		return filepath.Clean(href)
	}
	return filepath.Join(location, filepath.FromSlash(href))
}

// translate turns validator failures into one ManifestError per field.
func translate(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &domain.ManifestError{Reason: "validation failed", Err: err}
	}
	problems := make([]error, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Namespace()
		if _, rest, ok := strings.Cut(field, "."); ok {
			field = rest
		}
		problems = append(problems, &domain.ManifestError{Field: field, Reason: reason(fe)})
	}
	return errors.Join(problems...)
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must list at least one source"
	case "oneof":
		return fmt.Sprintf("must be one of %s, got %q", fe.Param(), fe.Value())
	case "required_if":
		return "is required for image sources"
	case "excluded_unless":
		return "is only allowed for image sources"
	}
	return fmt.Sprintf("failed %s validation", fe.Tag())
}
