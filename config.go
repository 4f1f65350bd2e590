package watermark

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadStyle reads a YAML style file. Keys absent from the file keep their
// DefaultStyle values; unknown keys are rejected.
//
//	text: "Internal-"
//	density: 180
//	opacity: 0.25
func LoadStyle(path string) (Style, error) {
	f, err := os.Open(path)
	if err != nil {
		return Style{}, fmt.Errorf("open style: %w", err)
	}
	defer f.Close()

	s, err := DecodeStyle(f)
	if err != nil {
		return Style{}, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// DecodeStyle reads a YAML style document from r and validates it.
func DecodeStyle(r io.Reader) (Style, error) {
	s := DefaultStyle()

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil && !errors.Is(err, io.EOF) {
		return Style{}, fmt.Errorf("%w: %w", ErrInvalidStyle, err)
	}

	if err := s.Validate(); err != nil {
		return Style{}, err
	}
	return s, nil
}
