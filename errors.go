package watermark

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedFormat is returned for inputs whose extension is not
	// .pdf, .png, .jpg or .jpeg.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrSourceUnreadable is returned when the input is missing, corrupt or
	// cannot be parsed.
	ErrSourceUnreadable = errors.New("source unreadable")

	// ErrInvalidStyle is returned for style parameters that cannot be
	// rendered, such as a non-positive density.
	ErrInvalidStyle = errors.New("invalid style configuration")
)

// StyleError describes a single rejected style parameter.
type StyleError struct {
	Field   string
	Message string
}

func (e *StyleError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid style: %s %s", e.Field, e.Message)
	}
	return fmt.Sprintf("invalid style: %s", e.Message)
}

func (e *StyleError) Unwrap() error {
	return ErrInvalidStyle
}
