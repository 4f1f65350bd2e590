package watermark

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/flopp/go-findfont"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/opentype"
)

// errFontNotFound is wrapped by FindFont when no file matches.
var errFontNotFound = fmt.Errorf("font not found: %w", fs.ErrNotExist)

// FaceResult is the outcome of resolving a raster font: either a loaded face
// with its Source, or the built-in fallback face with the Reason the
// requested font could not be used. Face is never nil.
type FaceResult struct {
	Face     font.Face
	Source   string
	Fallback bool
	Reason   error
}

func fallbackFace(reason error) FaceResult {
	return FaceResult{Face: basicfont.Face7x13, Fallback: true, Reason: reason}
}

// LoadFace opens the named font at size pixels. A name containing a path
// separator is used as a path; a bare file name is looked up in the working
// directory and then in the system font directories. Fonts that cannot be
// found or parsed give the built-in 7x13 face.
func LoadFace(name string, size float64) FaceResult {
	path, err := FindFont(name)
	if err != nil {
		return fallbackFace(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fallbackFace(err)
	}
	res := FaceFromData(data, size)
	if !res.Fallback {
		res.Source = path
	}
	return res
}

// FaceFromData parses TrueType or OpenType data and opens it at size pixels.
func FaceFromData(data []byte, size float64) FaceResult {
	f, err := opentype.Parse(data)
	if err != nil {
		return fallbackFace(fmt.Errorf("parse font: %w", err))
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	if err != nil {
		return fallbackFace(fmt.Errorf("open font face: %w", err))
	}
	return FaceResult{Face: face, Source: "memory"}
}

// FindFont returns the path of the font file called name. A name containing
// a path separator must exist as given; a bare file name is looked up in the
// working directory and then in the user and system font directories, where
// an exact file name match wins over a partial one.
func FindFont(name string) (string, error) {
	if name == "" {
		return "", errors.New("no font file configured")
	}
	if strings.ContainsRune(name, filepath.Separator) || strings.ContainsRune(name, '/') {
		if _, err := os.Stat(name); err != nil {
			return "", err
		}
		return name, nil
	}

	path, err := findfont.Find(name)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errFontNotFound, err)
	}
	return path, nil
}
