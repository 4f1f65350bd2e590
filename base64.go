package watermark

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"strings"
)

// DecodeBase64Image decodes a base64 image, optionally wrapped in a data URL,
// and reports the detected format ("png", "jpeg", "webp", ...).
func DecodeBase64Image(input string) (image.Image, string, error) {
	data, err := decodeBase64Payload(input)
	if err != nil {
		return nil, "", err
	}
	return DecodeImageBytes(data)
}

// EncodePNGToBase64 encodes img as PNG in standard base64.
func EncodePNGToBase64(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := EncodePNG(&buf, img); err != nil {
		return "", fmt.Errorf("encode png: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// WatermarkBase64 stamps a base64 image and returns the PNG result as
// base64, without a data URL prefix.
func (e *Engine) WatermarkBase64(input string) (string, error) {
	data, err := decodeBase64Payload(input)
	if err != nil {
		return "", err
	}

	out, err := e.WatermarkImageBytes(data)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(out), nil
}

// decodeBase64Payload accepts padded or unpadded base64 with embedded line
// breaks, as pasted from terminals and e-mails.
func decodeBase64Payload(input string) ([]byte, error) {
	raw := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\r', '\n':
			return -1
		}
		return r
	}, stripDataPrefix(input))

	enc := base64.StdEncoding
	if !strings.HasSuffix(raw, "=") && len(raw)%4 != 0 {
		enc = base64.RawStdEncoding
	}
	data, err := enc.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: decode base64: %w", ErrSourceUnreadable, err)
	}
	return data, nil
}

// stripDataPrefix drops a "data:<mime>;base64," header.
func stripDataPrefix(input string) string {
	if len(input) < 5 || !strings.EqualFold(input[:5], "data:") {
		return input
	}
	if idx := strings.IndexByte(input, ','); idx != -1 {
		return input[idx+1:]
	}
	return input
}
