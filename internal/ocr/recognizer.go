// Package ocr defines the text-recognition collaborator used by imports.
package ocr

import (
	"context"
	"errors"
)

// ErrUnsupportedImage reports an image payload that cannot be decoded.
var ErrUnsupportedImage = errors.New("unsupported image")

// Input is one image to recognize.
type Input struct {
	Image     []byte
	Languages []string
}

// Result is the recognized text. Confidence is the mean word confidence in
// the 0-100 range reported by the engine; it is informational only.
type Result struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Engine     string  `json:"engine"`
}

// Recognizer extracts text from an image.
type Recognizer interface {
	Recognize(ctx context.Context, in Input) (Result, error)
}

// RecognizerFunc adapts a function to Recognizer.
type RecognizerFunc func(ctx context.Context, in Input) (Result, error)

// Recognize calls f.
func (f RecognizerFunc) Recognize(ctx context.Context, in Input) (Result, error) {
	return f(ctx, in)
}
