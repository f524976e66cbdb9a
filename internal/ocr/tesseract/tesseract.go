// Package tesseract implements ocr.Recognizer on top of gosseract.
package tesseract

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/safe2go/support-import/internal/ocr"
)

const engineName = "tesseract"

// Options configures the engine.
type Options struct {
	Languages      []string
	PageSegMode    int
	MaxConcurrency int
}

// Engine runs tesseract through gosseract. Clients are not safe for
// concurrent use, so each recognition gets its own; slots bounds how many
// run at once.
type Engine struct {
	clientFactory func() *gosseract.Client
	languages     []string
	pageSegMode   gosseract.PageSegMode
	slots         chan struct{}
}

// NewEngine constructs a tesseract-backed recognizer.
func NewEngine(opts Options) *Engine {
	if len(opts.Languages) == 0 {
		opts.Languages = []string{"por"}
	}
	if opts.PageSegMode <= 0 {
		opts.PageSegMode = int(gosseract.PSM_SINGLE_BLOCK)
	}
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = 2
	}
	return &Engine{
		clientFactory: gosseract.NewClient,
		languages:     opts.Languages,
		pageSegMode:   gosseract.PageSegMode(opts.PageSegMode),
		slots:         make(chan struct{}, opts.MaxConcurrency),
	}
}

// Recognize performs OCR on a single image. A cancelled context discards
// whatever was recognized.
func (e *Engine) Recognize(ctx context.Context, in ocr.Input) (ocr.Result, error) {
	select {
	case e.slots <- struct{}{}:
		defer func() { <-e.slots }()
	case <-ctx.Done():
		return ocr.Result{}, ctx.Err()
	}

	c := e.clientFactory()
	defer c.Close()

	langs := in.Languages
	if len(langs) == 0 {
		langs = e.languages
	}
	if err := c.SetLanguage(langs...); err != nil {
		return ocr.Result{}, fmt.Errorf("set languages: %w", err)
	}
	if err := c.SetPageSegMode(e.pageSegMode); err != nil {
		return ocr.Result{}, fmt.Errorf("set page segmentation mode: %w", err)
	}
	if err := c.SetImageFromBytes(in.Image); err != nil {
		return ocr.Result{}, fmt.Errorf("set image: %w", err)
	}

	text, err := c.Text()
	if err != nil {
		return ocr.Result{}, fmt.Errorf("recognize text: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return ocr.Result{}, err
	}

	return ocr.Result{
		Text:       strings.TrimSpace(text),
		Confidence: meanConfidence(c),
		Engine:     engineName,
	}, nil
}

func meanConfidence(c *gosseract.Client) float64 {
	boxes, err := c.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil || len(boxes) == 0 {
		return 0
	}
	var sum float64
	for _, b := range boxes {
		sum += b.Confidence
	}
	return sum / float64(len(boxes))
}
