// extract prints the ticket candidates found in a screenshot or in text that
// was already recognized. It reads text from stdin when neither --text nor
// --image is given, and writes JSON to stdout. Nothing is stored.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/safe2go/support-import/internal/extraction"
	"github.com/safe2go/support-import/internal/ocr"
	"github.com/safe2go/support-import/internal/ocr/tesseract"
)

type output struct {
	Found      int                    `json:"found"`
	Confidence *float64               `json:"confidence,omitempty"`
	Candidates []extraction.Candidate `json:"candidates"`
}

type options struct {
	textPath  string
	imagePath string
	languages []string
	psm       int
	operator  string
	rulesPath string
	pretty    bool
	verbose   bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) error {
	var opts options
	flagSet := pflag.NewFlagSet("extract", pflag.ContinueOnError)
	flagSet.StringVar(&opts.textPath, "text", "", "file holding recognized text")
	flagSet.StringVar(&opts.imagePath, "image", "", "screenshot to recognize (png, jpeg, gif, bmp, webp)")
	flagSet.StringSliceVar(&opts.languages, "lang", []string{"por"}, "tesseract language(s)")
	flagSet.IntVar(&opts.psm, "psm", 6, "tesseract page segmentation mode")
	flagSet.StringVar(&opts.operator, "operator", "", "fallback responsible person")
	flagSet.StringVar(&opts.rulesPath, "rules", "", "YAML file overriding the keyword tables")
	flagSet.BoolVar(&opts.pretty, "pretty", false, "indent the JSON output")
	flagSet.BoolVarP(&opts.verbose, "verbose", "v", false, "log progress to stderr")
	if err := flagSet.Parse(args); err != nil {
		return err
	}
	if opts.textPath != "" && opts.imagePath != "" {
		return errors.New("--text and --image are mutually exclusive")
	}

	logger := zap.NewNop()
	if opts.verbose {
		var err error
		if logger, err = zap.NewDevelopment(); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		defer logger.Sync() //nolint:errcheck
	}

	rules := extraction.DefaultRules()
	if opts.rulesPath != "" {
		var err error
		if rules, err = extraction.LoadRules(opts.rulesPath); err != nil {
			return err
		}
	}
	extractor := extraction.New(rules)

	var (
		result output
		err    error
	)
	switch {
	case opts.imagePath != "":
		result, err = extractImage(ctx, extractor, opts, logger)
	case opts.textPath != "":
		var f *os.File
		if f, err = os.Open(opts.textPath); err != nil {
			return err
		}
		defer f.Close()
		result.Candidates, err = extractor.ExtractFrom(f, opts.operator)
	default:
		result.Candidates, err = extractor.ExtractFrom(stdin, opts.operator)
	}
	if err != nil {
		return err
	}
	result.Found = len(result.Candidates)
	logger.Info("extraction finished", zap.Int("found", result.Found))

	enc := json.NewEncoder(stdout)
	if opts.pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(result)
}

func extractImage(ctx context.Context, extractor *extraction.Extractor, opts options, logger *zap.Logger) (output, error) {
	data, err := os.ReadFile(opts.imagePath)
	if err != nil {
		return output{}, err
	}
	normalized, err := ocr.Normalize(data)
	if err != nil {
		return output{}, fmt.Errorf("%s: %w", opts.imagePath, err)
	}

	engine := tesseract.NewEngine(tesseract.Options{
		Languages:      opts.languages,
		PageSegMode:    opts.psm,
		MaxConcurrency: 1,
	})
	recognized, err := engine.Recognize(ctx, ocr.Input{Image: normalized, Languages: opts.languages})
	if err != nil {
		return output{}, fmt.Errorf("recognize %s: %w", opts.imagePath, err)
	}
	logger.Info("image recognized",
		zap.String("file", opts.imagePath),
		zap.Float64("confidence", recognized.Confidence),
		zap.String("languages", strings.Join(opts.languages, "+")))

	candidates, err := extractor.ExtractFrom(strings.NewReader(recognized.Text), opts.operator)
	if err != nil {
		return output{}, err
	}
	return output{Confidence: &recognized.Confidence, Candidates: candidates}, nil
}
