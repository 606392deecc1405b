// Package converter runs the repacking pipeline for source files: decode to
// PCM, resample, encode, then repack the template container with the results.
package converter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/cwbudde/scd"
)

// DefaultRate is the sample rate sources are resampled to.
const DefaultRate = 48000

// OutputSuffix is appended to the source name to build the output file name.
const OutputSuffix = ".win32.scd"

var (
	// ErrNoSources is returned when decoding a file produced no waveform.
	ErrNoSources = errors.New("no sources decoded")
	// ErrUnsupportedInput is returned for files no decoder is registered for.
	ErrUnsupportedInput = errors.New("unsupported input file")
)

// Decoder turns a source file into one PCM WAV file per stream, written to
// workDir, and returns their paths in stream order.
type Decoder interface {
	Decode(ctx context.Context, input, workDir string) ([]string, error)
}

// Resampler converts a PCM WAV file to another sample rate.
type Resampler interface {
	Resample(ctx context.Context, input, output string, rate int) error
}

// Encoder encodes a PCM WAV file into the format stored in the container.
type Encoder interface {
	Encode(ctx context.Context, input, output string) error
}

// Options represents the conversion options
type Options struct {
	// Decoders maps lower case file extensions, dot included, to decoders.
	Decoders  map[string]Decoder
	Resampler Resampler
	Encoder   Encoder
	// Mappings holds the slot mapping tables. It may be nil.
	Mappings *scd.MappingTable
	// Rate is the target sample rate; zero selects DefaultRate.
	Rate int
	// TmpDir is where work directories are created; empty selects the
	// system default.
	TmpDir string
	// KeepTmp leaves the work directories behind for inspection.
	KeepTmp bool
	Logger  *slog.Logger
}

// Converter handles the conversion process
type Converter struct {
	options  Options
	template *scd.Container
	resolver *scd.Resolver
	logger   *slog.Logger
}

// NewConverter creates a converter repacking template.
func NewConverter(template *scd.Container, options Options) (*Converter, error) {
	if template == nil {
		return nil, errors.New("converter: a template container is required")
	}

	if options.Resampler == nil || options.Encoder == nil {
		return nil, errors.New("converter: a resampler and an encoder are required")
	}

	if len(options.Decoders) == 0 {
		return nil, errors.New("converter: at least one decoder is required")
	}

	if options.Rate <= 0 {
		options.Rate = DefaultRate
	}

	decoders := make(map[string]Decoder, len(options.Decoders))
	for ext, d := range options.Decoders {
		decoders[strings.ToLower(ext)] = d
	}

	options.Decoders = decoders

	logger := options.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Converter{
		options:  options,
		template: template,
		resolver: &scd.Resolver{Table: options.Mappings},
		logger:   logger,
	}, nil
}

// Supported reports whether a decoder is registered for path.
func (c *Converter) Supported(path string) bool {
	_, ok := c.options.Decoders[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Extensions returns the registered extensions, sorted.
func (c *Converter) Extensions() []string {
	exts := make([]string, 0, len(c.options.Decoders))
	for ext := range c.options.Decoders {
		exts = append(exts, ext)
	}

	sort.Strings(exts)

	return exts
}

// OutputPath returns where the container converted from input is written.
func OutputPath(input, outputDir string) string {
	name := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	return filepath.Join(outputDir, name+OutputSuffix)
}

// ConvertFile converts a single source file into a container written to
// outputDir and returns the output path.
func (c *Converter) ConvertFile(ctx context.Context, input, outputDir string) (string, error) {
	name := filepath.Base(input)
	logger := c.logger.With("file", name)

	dec, ok := c.options.Decoders[strings.ToLower(filepath.Ext(input))]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedInput, input)
	}

	logger.Info("converting", "input", input)

	workDir, err := os.MkdirTemp(c.options.TmpDir, "scd-")
	if err != nil {
		return "", fmt.Errorf("failed to create work directory: %w", err)
	}

	if c.options.KeepTmp {
		logger.Info("keeping work directory", "dir", workDir)
	} else {
		defer os.RemoveAll(workDir)
	}

	payloads, err := c.buildPayloads(ctx, logger, dec, input, workDir)
	if err != nil {
		return "", fmt.Errorf("%s: %w", name, err)
	}

	ordered, err := c.order(logger, name, payloads)
	if err != nil {
		return "", fmt.Errorf("%s: %w", name, err)
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	output := OutputPath(input, outputDir)

	if err := scd.WriteFile(output, c.template, ordered); err != nil {
		return "", fmt.Errorf("%s: %w", name, err)
	}

	logger.Info("converted", "output", output, "streams", len(ordered))

	return output, nil
}

// buildPayloads decodes input and pushes every decoded stream through the
// resampler and the encoder.
func (c *Converter) buildPayloads(ctx context.Context, logger *slog.Logger, dec Decoder, input, workDir string) ([]*scd.Payload, error) {
	sources, err := dec.Decode(ctx, input, workDir)
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	if len(sources) == 0 {
		return nil, ErrNoSources
	}

	payloads := make([]*scd.Payload, 0, len(sources))

	for _, src := range sources {
		logger.Debug("stream decoded", "source", filepath.Base(src))

		base := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
		resampled := filepath.Join(workDir, fmt.Sprintf("%s@pcm-%d.wav", base, c.options.Rate))
		encoded := filepath.Join(workDir, base+"@enc.wav")

		if err := c.options.Resampler.Resample(ctx, src, resampled, c.options.Rate); err != nil {
			return nil, fmt.Errorf("resample %s: %w", filepath.Base(src), err)
		}

		if err := c.options.Encoder.Encode(ctx, resampled, encoded); err != nil {
			return nil, fmt.Errorf("encode %s: %w", filepath.Base(src), err)
		}

		p, err := scd.LoadPayload(encoded)
		if err != nil {
			return nil, err
		}

		logger.Debug("payload ready", "payload", p.String())

		payloads = append(payloads, p)
	}

	return payloads, nil
}

// order arranges payloads in the slot order of the template and reports
// format mismatches.
func (c *Converter) order(logger *slog.Logger, name string, payloads []*scd.Payload) ([]*scd.Payload, error) {
	res, err := c.resolver.Resolve(name, c.template.StreamCount(), len(payloads))
	if err != nil {
		return nil, err
	}

	if res.Warning != nil {
		logger.Warn(res.Warning.Error())
	}

	ordered, err := scd.Reorder(payloads, res.Order)
	if err != nil {
		return nil, err
	}

	for i, s := range c.template.Streams {
		if err := scd.CheckPayloadFormat(s, ordered[i]); err != nil {
			logger.Warn("stream format differs from the template", "slot", i, "error", err)
		}
	}

	return ordered, nil
}

// Failure records a file that couldn't be converted.
type Failure struct {
	Input string
	Err   error
}

// Report summarizes a batch conversion.
type Report struct {
	// Converted holds the paths of the written containers.
	Converted []string
	Failed    []Failure
	Duration  time.Duration
}

// Err joins the errors of all failed files, or returns nil.
func (r *Report) Err() error {
	if r == nil || len(r.Failed) == 0 {
		return nil
	}

	errs := make([]error, len(r.Failed))
	for i, f := range r.Failed {
		errs[i] = f.Err
	}

	return errors.Join(errs...)
}

// Convert converts input, a single file or a directory, into outputDir.
func (c *Converter) Convert(ctx context.Context, input, outputDir string) (*Report, error) {
	info, err := os.Stat(input)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}

	if info.IsDir() {
		return c.ProcessDirectory(ctx, input, outputDir)
	}

	start := time.Now()
	report := &Report{}

	output, err := c.ConvertFile(ctx, input, outputDir)
	if err != nil {
		report.Failed = append(report.Failed, Failure{Input: input, Err: err})
	} else {
		report.Converted = append(report.Converted, output)
	}

	report.Duration = time.Since(start)

	return report, nil
}

// ProcessDirectory converts every supported file below inputDir. Outputs go
// to outputDir/<name of inputDir>/<relative directory>. A failing file is
// recorded in the report and doesn't stop the batch.
func (c *Converter) ProcessDirectory(ctx context.Context, inputDir, outputDir string) (*Report, error) {
	c.logger.Info("scanning", "dir", inputDir)

	var files []string

	err := filepath.WalkDir(inputDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if !d.IsDir() && c.Supported(path) {
			files = append(files, path)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error scanning directory: %w", err)
	}

	c.logger.Info("planning", "files", len(files), "extensions", c.Extensions())

	root := filepath.Join(outputDir, filepath.Base(filepath.Clean(inputDir)))
	report := &Report{}
	start := time.Now()

	for _, file := range files {
		if err := ctx.Err(); err != nil {
			report.Duration = time.Since(start)
			return report, err
		}

		rel, err := filepath.Rel(inputDir, filepath.Dir(file))
		if err != nil {
			return report, fmt.Errorf("error calculating relative path: %w", err)
		}

		output, err := c.ConvertFile(ctx, file, filepath.Join(root, rel))
		if err != nil {
			c.logger.Error("conversion failed", "file", file, "error", err)
			report.Failed = append(report.Failed, Failure{Input: file, Err: err})

			continue
		}

		report.Converted = append(report.Converted, output)
	}

	report.Duration = time.Since(start)

	c.logger.Info("done",
		"converted", len(report.Converted),
		"failed", len(report.Failed),
		"total", len(files),
		"duration", report.Duration.Round(time.Millisecond))

	return report, nil
}

// PassthroughEncoder copies its input unchanged, keeping PCM payloads for
// templates whose streams are PCM.
type PassthroughEncoder struct{}

// Encode copies input to output.
func (PassthroughEncoder) Encode(ctx context.Context, input, output string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	in, err := os.Open(input)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", input, err)
	}
	defer in.Close()

	out, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", output, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("failed to copy %s: %w", input, err)
	}

	return out.Close()
}

// AllStreamsPCM reports whether every stream of c is 16 bit PCM.
func AllStreamsPCM(c *scd.Container) bool {
	if c == nil || len(c.Streams) == 0 {
		return false
	}

	for _, s := range c.Streams {
		if s.Header.Codec != scd.CodecPCM16LE {
			return false
		}
	}

	return true
}
