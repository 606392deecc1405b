// This tool repacks an SCD sound bank with new audio. Every source file (or
// every supported file below a directory) is decoded, resampled, encoded to
// MS-ADPCM and written over the streams of the original container as
// <output dir>/<name>.win32.scd.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/cwbudde/scd"
	"github.com/cwbudde/scd/internal/converter"
	"github.com/cwbudde/scd/internal/native"
	"github.com/cwbudde/scd/internal/tools"
)

const usage = "Usage: scdencoder [flags] <file|dir> <output dir> <original scd file>"

var errUsage = errors.New("expected a source, an output directory and a template container")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)

	err := run(ctx, os.Args[1:], os.Stdout)

	stop()

	switch {
	case err == nil:
		return
	case errors.Is(err, flag.ErrHelp):
		os.Exit(2)
	case errors.Is(err, errUsage):
		fmt.Println(usage)
		os.Exit(1)
	}

	slog.Error("conversion failed", "error", err)
	os.Exit(1)
}

type config struct {
	input       string
	outputDir   string
	template    string
	mappingsDir string
	toolsDir    string
	tmpDir      string
	rate        int
	timeout     time.Duration
	keepTmp     bool
	pcm         bool
	native      bool
	debug       bool
}

func parseFlags(args []string, out io.Writer) (*config, error) {
	cfg := &config{}

	flagSet := flag.NewFlagSet("scdencoder", flag.ContinueOnError)
	flagSet.SetOutput(out)
	flagSet.Usage = func() {
		fmt.Fprintln(out, usage)
		flagSet.PrintDefaults()
	}

	flagSet.StringVar(&cfg.mappingsDir, "mappings", "", "directory of JSON stream mapping tables")
	flagSet.StringVar(&cfg.toolsDir, "tools", "", "directory holding vgmstream-cli, sox and adpcmencode3, searched before PATH")
	flagSet.StringVar(&cfg.tmpDir, "tmp", "", "parent directory of the work directories")
	flagSet.IntVar(&cfg.rate, "rate", converter.DefaultRate, "sample rate of the repacked streams")
	flagSet.DurationVar(&cfg.timeout, "timeout", tools.DefaultTimeout, "maximum run time of a single tool invocation")
	flagSet.BoolVar(&cfg.keepTmp, "keep-tmp", false, "keep the work directories")
	flagSet.BoolVar(&cfg.pcm, "pcm", false, "store 16 bit PCM instead of encoding MS-ADPCM")
	flagSet.BoolVar(&cfg.native, "native", false, "resample in-process even when sox is available")
	flagSet.BoolVar(&cfg.debug, "d", false, "enable debug logging")

	if err := flagSet.Parse(args); err != nil {
		return nil, err
	}

	if flagSet.NArg() != 3 {
		return nil, errUsage
	}

	cfg.input, cfg.outputDir, cfg.template = flagSet.Arg(0), flagSet.Arg(1), flagSet.Arg(2)

	if cfg.rate <= 0 {
		return nil, fmt.Errorf("invalid -rate %d", cfg.rate)
	}

	return cfg, nil
}

func newLogger(out io.Writer, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	return slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}))
}

func run(ctx context.Context, args []string, out io.Writer) error {
	cfg, err := parseFlags(args, out)
	if err != nil {
		return err
	}

	logger := newLogger(out, cfg.debug)

	template, err := scd.ReadFile(cfg.template)
	if err != nil {
		return fmt.Errorf("failed to read the original container: %w", err)
	}

	logger.Info("template loaded", "path", cfg.template, "container", template.String())

	var mappings *scd.MappingTable

	if cfg.mappingsDir != "" {
		mappings, err = scd.LoadMappingTable(cfg.mappingsDir)
		if err != nil {
			return err
		}

		logger.Info("mapping tables loaded", "entries", mappings.Len())
		logger.Debug("mapped files", "names", mappings.Names())
	}

	runner := tools.NewRunner(cfg.toolsDir, cfg.timeout, logger)

	options, err := collaborators(cfg, runner, template, logger)
	if err != nil {
		return err
	}

	options.Mappings = mappings
	options.Rate = cfg.rate
	options.TmpDir = cfg.tmpDir
	options.KeepTmp = cfg.keepTmp
	options.Logger = logger

	c, err := converter.NewConverter(template, options)
	if err != nil {
		return err
	}

	report, err := c.Convert(ctx, cfg.input, cfg.outputDir)
	if err != nil {
		return err
	}

	for _, f := range report.Failed {
		logger.Error("not converted", "file", f.Input, "error", f.Err)
	}

	return report.Err()
}

// collaborators picks the decoders, the resampler and the encoder. Missing
// optional tools fall back to the in-process implementations.
func collaborators(cfg *config, runner *tools.Runner, template *scd.Container, logger *slog.Logger) (converter.Options, error) {
	options := converter.Options{Decoders: map[string]converter.Decoder{}}

	for _, ext := range native.Extensions {
		options.Decoders[ext] = native.Decoder{}
	}

	if v, err := tools.NewVgmstream(runner); err == nil {
		options.Decoders[".vsb"] = v
	} else {
		logger.Warn(".vsb sources are disabled", "error", err)
	}

	options.Resampler = native.Resampler{}

	if !cfg.native {
		if s, err := tools.NewSox(runner); err == nil {
			options.Resampler = s
		} else {
			logger.Info("resampling in-process", "reason", err)
		}
	}

	if cfg.pcm || converter.AllStreamsPCM(template) {
		logger.Info("keeping 16 bit PCM payloads")

		options.Encoder = converter.PassthroughEncoder{}

		return options, nil
	}

	enc, err := tools.NewADPCMEncode(runner)
	if err != nil {
		return options, fmt.Errorf("%w (use -pcm to skip MS-ADPCM encoding)", err)
	}

	options.Encoder = enc

	return options, nil
}
