package tools

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
)

// ADPCMEncode encodes PCM WAV files to MS-ADPCM with adpcmencode3.
type ADPCMEncode struct {
	runner *Runner
	path   string
	// BlockSize is passed to -b.
	BlockSize int
}

// NewADPCMEncode locates adpcmencode3.
func NewADPCMEncode(r *Runner) (*ADPCMEncode, error) {
	path, err := r.Find("adpcmencode3", "adpcmencode")
	if err != nil {
		return nil, fmt.Errorf("adpcmencode: %w", err)
	}

	return &ADPCMEncode{runner: r, path: path, BlockSize: 32}, nil
}

// Encode compresses the PCM WAV input into the MS-ADPCM WAV output.
func (a *ADPCMEncode) Encode(ctx context.Context, input, output string) error {
	_, err := a.runner.Run(ctx, a.path, "-b", strconv.Itoa(a.BlockSize), input, output)
	if err != nil {
		return err
	}

	return checkOutput(filepath.Base(a.path), output)
}
