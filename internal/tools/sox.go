package tools

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
)

// Sox resamples WAV files with SoX.
type Sox struct {
	runner *Runner
	path   string
}

// NewSox locates the sox executable.
func NewSox(r *Runner) (*Sox, error) {
	path, err := r.Find("sox")
	if err != nil {
		return nil, fmt.Errorf("sox: %w", err)
	}

	return &Sox{runner: r, path: path}, nil
}

// Resample converts input to rate Hz and writes it to output.
func (s *Sox) Resample(ctx context.Context, input, output string, rate int) error {
	_, err := s.runner.Run(ctx, s.path, input, "--rate", strconv.Itoa(rate), output)
	if err != nil {
		return err
	}

	return checkOutput(filepath.Base(s.path), output)
}
