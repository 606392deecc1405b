package tools

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

var streamCountRe = regexp.MustCompile(`(?m)^\s*stream count:\s*(\d+)`)

// Vgmstream decodes game audio banks to PCM WAV files with vgmstream-cli.
type Vgmstream struct {
	runner *Runner
	path   string
}

// NewVgmstream locates vgmstream-cli (or the legacy "test" binary).
func NewVgmstream(r *Runner) (*Vgmstream, error) {
	path, err := r.Find("vgmstream-cli", "test")
	if err != nil {
		return nil, fmt.Errorf("vgmstream: %w", err)
	}

	return &Vgmstream{runner: r, path: path}, nil
}

// Decode writes one PCM WAV file per subsong of input into workDir and
// returns their paths in subsong order.
func (v *Vgmstream) Decode(ctx context.Context, input, workDir string) ([]string, error) {
	info, err := v.runner.Run(ctx, v.path, "-m", input)
	if err != nil {
		return nil, err
	}

	count := streamCount(info)
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	outputs := make([]string, 0, count)

	for i := 1; i <= count; i++ {
		output := filepath.Join(workDir, fmt.Sprintf("%s_%03d.wav", base, i))

		_, err := v.runner.Run(ctx, v.path, "-s", strconv.Itoa(i), "-o", output, input)
		if err != nil {
			return nil, fmt.Errorf("subsong %d: %w", i, err)
		}

		if err := checkOutput(filepath.Base(v.path), output); err != nil {
			return nil, err
		}

		outputs = append(outputs, output)
	}

	return outputs, nil
}

// streamCount reads the subsong count from vgmstream's metadata output. Files
// without subsongs don't report a count.
func streamCount(info []byte) int {
	m := streamCountRe.FindSubmatch(info)
	if m == nil {
		return 1
	}

	n, err := strconv.Atoi(string(m[1]))
	if err != nil || n < 1 {
		return 1
	}

	return n
}
