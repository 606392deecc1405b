// This tool writes every stream of an SCD container to its own wav file (or
// aiff file for PCM streams) stored in the same folder as the source.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"github.com/go-audio/aiff"
	"github.com/go-audio/audio"

	"github.com/cwbudde/scd"
	"github.com/cwbudde/scd/wav"
)

func main() {
	err := run(os.Args[1:], os.Stdout)
	if err != nil {
		log.Fatal(err)
	}
}

var errMissingPath = errors.New("you must set the -path flag")

// errSkipped marks streams whose codec can't be stored in the requested
// container format.
var errSkipped = errors.New("stream skipped")

func run(args []string, out io.Writer) error {
	flagSet := flag.NewFlagSet("scdextract", flag.ContinueOnError)
	flagSet.SetOutput(out)

	path := flagSet.String("path", "", "The path to the scd file to extract")
	outDir := flagSet.String("out", "", "The folder to write the streams to, defaults to the folder of the source")
	asAIFF := flagSet.Bool("aiff", false, "Write PCM streams as aiff files")

	if err := flagSet.Parse(args); err != nil {
		return err
	}

	if *path == "" {
		return errMissingPath
	}

	sourcePath, err := expandHome(*path)
	if err != nil {
		return err
	}

	c, err := scd.ReadFile(sourcePath)
	if err != nil {
		return err
	}

	dir := *outDir
	if dir == "" {
		dir = filepath.Dir(sourcePath)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	base := strings.TrimSuffix(filepath.Base(sourcePath), filepath.Ext(sourcePath))

	for i, s := range c.Streams {
		ext := ".wav"
		if *asAIFF {
			ext = ".aif"
		}

		outPath := filepath.Join(dir, fmt.Sprintf("%s_%03d%s", base, i, ext))

		err := extractStream(s, outPath, *asAIFF)
		if errors.Is(err, errSkipped) {
			fmt.Fprintf(out, "stream %d: %v\n", i, err)
			continue
		}

		if err != nil {
			return fmt.Errorf("stream %d: %w", i, err)
		}

		fmt.Fprintf(out, "stream %d (%s) extracted to %s\n", i, scd.CodecName(s.Header.Codec), outPath)
	}

	return nil
}

func expandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~/") {
		return path, nil
	}

	usr, err := user.Current()
	if err != nil {
		return "", fmt.Errorf("failed to get the user home directory: %w", err)
	}

	return strings.Replace(path, "~", usr.HomeDir, 1), nil
}

func extractStream(s *scd.Stream, outPath string, asAIFF bool) error {
	h := s.Header

	var (
		fmtChunk *wav.FmtChunk
		samples  uint32
	)

	switch h.Codec {
	case scd.CodecPCM16LE:
		if asAIFF {
			return writeAIFF(s, outPath)
		}

		fmtChunk = pcm16Fmt(int(h.ChannelCount), int(h.SampleRate))
	case scd.CodecMSADPCM:
		if asAIFF {
			return fmt.Errorf("%w: MS-ADPCM can't be stored as aiff", errSkipped)
		}

		// the stream's WAVEFORMATEX is stored as extra data
		f, err := wav.ParseFmtChunk(s.ExtraData)
		if err != nil {
			return fmt.Errorf("invalid MS-ADPCM format: %w", err)
		}

		fmtChunk = f
		if f.BlockAlign > 0 {
			samples = uint32(len(s.Payload)/int(f.BlockAlign)) * uint32(f.SamplesPerBlock())
		}
	default:
		return fmt.Errorf("%w: %s payloads are not supported", errSkipped, scd.CodecName(h.Codec))
	}

	outFile, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", outPath, err)
	}
	defer outFile.Close()

	encoder := wav.NewRawEncoder(outFile, fmtChunk)
	encoder.CompressedSamples = samples

	if err := encoder.WriteRaw(s.Payload); err != nil {
		return err
	}

	return encoder.Close()
}

func pcm16Fmt(channels, rate int) *wav.FmtChunk {
	return &wav.FmtChunk{
		FormatTag:      wav.FormatPCM,
		NumChannels:    uint16(channels),
		SampleRate:     uint32(rate),
		AvgBytesPerSec: uint32(rate * channels * 2),
		BlockAlign:     uint16(channels * 2),
		BitsPerSample:  16,
	}
}

func writeAIFF(s *scd.Stream, outPath string) error {
	outFile, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", outPath, err)
	}
	defer outFile.Close()

	channels, rate := int(s.Header.ChannelCount), int(s.Header.SampleRate)
	encoder := aiff.NewEncoder(outFile, rate, 16, channels)

	if err := encoder.Write(pcm16ToIntBuffer(s.Payload, channels, rate)); err != nil {
		return err
	}

	return encoder.Close()
}

func pcm16ToIntBuffer(data []byte, channels, rate int) *audio.IntBuffer {
	intBuf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: rate},
		SourceBitDepth: 16,
		Data:           make([]int, len(data)/2),
	}

	for i := range intBuf.Data {
		intBuf.Data[i] = int(int16(uint16(data[2*i]) | uint16(data[2*i+1])<<8))
	}

	return intBuf
}
