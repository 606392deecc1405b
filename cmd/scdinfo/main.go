// This tool prints the layout of an SCD container: its headers, the opaque
// regions copied on repack and every stream.
package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/cwbudde/scd"
	"github.com/cwbudde/scd/wav"
)

const missingPathMessage = "You must pass the path of the container to inspect"

func main() {
	err := run(os.Args[1:], os.Stdout)
	if err == nil {
		return
	}

	if errors.Is(err, errMissingPath) {
		fmt.Println(missingPathMessage)
		os.Exit(1)
	}

	log.Fatal(err)
}

var errMissingPath = errors.New("missing path argument")

func run(args []string, out io.Writer) error {
	if len(args) < 1 {
		return errMissingPath
	}

	for i, path := range args {
		if i > 0 {
			fmt.Fprintln(out)
		}

		c, err := scd.ReadFile(path)
		if err != nil {
			return err
		}

		fmt.Fprintf(out, "%s: %s\n", path, c)
		printContainer(out, c)
	}

	return nil
}

func printContainer(out io.Writer, c *scd.Container) {
	fmt.Fprintf(out, "FileVersion: %d\n", c.Header.FileVersion)
	fmt.Fprintf(out, "SSCFVersion: %d\n", c.Header.SSCFVersion)
	fmt.Fprintf(out, "HeaderSize: %#x\n", c.Header.HeaderSize)
	fmt.Fprintf(out, "TotalFileSize: %d\n", c.Header.TotalFileSize)

	t := c.Tables
	fmt.Fprintf(out, "Tables: counts %d/%d/%d/%d, offsets %#x/%#x/%#x/%#x\n",
		t.Table0ElementCount, t.Table1ElementCount, t.Table2ElementCount, t.Table3ElementCount,
		t.Table1Offset, t.Table2Offset, t.Table3Offset, t.Table4Offset)

	fmt.Fprintf(out, "Tables region: %s\n", c.TablesRegion())
	fmt.Fprintf(out, "Stream preamble: %s\n", c.StreamPreambleRegion())

	for i, s := range c.Streams {
		h := s.Header
		fmt.Fprintf(out, "\tstream [%d]:\toffset %#x, %s, %d channel(s), %d Hz, %d bytes, loop %d-%d, extra %d bytes, aux chunks %d\n",
			i, s.Offset, scd.CodecName(h.Codec), h.ChannelCount, h.SampleRate, h.StreamSize,
			h.LoopStart, h.LoopEnd, h.ExtraDataSize, h.AuxChunkCount)

		if h.Codec != scd.CodecMSADPCM {
			continue
		}

		// MS-ADPCM streams carry their WAVEFORMATEX as extra data
		if f, err := wav.ParseFmtChunk(s.ExtraData); err == nil {
			fmt.Fprintf(out, "\t\t%s, block align %d, %d samples per block\n",
				wav.FormatName(f.FormatTag), f.BlockAlign, f.SamplesPerBlock())
		}
	}
}
