// This tool repacks a container with a sine tone in every stream. Each slot
// plays one semitone higher than the previous one, which makes the slot order
// audible in game.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"math"
	"os"

	"github.com/go-audio/audio"

	"github.com/cwbudde/scd"
	"github.com/cwbudde/scd/wav"
)

func main() {
	err := run(os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}
}

var errMissingTemplate = errors.New("you must set the -template flag")

func run(args []string) error {
	flagSet := flag.NewFlagSet("scdtone", flag.ContinueOnError)

	template := flagSet.String("template", "", "container whose layout is kept")
	output := flagSet.String("output", "output.win32.scd", "filename to write to")
	frequency := flagSet.Float64("frequency", 440, "frequency in hertz of the first stream")
	length := flagSet.Float64("length", 1, "length in seconds of each stream")

	err := flagSet.Parse(args)
	if err != nil {
		return err
	}

	if *template == "" {
		return errMissingTemplate
	}

	c, err := scd.ReadFile(*template)
	if err != nil {
		return err
	}

	log.Printf("generating %d stream(s) of %f sec starting at %f hz", len(c.Streams), *length, *frequency)

	payloads := make([]*scd.Payload, len(c.Streams))

	for i, s := range c.Streams {
		freq := *frequency * math.Pow(2, float64(i)/12)

		payloads[i], err = tonePayload(freq, *length, int(s.Header.ChannelCount), int(s.Header.SampleRate))
		if err != nil {
			return fmt.Errorf("stream %d: %w", i, err)
		}

		if err := scd.CheckPayloadFormat(s, payloads[i]); err != nil {
			log.Printf("stream %d: %v", i, err)
		}
	}

	if err := scd.WriteFile(*output, c, payloads); err != nil {
		return fmt.Errorf("error writing %s: %w", *output, err)
	}

	return nil
}

// tonePayload renders a 16 bit PCM sine with the same signal on every
// channel.
func tonePayload(frequency, length float64, channels, sampleRate int) (*scd.Payload, error) {
	if channels <= 0 || sampleRate <= 0 {
		return nil, fmt.Errorf("invalid stream format: %d channel(s) at %d Hz", channels, sampleRate)
	}

	numFrames := int(math.Round(float64(sampleRate) * length))
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: sampleRate},
		SourceBitDepth: 16,
		Data:           make([]int, numFrames*channels),
	}

	for i := range numFrames {
		v := int(math.Round(math.Sin(float64(i)/float64(sampleRate)*frequency*2*math.Pi) * 32767))
		for ch := range channels {
			buf.Data[i*channels+ch] = v
		}
	}

	data, err := wav.EncodeIntPCM(buf, 16)
	if err != nil {
		return nil, err
	}

	return &scd.Payload{
		Data:       scd.Align(data, scd.PayloadAlignment),
		NumChans:   channels,
		SampleRate: sampleRate,
		FormatTag:  wav.FormatPCM,
		BitDepth:   16,
		Source:     fmt.Sprintf("%.2f Hz tone", frequency),
	}, nil
}
