// Package audio holds the audio plumbing around speech providers: encoding
// raw PCM to WAV, reading WAV payloads back into samples, sample format
// helpers, ffmpeg transcoding and decoding, and unique temp file names.
package audio

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WriteWAV writes mono 16-bit samples at rate to a new WAV file at path.
// The file is removed again if encoding fails.
func WriteWAV(path string, samples []int16, rate int) (err error) {
	if rate <= 0 {
		return fmt.Errorf("audio: write wav: invalid sample rate %d", rate)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("audio: write wav: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("audio: write wav: %w", cerr)
		}
		if err != nil {
			_ = os.Remove(path)
		}
	}()

	enc := wav.NewEncoder(f, rate, 16, 1, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: rate},
		Data:           make([]int, len(samples)),
		SourceBitDepth: 16,
	}
	for i, s := range samples {
		buf.Data[i] = int(s)
	}
	if err := enc.Write(buf); err != nil {
		_ = enc.Close()
		return fmt.Errorf("audio: write wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("audio: write wav: %w", err)
	}
	return nil
}

// ReadWAV decodes a 16-bit PCM WAV stream into mono samples and returns them
// with the stream's sample rate. Multi-channel input is downmixed.
func ReadWAV(r io.ReadSeeker) ([]int16, int, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, 0, errors.New("audio: read wav: not a valid wav stream")
	}
	if dec.BitDepth != 16 {
		return nil, 0, fmt.Errorf("audio: read wav: unsupported bit depth %d", dec.BitDepth)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("audio: read wav: %w", err)
	}
	channels := int(dec.NumChans)
	rate := int(dec.SampleRate)

	samples := make([]int16, len(buf.Data))
	for i, v := range buf.Data {
		samples[i] = int16(v)
	}
	if channels > 1 {
		slog.Debug("audio: downmixing wav", "format", describe(rate, channels))
		samples = Downmix(samples, channels)
	}
	return samples, rate, nil
}
