package audio

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// FFmpeg runs the ffmpeg binary to transcode and decode audio files.
type FFmpeg struct {
	bin     string
	bitrate int
	observe func(ctx context.Context, d time.Duration)
}

// FFmpegOption configures an [FFmpeg].
type FFmpegOption func(*FFmpeg)

// WithBinary overrides the ffmpeg executable. Default: "ffmpeg" from PATH.
func WithBinary(path string) FFmpegOption {
	return func(f *FFmpeg) {
		if path != "" {
			f.bin = path
		}
	}
}

// WithBitrate sets the bitrate in kbit/s for lossy codecs. Default: 128.
func WithBitrate(kbps int) FFmpegOption {
	return func(f *FFmpeg) {
		if kbps > 0 {
			f.bitrate = kbps
		}
	}
}

// WithObserver registers a callback that receives the duration of every
// successful ffmpeg run.
func WithObserver(fn func(ctx context.Context, d time.Duration)) FFmpegOption {
	return func(f *FFmpeg) { f.observe = fn }
}

// NewFFmpeg returns an [FFmpeg] runner.
func NewFFmpeg(opts ...FFmpegOption) *FFmpeg {
	f := &FFmpeg{bin: "ffmpeg", bitrate: 128}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Check reports whether the ffmpeg binary can be found.
func (f *FFmpeg) Check(context.Context) error {
	if _, err := exec.LookPath(f.bin); err != nil {
		return fmt.Errorf("audio: ffmpeg not available: %w", err)
	}
	return nil
}

// codecFor maps a delivery format to an ffmpeg codec and whether the codec
// takes a bitrate.
func codecFor(format string) (string, bool, error) {
	switch strings.ToLower(format) {
	case "mp3":
		return "libmp3lame", true, nil
	case "ogg", "opus":
		return "libopus", true, nil
	case "wav":
		return "pcm_s16le", false, nil
	case "flac":
		return "flac", false, nil
	case "aac", "m4a":
		return "aac", true, nil
	default:
		return "", false, fmt.Errorf("audio: unsupported output format %q", format)
	}
}

// Formats returns the delivery formats [FFmpeg.Transcode] accepts.
func Formats() []string {
	return []string{"mp3", "ogg", "opus", "wav", "flac", "aac", "m4a"}
}

// MIMEType returns the content type of a delivery format.
func MIMEType(format string) string {
	switch strings.ToLower(format) {
	case "mp3":
		return "audio/mpeg"
	case "ogg", "opus":
		return "audio/ogg"
	case "wav":
		return "audio/wav"
	case "flac":
		return "audio/flac"
	case "aac":
		return "audio/aac"
	case "m4a":
		return "audio/mp4"
	default:
		return "application/octet-stream"
	}
}

// Transcode converts the file at in to format and writes it to out, resampled
// to rate Hz mono. The input file is left untouched.
func (f *FFmpeg) Transcode(ctx context.Context, in, out, format string, rate int) error {
	codec, hasBitrate, err := codecFor(format)
	if err != nil {
		return err
	}
	args := []string{"-y", "-hide_banner", "-loglevel", "error", "-i", in, "-ac", "1"}
	if rate > 0 {
		args = append(args, "-ar", strconv.Itoa(rate))
	}
	args = append(args, "-c:a", codec)
	if hasBitrate {
		args = append(args, "-b:a", strconv.Itoa(f.bitrate)+"k")
	}
	args = append(args, out)

	if _, err := f.run(ctx, args); err != nil {
		return fmt.Errorf("audio: transcode %s to %s: %w", in, format, err)
	}
	return nil
}

// DecodePCM decodes any audio file ffmpeg understands into mono 16-bit
// samples at rate Hz.
func (f *FFmpeg) DecodePCM(ctx context.Context, path string, rate int) ([]int16, error) {
	args := []string{"-hide_banner", "-loglevel", "error", "-i", path,
		"-f", "s16le", "-acodec", "pcm_s16le", "-ac", "1", "-ar", strconv.Itoa(rate), "pipe:1"}
	raw, err := f.run(ctx, args)
	if err != nil {
		return nil, fmt.Errorf("audio: decode %s: %w", path, err)
	}
	return FromLE(raw), nil
}

func (f *FFmpeg) run(ctx context.Context, args []string) ([]byte, error) {
	start := time.Now()
	cmd := exec.CommandContext(ctx, f.bin, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%w: %s", err, msg)
		}
		return nil, err
	}
	if f.observe != nil {
		f.observe(ctx, time.Since(start))
	}
	return stdout.Bytes(), nil
}
