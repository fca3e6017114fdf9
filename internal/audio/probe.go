// Package audio inspects voice recordings before they are sent for
// transcription.
package audio

import (
	"bytes"
	"errors"
	"fmt"
	"mime"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
)

var (
	// ErrEmpty is returned for a recording with no bytes.
	ErrEmpty = errors.New("audio is empty")
	// ErrTooLarge is returned when a recording exceeds the byte limit.
	ErrTooLarge = errors.New("audio is too large")
	// ErrTooLong is returned when a recording's duration exceeds the limit.
	ErrTooLong = errors.New("audio is too long")
	// ErrUnsupportedFormat is returned for data that is not a readable audio
	// container.
	ErrUnsupportedFormat = errors.New("unsupported audio format")
)

// mp3 decoders always produce 16-bit stereo samples.
const mp3BytesPerSample = 4

// Info describes a recording. Duration is zero when the container does not
// expose it cheaply.
type Info struct {
	MimeType   string
	Duration   time.Duration
	SampleRate int
	Channels   int
	Size       int
}

// Prober validates recordings against size and duration limits.
type Prober struct {
	maxBytes    int64
	maxDuration time.Duration
}

// NewProber creates a Prober. Zero limits are not enforced.
func NewProber(maxBytes int64, maxDuration time.Duration) *Prober {
	return &Prober{maxBytes: maxBytes, maxDuration: maxDuration}
}

// Probe sniffs the format of data and reads its duration where possible.
// declared is the client supplied content type and is only trusted when the
// content itself is not recognised.
func (p *Prober) Probe(data []byte, declared string) (Info, error) {
	if len(data) == 0 {
		return Info{}, ErrEmpty
	}
	if p.maxBytes > 0 && int64(len(data)) > p.maxBytes {
		return Info{}, fmt.Errorf("%w: %d bytes, limit %d", ErrTooLarge, len(data), p.maxBytes)
	}

	info := Info{Size: len(data)}
	detected := mimetype.Detect(data)

	switch {
	case isAudio(detected):
		info.MimeType = detected.String()
	case detected.Is("application/octet-stream") && isAudioType(declared):
		info.MimeType = baseType(declared)
	default:
		return Info{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, detected.String())
	}

	var err error
	switch {
	case detected.Is("audio/wav"):
		err = probeWAV(data, &info)
	case detected.Is("audio/mpeg"):
		err = probeMP3(data, &info)
	case detected.Is("audio/ogg"):
		err = probeOgg(data, &info)
	}
	if err != nil {
		return Info{}, fmt.Errorf("%w: %s: %v", ErrUnsupportedFormat, info.MimeType, err)
	}

	if p.maxDuration > 0 && info.Duration > p.maxDuration {
		return Info{}, fmt.Errorf("%w: %s, limit %s", ErrTooLong, info.Duration.Round(time.Millisecond), p.maxDuration)
	}
	return info, nil
}

func probeWAV(data []byte, info *Info) error {
	d := wav.NewDecoder(bytes.NewReader(data))
	if !d.IsValidFile() {
		if err := d.Err(); err != nil {
			return err
		}
		return errors.New("invalid wav file")
	}
	duration, err := d.Duration()
	if err != nil {
		return err
	}
	info.Duration = duration
	info.SampleRate = int(d.SampleRate)
	info.Channels = int(d.NumChans)
	return nil
}

func probeMP3(data []byte, info *Info) error {
	d, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return err
	}
	info.SampleRate = d.SampleRate()
	info.Channels = 2
	if n := d.Length(); n > 0 && info.SampleRate > 0 {
		samples := n / mp3BytesPerSample
		info.Duration = time.Duration(samples) * time.Second / time.Duration(info.SampleRate)
	}
	return nil
}

func probeOgg(data []byte, info *Info) error {
	samples, format, err := oggvorbis.GetLength(bytes.NewReader(data))
	if err != nil {
		return err
	}
	info.SampleRate = format.SampleRate
	info.Channels = format.Channels
	if format.SampleRate > 0 {
		info.Duration = time.Duration(samples) * time.Second / time.Duration(format.SampleRate)
	}
	return nil
}

func isAudio(m *mimetype.MIME) bool {
	for ; m != nil; m = m.Parent() {
		if isAudioType(m.String()) || m.Is("video/webm") {
			return true
		}
	}
	return false
}

func isAudioType(contentType string) bool {
	return strings.HasPrefix(baseType(contentType), "audio/")
}

func baseType(contentType string) string {
	t, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return t
}
