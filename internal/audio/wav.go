package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"
)

var (
	// ErrNotWAV is returned when the data has no RIFF/WAVE header
	ErrNotWAV = errors.New("not a WAV file")

	// ErrUnsupportedFormat is returned for anything but 16-bit PCM
	ErrUnsupportedFormat = errors.New("unsupported WAV format")
)

const (
	wavFormatPCM  = 1
	wavHeaderSize = 44
)

// WAV is a decoded PCM WAV file.
type WAV struct {
	SampleRate    int
	Channels      int
	BitsPerSample int

	// Data holds the raw little-endian samples.
	Data []byte
}

// Duration returns the playing time of the samples.
func (w *WAV) Duration() time.Duration {
	frame := w.Channels * w.BitsPerSample / 8
	if frame == 0 || w.SampleRate == 0 {
		return 0
	}
	frames := len(w.Data) / frame
	return time.Duration(frames) * time.Second / time.Duration(w.SampleRate)
}

// DecodeWAV parses a RIFF/WAVE stream, skipping chunks other than fmt and data.
func DecodeWAV(r io.Reader) (*WAV, error) {
	var riff [12]byte
	if _, err := io.ReadFull(r, riff[:]); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotWAV, err)
	}
	if string(riff[0:4]) != "RIFF" || string(riff[8:12]) != "WAVE" {
		return nil, ErrNotWAV
	}

	w := &WAV{}
	gotFormat := false
	for {
		var hdr [8]byte
		if _, err := io.ReadFull(r, hdr[:]); err != nil {
			return nil, fmt.Errorf("reading chunk header: %w", err)
		}
		id := string(hdr[0:4])
		size := binary.LittleEndian.Uint32(hdr[4:8])

		switch id {
		case "fmt ":
			if size < 16 {
				return nil, fmt.Errorf("%w: fmt chunk of %d bytes", ErrUnsupportedFormat, size)
			}
			buf := make([]byte, size+size%2)
			if _, err := io.ReadFull(r, buf); err != nil {
				return nil, fmt.Errorf("reading fmt chunk: %w", err)
			}
			if format := binary.LittleEndian.Uint16(buf[0:2]); format != wavFormatPCM {
				return nil, fmt.Errorf("%w: format tag %d", ErrUnsupportedFormat, format)
			}
			w.Channels = int(binary.LittleEndian.Uint16(buf[2:4]))
			w.SampleRate = int(binary.LittleEndian.Uint32(buf[4:8]))
			w.BitsPerSample = int(binary.LittleEndian.Uint16(buf[14:16]))
			if w.BitsPerSample != 16 {
				return nil, fmt.Errorf("%w: %d bits per sample", ErrUnsupportedFormat, w.BitsPerSample)
			}
			gotFormat = true

		case "data":
			if !gotFormat {
				return nil, fmt.Errorf("%w: data before fmt", ErrUnsupportedFormat)
			}
			data, err := io.ReadAll(io.LimitReader(r, int64(size)))
			if err != nil {
				return nil, fmt.Errorf("reading data chunk: %w", err)
			}
			w.Data = data
			return w, nil

		default:
			if _, err := io.CopyN(io.Discard, r, int64(size+size%2)); err != nil {
				return nil, fmt.Errorf("skipping %q chunk: %w", id, err)
			}
		}
	}
}

// EncodeWAV writes 16-bit PCM samples as a canonical 44-byte header WAV.
func EncodeWAV(out io.Writer, sampleRate, channels int, data []byte) error {
	if channels < 1 || sampleRate < 1 {
		return fmt.Errorf("%w: %d Hz, %d channels", ErrUnsupportedFormat, sampleRate, channels)
	}
	blockAlign := channels * 2

	var buf bytes.Buffer
	buf.Grow(wavHeaderSize + len(data))
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+len(data)))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(wavFormatPCM))
	binary.Write(&buf, binary.LittleEndian, uint16(channels))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate*blockAlign))
	binary.Write(&buf, binary.LittleEndian, uint16(blockAlign))
	binary.Write(&buf, binary.LittleEndian, uint16(16))

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(len(data)))
	buf.Write(data)

	_, err := out.Write(buf.Bytes())
	return err
}

// Silence returns d worth of zeroed 16-bit samples.
func Silence(sampleRate, channels int, d time.Duration) []byte {
	frames := int(d * time.Duration(sampleRate) / time.Second)
	return make([]byte, frames*channels*2)
}
