package codec

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"math/rand"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/pixlkit/pixl/pkg/book"
	perrors "github.com/pixlkit/pixl/pkg/errors"
)

func randomBook(t *testing.T, rng *rand.Rand, w, h uint16, frames int) *book.Book {
	t.Helper()
	b, err := book.New("rand.pxl", w, h, frames)
	if err != nil {
		t.Fatalf("book.New: %v", err)
	}
	for _, f := range b.Frames {
		rng.Read(f.Pix)
	}
	return b
}

func encode(t *testing.T, b *book.Book) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := Encode(&buf, b); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	return buf.Bytes()
}

func TestRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	tests := []struct {
		name   string
		w, h   uint16
		frames int
	}{
		{"single pixel", 1, 1, 1},
		{"wide", 64, 1, 3},
		{"tall", 1, 64, 2},
		{"square multi-frame", 16, 16, 10},
		{"many frames", 3, 5, 1000},
		{"max width", 4096, 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := randomBook(t, rng, tt.w, tt.h, tt.frames)
			data := encode(t, b)

			if int64(len(data)) != EncodedSize(b) {
				t.Errorf("len = %d, EncodedSize = %d", len(data), EncodedSize(b))
			}

			got, err := Decode(bytes.NewReader(data), "rand.pxl")
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if diff := cmp.Diff(b, got); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEncodeLayout(t *testing.T) {
	b, _ := book.New("layout.pxl", 2, 1, 2)
	_ = b.SetPixel(0, 0, 0, book.RGBA(1, 2, 3, 4))
	_ = b.SetPixel(1, 1, 0, book.RGBA(5, 6, 7, 8))

	want := []byte{
		0x58, 0x49, 0x50, 0x00, // magic
		0x01, 0x00, // version
		0x02, 0x00, // width
		0x01, 0x00, // height
		0x02, 0x00, // frame count
		0, 0, 0, 0, // reserved
		32, 0, 0, 0, 8, 0, 0, 0, // frame 0: offset 16+2*8, size 8
		40, 0, 0, 0, 8, 0, 0, 0, // frame 1
		1, 2, 3, 4, 0, 0, 0, 0,
		0, 0, 0, 0, 5, 6, 7, 8,
	}
	if diff := cmp.Diff(want, encode(t, b)); diff != "" {
		t.Errorf("encoded bytes mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeRejectsMagic(t *testing.T) {
	b, _ := book.New("x.pxl", 2, 2, 1)
	data := encode(t, b)
	data[0] ^= 0xFF

	_, err := Decode(bytes.NewReader(data), "x.pxl")
	if !perrors.Is(err, perrors.ErrCodeInvalidFormat) {
		t.Errorf("Decode() error = %v, want %s", err, perrors.ErrCodeInvalidFormat)
	}
}

func TestDecodeRejectsVersion(t *testing.T) {
	b, _ := book.New("x.pxl", 2, 2, 1)
	data := encode(t, b)
	binary.LittleEndian.PutUint16(data[4:], 2)

	_, err := Decode(bytes.NewReader(data), "x.pxl")
	if !perrors.Is(err, perrors.ErrCodeInvalidFormat) {
		t.Errorf("Decode() error = %v, want %s", err, perrors.ErrCodeInvalidFormat)
	}
	if !strings.Contains(err.Error(), "version") {
		t.Errorf("error %q should mention the version", err)
	}
}

func TestDecodeRejectsZeroHeaderFields(t *testing.T) {
	for _, field := range []struct {
		name string
		off  int
	}{{"width", 6}, {"height", 8}, {"frame count", 10}} {
		t.Run(field.name, func(t *testing.T) {
			b, _ := book.New("x.pxl", 2, 2, 1)
			data := encode(t, b)
			binary.LittleEndian.PutUint16(data[field.off:], 0)

			_, err := Decode(bytes.NewReader(data), "x.pxl")
			if !perrors.Is(err, perrors.ErrCodeInvalidFormat) {
				t.Errorf("Decode() error = %v, want %s", err, perrors.ErrCodeInvalidFormat)
			}
		})
	}
}

func TestDecodeRejectsFrameSize(t *testing.T) {
	b, _ := book.New("x.pxl", 2, 2, 3)
	data := encode(t, b)
	// Directory entry for frame 2 starts at 16 + 2*8; size is its second word.
	binary.LittleEndian.PutUint32(data[16+2*8+4:], 15)

	_, err := Decode(bytes.NewReader(data), "x.pxl")
	if !perrors.Is(err, perrors.ErrCodeInvalidFormat) {
		t.Fatalf("Decode() error = %v, want %s", err, perrors.ErrCodeInvalidFormat)
	}
	if !strings.Contains(err.Error(), "frame 2") {
		t.Errorf("error %q should name frame 2", err)
	}
}

func TestDecodeTruncated(t *testing.T) {
	b, _ := book.New("x.pxl", 4, 4, 2)
	data := encode(t, b)

	tests := []struct {
		name string
		data []byte
	}{
		{"short header", data[:10]},
		{"short directory", data[:HeaderSize+4]},
		{"short frame data", data[:len(data)-1]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(bytes.NewReader(tt.data), "x.pxl")
			if err == nil {
				t.Fatal("Decode() should fail on truncated input")
			}
			if perrors.GetCode(err) != "" {
				t.Errorf("truncation should surface as an I/O error, got code %s", perrors.GetCode(err))
			}
			if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
				t.Errorf("Decode() error = %v, want EOF-type error", err)
			}
		})
	}
}

func TestDecodeOffsetBeyondEnd(t *testing.T) {
	b, _ := book.New("x.pxl", 2, 2, 1)
	data := encode(t, b)
	binary.LittleEndian.PutUint32(data[HeaderSize:], 10_000)

	_, err := Decode(bytes.NewReader(data), "x.pxl")
	if !errors.Is(err, io.EOF) {
		t.Errorf("Decode() error = %v, want io.EOF", err)
	}
}

func TestEncodeRejectsBadFrame(t *testing.T) {
	b, _ := book.New("x.pxl", 2, 2, 2)
	b.Frames[1].Pix = b.Frames[1].Pix[:3]

	var buf bytes.Buffer
	err := Encode(&buf, b)
	if !perrors.Is(err, perrors.ErrCodeInvalidFormat) {
		t.Errorf("Encode() error = %v, want %s", err, perrors.ErrCodeInvalidFormat)
	}
	if buf.Len() != 0 {
		t.Errorf("Encode() wrote %d bytes before failing", buf.Len())
	}
}

func TestEncodeRejectsOversize(t *testing.T) {
	// 4096*4096*4 = 64 MiB per frame; 65 frames overflow a u32 offset.
	// Frames are not allocated: the size check runs before any access.
	b := &book.Book{Filename: "big.pxl", Width: 4096, Height: 4096, Frames: make([]*book.Frame, 65)}

	err := Encode(io.Discard, b)
	if !perrors.Is(err, perrors.ErrCodeInvalidFormat) {
		t.Errorf("Encode() error = %v, want %s", err, perrors.ErrCodeInvalidFormat)
	}
}

type failingWriter struct{ n int }

func (w *failingWriter) Write(p []byte) (int, error) {
	if w.n <= 0 {
		return 0, io.ErrShortWrite
	}
	w.n--
	return len(p), nil
}

func TestEncodePropagatesWriteError(t *testing.T) {
	b, _ := book.New("x.pxl", 64, 64, 4)
	err := Encode(&failingWriter{}, b)
	if !errors.Is(err, io.ErrShortWrite) {
		t.Errorf("Encode() error = %v, want io.ErrShortWrite", err)
	}
}

func TestReadHeader(t *testing.T) {
	b, _ := book.New("x.pxl", 7, 9, 5)
	data := encode(t, b)

	h, err := ReadHeader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}
	want := Header{Magic: Magic, Version: Version, Width: 7, Height: 9, FrameCount: 5}
	if h != want {
		t.Errorf("ReadHeader() = %+v, want %+v", h, want)
	}
	if h.FrameSize() != 7*9*4 {
		t.Errorf("FrameSize() = %d", h.FrameSize())
	}
}
