// Package codec reads and writes pixel books in the .pxl binary format and
// provides FileService, a directory-backed book store.
//
// # Format
//
// All integers are little-endian.
//
//	offset  size  field
//	0       4     magic        0x00504958 ("PIX")
//	4       2     version      1
//	6       2     width
//	8       2     height
//	10      2     frame_count
//	12      4     reserved     zero
//	16      8*n   directory    n × {offset:u32, size:u32}
//	...           frame data   raw RGBA bytes, frame after frame
//
// Each directory offset is absolute from the start of the file and each
// size must equal width*height*4. The encoder writes frames back to back
// starting at 16 + frame_count*8.
//
// Encoding is not atomic: a failed write leaves a partial file behind.
package codec

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"

	"github.com/pixlkit/pixl/pkg/book"
	perrors "github.com/pixlkit/pixl/pkg/errors"
)

// Format constants.
const (
	Magic         uint32 = 0x504958
	Version       uint16 = 1
	HeaderSize           = 16
	DirEntrySize         = 8
	Extension            = perrors.BookExtension
	maxFrameCount        = math.MaxUint16
)

// Header is the fixed 16-byte file header.
type Header struct {
	Magic      uint32
	Version    uint16
	Width      uint16
	Height     uint16
	FrameCount uint16
	Reserved   [4]byte
}

// DirEntry locates one frame's pixel data.
type DirEntry struct {
	Offset uint32
	Size   uint32
}

// FrameSize returns width*height*4 for the header's dimensions.
func (h Header) FrameSize() uint64 {
	return uint64(h.Width) * uint64(h.Height) * book.BytesPerPixel
}

// ReadHeader reads the 16-byte header and validates only the magic number.
// It is cheap enough to call on every file of a directory listing.
func ReadHeader(r io.Reader) (Header, error) {
	var h Header
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return Header{}, err
	}
	if h.Magic != Magic {
		return Header{}, perrors.New(perrors.ErrCodeInvalidFormat, "invalid magic number 0x%08x", h.Magic)
	}
	return h, nil
}

// Decode reads a complete book from r. filename becomes the book's logical
// name; it is not interpreted.
//
// Format violations fail with INVALID_FORMAT. Truncated data and directory
// entries pointing past the end of r surface as the underlying read error.
func Decode(r io.ReadSeeker, filename string) (*book.Book, error) {
	h, err := ReadHeader(r)
	if err != nil {
		return nil, err
	}
	if h.Version != Version {
		return nil, perrors.New(perrors.ErrCodeInvalidFormat, "unsupported version: %d", h.Version)
	}
	if h.Width == 0 || h.Height == 0 || h.FrameCount == 0 {
		return nil, perrors.New(perrors.ErrCodeInvalidFormat, "invalid dimensions or frame count")
	}

	dir := make([]DirEntry, h.FrameCount)
	if err := binary.Read(r, binary.LittleEndian, dir); err != nil {
		return nil, err
	}

	want := h.FrameSize()
	frames := make([]*book.Frame, len(dir))
	for i, e := range dir {
		if uint64(e.Size) != want {
			return nil, perrors.New(perrors.ErrCodeInvalidFormat, "invalid frame size for frame %d", i)
		}
		if _, err := r.Seek(int64(e.Offset), io.SeekStart); err != nil {
			return nil, err
		}
		pix := make([]byte, e.Size)
		if _, err := io.ReadFull(r, pix); err != nil {
			return nil, err
		}
		frames[i] = &book.Frame{Index: i, Pix: pix}
	}

	return &book.Book{
		Filename: filename,
		Width:    h.Width,
		Height:   h.Height,
		Frames:   frames,
	}, nil
}

// Encode writes b to w: header, directory, then every frame in order.
//
// Books that cannot be represented (more than 65535 frames, offsets that
// overflow 32 bits, or a frame buffer of the wrong length) fail with
// INVALID_FORMAT before anything is written.
func Encode(w io.Writer, b *book.Book) error {
	frameSize := uint64(b.FrameSize())
	count := len(b.Frames)
	if count == 0 || count > maxFrameCount {
		return perrors.New(perrors.ErrCodeInvalidFormat, "cannot encode %d frames", count)
	}
	dataStart := uint64(HeaderSize + count*DirEntrySize)
	if dataStart+frameSize*uint64(count) > math.MaxUint32 {
		return perrors.New(perrors.ErrCodeInvalidFormat, "book too large to encode: %d frames of %d bytes", count, frameSize)
	}
	for i, f := range b.Frames {
		if uint64(len(f.Pix)) != frameSize {
			return perrors.New(perrors.ErrCodeInvalidFormat, "frame %d has %d bytes, want %d", i, len(f.Pix), frameSize)
		}
	}

	bw := bufio.NewWriter(w)
	h := Header{
		Magic:      Magic,
		Version:    Version,
		Width:      b.Width,
		Height:     b.Height,
		FrameCount: uint16(count),
	}
	if err := binary.Write(bw, binary.LittleEndian, &h); err != nil {
		return err
	}

	dir := make([]DirEntry, count)
	offset := dataStart
	for i := range dir {
		dir[i] = DirEntry{Offset: uint32(offset), Size: uint32(frameSize)}
		offset += frameSize
	}
	if err := binary.Write(bw, binary.LittleEndian, dir); err != nil {
		return err
	}

	for _, f := range b.Frames {
		if _, err := bw.Write(f.Pix); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// EncodedSize returns the number of bytes Encode writes for b.
func EncodedSize(b *book.Book) int64 {
	n := len(b.Frames)
	return int64(HeaderSize+n*DirEntrySize) + int64(n)*int64(b.FrameSize())
}
