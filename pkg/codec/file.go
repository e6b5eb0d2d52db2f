package codec

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/pixlkit/pixl/pkg/book"
	perrors "github.com/pixlkit/pixl/pkg/errors"
)

// DefaultFrameCount is reported for listed files whose header cannot be read.
const DefaultFrameCount = 1

// Info describes a stored book without its pixel data.
type Info struct {
	Filename string    `json:"filename"`
	Size     int64     `json:"size"`
	Created  time.Time `json:"created"`
	Modified time.Time `json:"modified"`
	Frames   int       `json:"frames"`
}

// FileService stores books as .pxl files in a base directory.
//
// The base directory can be changed at runtime with SetPath. FileService
// itself is not goroutine-safe; callers that share one instance must
// serialize access (package library does this with a read/write lock).
type FileService struct {
	dir string
}

// NewFileService creates a FileService rooted at dir. The directory is not
// checked; use SetPath for a validated change of location.
func NewFileService(dir string) *FileService {
	return &FileService{dir: dir}
}

// Path returns the current base directory.
func (s *FileService) Path() string {
	return s.dir
}

// SetPath changes the base directory. It fails with INVALID_PATH unless
// dir exists and is a directory.
func (s *FileService) SetPath(dir string) error {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return perrors.New(perrors.ErrCodeInvalidPath, "invalid path: %s", dir)
	}
	s.dir = dir
	return nil
}

// List returns every *.pxl file in the base directory, sorted by name.
// Only the 16-byte header of each file is read; a file whose header cannot
// be parsed is still listed, with DefaultFrameCount frames.
func (s *FileService) List(ctx context.Context) ([]Info, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}

	var books []Info
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != Extension {
			continue
		}
		fi, err := entry.Info()
		if err != nil {
			return nil, err
		}
		path := filepath.Join(s.dir, entry.Name())
		frames, err := frameCount(path)
		if err != nil {
			frames = DefaultFrameCount
		}
		books = append(books, Info{
			Filename: entry.Name(),
			Size:     fi.Size(),
			Created:  createdTime(fi),
			Modified: fi.ModTime().UTC(),
			Frames:   frames,
		})
	}

	sort.Slice(books, func(i, j int) bool { return books[i].Filename < books[j].Filename })
	return books, nil
}

// Exists reports whether a book file with the given name exists.
func (s *FileService) Exists(ctx context.Context, filename string) (bool, error) {
	_, err := os.Stat(s.path(filename))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// Load decodes the named book from the base directory.
// A missing file returns an error satisfying errors.Is(err, fs.ErrNotExist).
func (s *FileService) Load(ctx context.Context, filename string) (*book.Book, error) {
	f, err := os.Open(s.path(filename))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f, filename)
}

// Save encodes b into <base>/<b.Filename>, creating or truncating the file.
// The write is not atomic.
func (s *FileService) Save(ctx context.Context, b *book.Book) error {
	f, err := os.OpenFile(s.path(b.Filename), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	if err := Encode(f, b); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Create builds a transparent book and saves it.
// Zero dimensions or a zero frame count fail with INVALID_FORMAT.
func (s *FileService) Create(ctx context.Context, filename string, width, height uint16, frames int) (*book.Book, error) {
	if width == 0 || height == 0 || frames <= 0 {
		return nil, perrors.New(perrors.ErrCodeInvalidFormat, "width, height, and frame count must be greater than 0")
	}
	b, err := book.New(filename, width, height, frames)
	if err != nil {
		return nil, err
	}
	if err := s.Save(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// FullPath returns the absolute-or-relative file path for filename.
func (s *FileService) FullPath(filename string) string {
	return s.path(filename)
}

func (s *FileService) path(filename string) string {
	return filepath.Join(s.dir, filename)
}

func frameCount(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	h, err := ReadHeader(f)
	if err != nil {
		return 0, err
	}
	return int(h.FrameCount), nil
}

// createdTime returns the best available creation time. Birth time is not
// exposed portably by os.FileInfo, so the modification time stands in.
func createdTime(fi os.FileInfo) time.Time {
	return fi.ModTime().UTC()
}
