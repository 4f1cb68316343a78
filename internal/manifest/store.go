package manifest

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"github.com/agentx-labs/pkgderive/internal/platform"
)

// Store loads and persists manifests. Implementations decide how a path
// maps to storage; the Deriver never touches the filesystem directly.
type Store interface {
	// Read returns the manifest at path. It fails with ErrNotFound when
	// nothing readable as a file is stored there and with ErrParse when the
	// content is not a manifest record. Other failures, such as a denied
	// permission, are returned wrapped and match neither.
	Read(path string) (Manifest, error)
	// Write stores m at path, replacing any previous content. Failures
	// match ErrWrite.
	Write(path string, m Manifest) error
}

// FileStore reads and writes manifests on the local filesystem. The
// encoding is chosen per file with FormatFor.
type FileStore struct {
	// Perm is the mode given to written files. Zero means 0644.
	Perm os.FileMode
}

// NewFileStore returns a FileStore writing files with mode 0644.
func NewFileStore() *FileStore {
	return &FileStore{Perm: 0644}
}

// Read implements Store.
func (s *FileStore) Read(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || isDir(path) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("reading file %s: %w", path, err)
	}

	m, err := Decode(data, FormatFor(path))
	if err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}
	return m, nil
}

// Write implements Store. Parent directories are created as needed and the
// destination is replaced atomically.
func (s *FileStore) Write(path string, m Manifest) error {
	data, err := Encode(m, FormatFor(path))
	if err != nil {
		return fmt.Errorf("%w %s: %w", ErrWrite, path, err)
	}
	if err := platform.WriteFileAtomic(path, data, s.perm()); err != nil {
		return fmt.Errorf("%w %s: %w", ErrWrite, path, err)
	}
	return nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func (s *FileStore) perm() os.FileMode {
	if s.Perm == 0 {
		return 0644
	}
	return s.Perm
}

// MemStore keeps encoded manifests in memory. Content is stored in the
// encoding FormatFor picks for the path, so reads go through the same
// decoder as FileStore. The zero value is an empty store ready to use.
type MemStore struct {
	mu    sync.RWMutex
	files map[string][]byte

	// WriteErr, when set, makes every Write fail with it.
	WriteErr error
}

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{files: make(map[string][]byte)}
}

// Put encodes m and stores it at path.
func (s *MemStore) Put(path string, m Manifest) error {
	data, err := Encode(m, FormatFor(path))
	if err != nil {
		return err
	}
	s.PutRaw(path, data)
	return nil
}

// PutRaw stores data at path without checking it.
func (s *MemStore) PutRaw(path string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.files == nil {
		s.files = make(map[string][]byte)
	}
	s.files[path] = append([]byte(nil), data...)
}

// Raw returns the bytes stored at path.
func (s *MemStore) Raw(path string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.files[path]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), data...), true
}

// Len returns the number of stored paths.
func (s *MemStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.files)
}

// Read implements Store.
func (s *MemStore) Read(path string) (Manifest, error) {
	data, ok := s.Raw(path)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	m, err := Decode(data, FormatFor(path))
	if err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}
	return m, nil
}

// Write implements Store.
func (s *MemStore) Write(path string, m Manifest) error {
	if s.WriteErr != nil {
		return fmt.Errorf("%w %s: %w", ErrWrite, path, s.WriteErr)
	}
	data, err := Encode(m, FormatFor(path))
	if err != nil {
		return fmt.Errorf("%w %s: %w", ErrWrite, path, err)
	}
	s.PutRaw(path, data)
	return nil
}
