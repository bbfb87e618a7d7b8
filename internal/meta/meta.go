// Package meta persists a small typed blob to a side-file next to the
// index. The whole blob is replaced on every write, so readers always
// see one complete value.
package meta

import (
	"fmt"
	"io"
	"os"

	"github.com/vmihailenco/msgpack/v5"
)

// Store is a typed-blob side-file encoded with MessagePack.
type Store struct {
	file *os.File
}

// Open opens or creates the side-file at path.
func Open(path string) (*Store, error) {
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open metadata file: %w", err)
	}
	return &Store{file: file}, nil
}

// Insert replaces the blob with the encoding of v.
func (s *Store) Insert(v any) error {
	buf, err := msgpack.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	if err := s.file.Truncate(0); err != nil {
		return err
	}
	if _, err := s.file.WriteAt(buf, 0); err != nil {
		return err
	}
	return nil
}

// Read decodes the whole blob into dst.
func (s *Store) Read(dst any) error {
	if _, err := s.file.Seek(0, io.SeekStart); err != nil {
		return err
	}
	buf, err := io.ReadAll(s.file)
	if err != nil {
		return err
	}
	if err := msgpack.Unmarshal(buf, dst); err != nil {
		return fmt.Errorf("decode metadata: %w", err)
	}
	return nil
}

// Clear truncates the blob to zero length.
func (s *Store) Clear() error {
	return s.file.Truncate(0)
}

// Close releases the file handle.
func (s *Store) Close() error {
	return s.file.Close()
}
