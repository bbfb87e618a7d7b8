// Package storage owns the single backing .tw file: the packed header at
// offset 0 and the fixed-size pages that follow it.
package storage

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
)

// HeaderSize is the byte length of the packed header at file offset 0.
const HeaderSize = 32

// FileExt is the required extension of the backing file.
const FileExt = ".tw"

var (
	ErrFileType     = errors.New("backing file must have a .tw extension")
	ErrHeaderDecode = errors.New("header bytes cannot be decoded")
)

// ItemID identifies one stored vector as a (page, slot) pair. IDs are
// issued once by the vector pool and never reused.
type ItemID struct {
	Slot uint32
	Page uint32
}

func (id ItemID) String() string {
	return fmt.Sprintf("%d:%d", id.Page, id.Slot)
}

// Header is the byte-exact on-disk header. Fields are packed in declared
// order, little-endian, unaligned. PageSize is in KiB.
type Header struct {
	PageSize     uint8
	NumPages     uint32
	VecPageSlots uint32
	Dim          uint32
	MMax         uint8
	M0Max        uint8
	M            uint8
	ML           float32
	DistID       uint32
	EP           ItemID
}

// EncodeTo packs the header into buf, which must be at least HeaderSize
// bytes long.
func (h *Header) EncodeTo(buf []byte) {
	buf[0] = h.PageSize
	binary.LittleEndian.PutUint32(buf[1:5], h.NumPages)
	binary.LittleEndian.PutUint32(buf[5:9], h.VecPageSlots)
	binary.LittleEndian.PutUint32(buf[9:13], h.Dim)
	buf[13] = h.MMax
	buf[14] = h.M0Max
	buf[15] = h.M
	binary.LittleEndian.PutUint32(buf[16:20], math.Float32bits(h.ML))
	binary.LittleEndian.PutUint32(buf[20:24], h.DistID)
	binary.LittleEndian.PutUint32(buf[24:28], h.EP.Slot)
	binary.LittleEndian.PutUint32(buf[28:32], h.EP.Page)
}

// DecodeHeader unpacks a header from buf.
func DecodeHeader(buf []byte) (*Header, error) {
	if len(buf) < HeaderSize {
		return nil, ErrHeaderDecode
	}
	h := &Header{
		PageSize:     buf[0],
		NumPages:     binary.LittleEndian.Uint32(buf[1:5]),
		VecPageSlots: binary.LittleEndian.Uint32(buf[5:9]),
		Dim:          binary.LittleEndian.Uint32(buf[9:13]),
		MMax:         buf[13],
		M0Max:        buf[14],
		M:            buf[15],
		ML:           math.Float32frombits(binary.LittleEndian.Uint32(buf[16:20])),
		DistID:       binary.LittleEndian.Uint32(buf[20:24]),
		EP: ItemID{
			Slot: binary.LittleEndian.Uint32(buf[24:28]),
			Page: binary.LittleEndian.Uint32(buf[28:32]),
		},
	}
	if h.PageSize == 0 || h.Dim == 0 || h.VecPageSlots == 0 {
		return nil, ErrHeaderDecode
	}
	return h, nil
}

// PageBytes returns the page size in bytes for a header. The header field
// is in KiB; pages are PageSize*1024 bytes.
func (h *Header) PageBytes() int {
	return int(h.PageSize) * 1024
}

// SlotsFor computes how many vector slots fit on one page alongside the
// one-byte-per-slot directory prefix.
func SlotsFor(pageBytes int, dim uint32) uint32 {
	// S + S*4*D <= pageBytes
	s := pageBytes / (1 + 4*int(dim))
	if s < 1 {
		s = 1
	}
	return uint32(s)
}

// Manager owns the backing file handle. It reads and writes whole pages
// and hands out new page numbers; the in-memory page count is persisted
// only when the header is rewritten.
type Manager struct {
	file      *os.File
	path      string
	pageSize  uint8 // KiB
	pageBytes int
	numPages  uint32
}

// Open opens an existing index file and decodes its header.
func Open(path string) (*Manager, *Header, error) {
	if filepath.Ext(path) != FileExt {
		return nil, nil, ErrFileType
	}
	file, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}

	buf := make([]byte, HeaderSize)
	if _, err := io.ReadFull(file, buf); err != nil {
		file.Close()
		return nil, nil, fmt.Errorf("%w: %v", ErrHeaderDecode, err)
	}
	header, err := DecodeHeader(buf)
	if err != nil {
		file.Close()
		return nil, nil, err
	}

	return &Manager{
		file:      file,
		path:      path,
		pageSize:  header.PageSize,
		pageBytes: header.PageBytes(),
		numPages:  header.NumPages,
	}, header, nil
}

// Create makes a fresh index file. It refuses to overwrite an existing
// file and writes an initial header with zero pages.
func Create(path string, mMax, m0Max, m uint8, dim, distID uint32, mL float32) (*Manager, *Header, error) {
	if filepath.Ext(path) != FileExt {
		return nil, nil, ErrFileType
	}
	const pageSize = uint8(4) // 4 KiB pages
	if 1+4*int(dim) > int(pageSize)*1024 {
		return nil, nil, fmt.Errorf("dimension %d does not fit a %d KiB page", dim, pageSize)
	}
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("create %s: %w", path, err)
	}

	header := &Header{
		PageSize:     pageSize,
		NumPages:     0,
		VecPageSlots: SlotsFor(int(pageSize)*1024, dim),
		Dim:          dim,
		MMax:         mMax,
		M0Max:        m0Max,
		M:            m,
		ML:           mL,
		DistID:       distID,
		EP:           ItemID{},
	}

	buf := make([]byte, HeaderSize)
	header.EncodeTo(buf)
	if _, err := file.WriteAt(buf, 0); err != nil {
		file.Close()
		os.Remove(path)
		return nil, nil, fmt.Errorf("write header: %w", err)
	}

	return &Manager{
		file:      file,
		path:      path,
		pageSize:  pageSize,
		pageBytes: header.PageBytes(),
		numPages:  0,
	}, header, nil
}

// PageBytes returns the page size in bytes.
func (m *Manager) PageBytes() int { return m.pageBytes }

// NumPages returns the current page count, including pages allocated
// since the last header rewrite.
func (m *Manager) NumPages() uint32 { return m.numPages }

// Path returns the backing file path.
func (m *Manager) Path() string { return m.path }

func (m *Manager) pageOffset(page uint32) int64 {
	return HeaderSize + int64(page)*int64(m.pageBytes)
}

// ReadPage reads page number page into buf, which must be exactly one
// page long.
func (m *Manager) ReadPage(page uint32, buf []byte) error {
	if len(buf) != m.pageBytes {
		return fmt.Errorf("page buffer is %d bytes, want %d", len(buf), m.pageBytes)
	}
	if _, err := m.file.ReadAt(buf, m.pageOffset(page)); err != nil {
		return fmt.Errorf("read page %d: %w", page, err)
	}
	return nil
}

// WritePage writes buf as page number page.
func (m *Manager) WritePage(page uint32, buf []byte) error {
	if len(buf) != m.pageBytes {
		return fmt.Errorf("page buffer is %d bytes, want %d", len(buf), m.pageBytes)
	}
	if _, err := m.file.WriteAt(buf, m.pageOffset(page)); err != nil {
		return fmt.Errorf("write page %d: %w", page, err)
	}
	return nil
}

// NewPage allocates the next page number. The count is persisted on the
// next WriteHeader.
func (m *Manager) NewPage() uint32 {
	page := m.numPages
	m.numPages++
	return page
}

// WriteHeader rewrites the header at offset 0. The header's NumPages is
// forced to the manager's current count so allocations survive a reopen.
func (m *Manager) WriteHeader(h *Header) error {
	h.NumPages = m.numPages
	buf := make([]byte, HeaderSize)
	h.EncodeTo(buf)
	if _, err := m.file.WriteAt(buf, 0); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	return nil
}

// Sync flushes file contents to stable storage.
func (m *Manager) Sync() error {
	return m.file.Sync()
}

// Close releases the file handle.
func (m *Manager) Close() error {
	return m.file.Close()
}
