package storage

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"
)

func tmpPath(t *testing.T, name string) string {
	t.Helper()
	return filepath.Join(t.TempDir(), name)
}

func TestCreateRejectsWrongExtension(t *testing.T) {
	_, _, err := Create(tmpPath(t, "index.db"), 16, 32, 16, 8, 0, 0.5)
	if !errors.Is(err, ErrFileType) {
		t.Fatalf("got %v, want ErrFileType", err)
	}
}

func TestOpenRejectsWrongExtension(t *testing.T) {
	_, _, err := Open(tmpPath(t, "index.bin"))
	if !errors.Is(err, ErrFileType) {
		t.Fatalf("got %v, want ErrFileType", err)
	}
}

func TestCreateRefusesOverwrite(t *testing.T) {
	path := tmpPath(t, "index.tw")
	m, _, err := Create(path, 16, 32, 16, 8, 0, 0.5)
	if err != nil {
		t.Fatal(err)
	}
	m.Close()

	if _, _, err := Create(path, 16, 32, 16, 8, 0, 0.5); err == nil {
		t.Fatal("expected an error creating over an existing file")
	}
}

func TestHeaderRoundTrip(t *testing.T) {
	h := &Header{
		PageSize:     4,
		NumPages:     17,
		VecPageSlots: 124,
		Dim:          8,
		MMax:         16,
		M0Max:        32,
		M:            12,
		ML:           0.5,
		DistID:       2,
		EP:           ItemID{Slot: 3, Page: 9},
	}
	buf := make([]byte, HeaderSize)
	h.EncodeTo(buf)

	got, err := DecodeHeader(buf)
	if err != nil {
		t.Fatal(err)
	}
	if *got != *h {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, h)
	}
}

func TestDecodeHeaderRejectsGarbage(t *testing.T) {
	if _, err := DecodeHeader(make([]byte, HeaderSize)); !errors.Is(err, ErrHeaderDecode) {
		t.Fatalf("zero header: got %v, want ErrHeaderDecode", err)
	}
	if _, err := DecodeHeader(make([]byte, 4)); !errors.Is(err, ErrHeaderDecode) {
		t.Fatalf("short header: got %v, want ErrHeaderDecode", err)
	}
}

func TestSlotsFor(t *testing.T) {
	// S + S*4*D <= pageBytes must hold for the computed S.
	cases := []struct {
		pageBytes int
		dim       uint32
	}{
		{4096, 2},
		{4096, 8},
		{4096, 512},
		{4096, 1023},
	}
	for _, c := range cases {
		s := int(SlotsFor(c.pageBytes, c.dim))
		if s < 1 {
			t.Fatalf("dim %d: no slots", c.dim)
		}
		if s+s*4*int(c.dim) > c.pageBytes {
			t.Fatalf("dim %d: %d slots overflow the page", c.dim, s)
		}
	}
}

func TestCreateRejectsOversizedDimension(t *testing.T) {
	if _, _, err := Create(tmpPath(t, "big.tw"), 16, 32, 16, 2000, 0, 0.5); err == nil {
		t.Fatal("expected an error for a dimension that cannot fit one page")
	}
}

func TestPageReadWriteRoundTrip(t *testing.T) {
	m, h, err := Create(tmpPath(t, "pages.tw"), 16, 32, 16, 8, 0, 0.5)
	if err != nil {
		t.Fatal(err)
	}
	defer m.Close()

	if got := m.PageBytes(); got != h.PageBytes() {
		t.Fatalf("page bytes: manager %d, header %d", got, h.PageBytes())
	}

	p0 := m.NewPage()
	p1 := m.NewPage()
	if p0 != 0 || p1 != 1 {
		t.Fatalf("page numbers: got %d, %d", p0, p1)
	}
	if m.NumPages() != 2 {
		t.Fatalf("num pages: got %d, want 2", m.NumPages())
	}

	buf := make([]byte, m.PageBytes())
	for i := range buf {
		buf[i] = byte(i % 251)
	}
	if err := m.WritePage(p1, buf); err != nil {
		t.Fatal(err)
	}

	got := make([]byte, m.PageBytes())
	if err := m.ReadPage(p1, got); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, buf) {
		t.Fatal("page contents changed across write/read")
	}
}

func TestWriteHeaderPersistsPageCount(t *testing.T) {
	path := tmpPath(t, "count.tw")
	m, h, err := Create(path, 16, 32, 16, 8, 0, 0.5)
	if err != nil {
		t.Fatal(err)
	}

	m.NewPage()
	m.NewPage()
	m.NewPage()
	zero := make([]byte, m.PageBytes())
	for p := uint32(0); p < 3; p++ {
		if err := m.WritePage(p, zero); err != nil {
			t.Fatal(err)
		}
	}
	h.EP = ItemID{Slot: 1, Page: 2}
	if err := m.WriteHeader(h); err != nil {
		t.Fatal(err)
	}
	m.Close()

	m2, h2, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer m2.Close()

	if m2.NumPages() != 3 {
		t.Fatalf("reopened num pages: got %d, want 3", m2.NumPages())
	}
	if h2.EP != (ItemID{Slot: 1, Page: 2}) {
		t.Fatalf("reopened entry point: got %v", h2.EP)
	}
	if h2.Dim != 8 || h2.MMax != 16 || h2.M0Max != 32 {
		t.Fatalf("reopened header fields: %+v", h2)
	}
}

func TestPageBufferLengthChecked(t *testing.T) {
	m, _, err := Create(tmpPath(t, "len.tw"), 16, 32, 16, 8, 0, 0.5)
	if err != nil {
		t.Fatal(err)
	}
	defer m.Close()

	if err := m.ReadPage(0, make([]byte, 7)); err == nil {
		t.Fatal("short read buffer accepted")
	}
	if err := m.WritePage(0, make([]byte, 7)); err == nil {
		t.Fatal("short write buffer accepted")
	}
}
