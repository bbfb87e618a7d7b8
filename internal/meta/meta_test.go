package meta

import (
	"path/filepath"
	"testing"
)

type sample struct {
	ID     uint64
	IsCool bool
	Text   string
}

func TestInsertReadRoundTrip(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "index.meta"))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	want := sample{ID: 7, IsCool: true, Text: "this is some text"}
	if err := s.Insert(&want); err != nil {
		t.Fatal(err)
	}

	var got sample
	if err := s.Read(&got); err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestInsertReplacesWholeBlob(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "index.meta"))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	big := sample{ID: 1, Text: "a value long enough to leave a tail behind if truncation were skipped"}
	if err := s.Insert(&big); err != nil {
		t.Fatal(err)
	}
	small := sample{ID: 2, Text: "short"}
	if err := s.Insert(&small); err != nil {
		t.Fatal(err)
	}

	var got sample
	if err := s.Read(&got); err != nil {
		t.Fatal(err)
	}
	if got != small {
		t.Fatalf("got %+v, want %+v", got, small)
	}
}

func TestClear(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "index.meta"))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if err := s.Insert(&sample{ID: 3}); err != nil {
		t.Fatal(err)
	}
	if err := s.Clear(); err != nil {
		t.Fatal(err)
	}

	var got sample
	if err := s.Read(&got); err == nil {
		t.Fatal("reading a cleared blob should fail")
	}
}
