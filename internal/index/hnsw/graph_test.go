package hnsw

import (
	"errors"
	"testing"

	"github.com/andrew-r-thomas/tinyworld/internal/storage"
)

func gid(n uint32) storage.ItemID {
	return storage.ItemID{Slot: n, Page: 0}
}

func TestPushItemGrowsLevels(t *testing.T) {
	g := NewGraph()
	if g.TopLevel() != -1 {
		t.Fatalf("empty graph top level: got %d, want -1", g.TopLevel())
	}

	g.PushItem(gid(1), 2)
	if g.NumLevels() != 3 {
		t.Fatalf("levels: got %d, want 3", g.NumLevels())
	}
	for level := 0; level <= 2; level++ {
		conns, err := g.Conns(gid(1), level)
		if err != nil {
			t.Fatalf("level %d: %v", level, err)
		}
		if len(conns) != 0 {
			t.Fatalf("level %d: expected empty connection list", level)
		}
	}

	g.PushItem(gid(2), 0)
	if g.NumLevels() != 3 {
		t.Fatal("pushing a low node must not shrink the level sequence")
	}
	if g.Contains(gid(2), 1) {
		t.Fatal("node registered above its own level")
	}
	if g.NodeCount() != 2 {
		t.Fatalf("node count: got %d, want 2", g.NodeCount())
	}
}

func TestPushConnIsSymmetric(t *testing.T) {
	g := NewGraph()
	g.PushItem(gid(1), 1)
	g.PushItem(gid(2), 1)

	if err := g.PushConn(gid(1), gid(2), 0.5, 1); err != nil {
		t.Fatal(err)
	}

	aConns, _ := g.Conns(gid(1), 1)
	bConns, _ := g.Conns(gid(2), 1)
	if len(aConns) != 1 || aConns[0].Other != gid(2) || aConns[0].Dist != 0.5 {
		t.Fatalf("forward edge wrong: %+v", aConns)
	}
	if len(bConns) != 1 || bConns[0].Other != gid(1) || bConns[0].Dist != 0.5 {
		t.Fatalf("reverse edge wrong: %+v", bConns)
	}
}

func TestPushConnErrors(t *testing.T) {
	g := NewGraph()
	g.PushItem(gid(1), 0)

	if err := g.PushConn(gid(1), gid(2), 1, 0); !errors.Is(err, ErrInvalidItemID) {
		t.Fatalf("missing endpoint: got %v", err)
	}
	if err := g.PushConn(gid(1), gid(1), 1, 5); !errors.Is(err, ErrInvalidLevel) {
		t.Fatalf("missing level: got %v", err)
	}
	if _, err := g.Conns(gid(9), 0); !errors.Is(err, ErrInvalidItemID) {
		t.Fatalf("conns of unknown node: got %v", err)
	}
	if _, err := g.Conns(gid(1), 3); !errors.Is(err, ErrInvalidLevel) {
		t.Fatalf("conns at unknown level: got %v", err)
	}
}

func TestSetAndRemoveConns(t *testing.T) {
	g := NewGraph()
	for i := uint32(1); i <= 3; i++ {
		g.PushItem(gid(i), 0)
	}
	g.PushConn(gid(1), gid(2), 0.1, 0)
	g.PushConn(gid(1), gid(3), 0.2, 0)

	if err := g.SetConns(gid(1), 0, []Conn{{Other: gid(3), Dist: 0.2}}); err != nil {
		t.Fatal(err)
	}
	g.RemoveConn(gid(2), gid(1), 0)

	oneConns, _ := g.Conns(gid(1), 0)
	if len(oneConns) != 1 || oneConns[0].Other != gid(3) {
		t.Fatalf("rewritten list wrong: %+v", oneConns)
	}
	twoConns, _ := g.Conns(gid(2), 0)
	if len(twoConns) != 0 {
		t.Fatalf("reverse edge not removed: %+v", twoConns)
	}
}
