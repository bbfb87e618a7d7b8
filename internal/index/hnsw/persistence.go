package hnsw

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/andrew-r-thomas/tinyworld/internal/storage"
)

// Graph snapshot layout. The snapshot occupies pages starting at the
// page number right after the last vector page (num_pages in the
// header; only vector pages are counted there). Each snapshot page
// carries a 12-byte prefix {magic u32, seq u32, chunk_len u32}; the
// chunks concatenate into one stream:
//
//	total_len u32
//	ep        ItemID (slot u32, page u32)
//	levels    u32
//	per level:  node_count u32
//	per node:   ItemID, conn_count u32, conns (ItemID, dist f32)...
//
// Vector pages only ever append, so rewriting the trailing snapshot in
// place on every flush is safe.
const (
	snapshotMagic     = uint32(0x54574752) // "TWGR"
	snapshotHeaderLen = 12
)

var ErrGraphSnapshot = errors.New("graph snapshot missing or corrupt")

// SaveGraph writes the adjacency snapshot into the pages following the
// vector-page region.
func (h *Index) SaveGraph(sm *storage.Manager) error {
	var stream bytes.Buffer

	var ep storage.ItemID
	levels := uint32(0)
	if h.entry != nil {
		ep = h.entry.id
		levels = uint32(h.graph.NumLevels())
	}
	for _, v := range []uint32{ep.Slot, ep.Page, levels} {
		binary.Write(&stream, binary.LittleEndian, v)
	}
	for level := 0; level < int(levels); level++ {
		nodes := h.graph.nodesAt(level)
		binary.Write(&stream, binary.LittleEndian, uint32(len(nodes)))
		for id, conns := range nodes {
			binary.Write(&stream, binary.LittleEndian, id.Slot)
			binary.Write(&stream, binary.LittleEndian, id.Page)
			binary.Write(&stream, binary.LittleEndian, uint32(len(conns)))
			for _, c := range conns {
				binary.Write(&stream, binary.LittleEndian, c.Other.Slot)
				binary.Write(&stream, binary.LittleEndian, c.Other.Page)
				binary.Write(&stream, binary.LittleEndian, c.Dist)
			}
		}
	}

	payload := make([]byte, 4+stream.Len())
	binary.LittleEndian.PutUint32(payload, uint32(stream.Len()))
	copy(payload[4:], stream.Bytes())

	pageBytes := sm.PageBytes()
	usable := pageBytes - snapshotHeaderLen
	page := make([]byte, pageBytes)
	start := sm.NumPages()
	for seq := uint32(0); len(payload) > 0; seq++ {
		n := min(usable, len(payload))
		clear(page)
		binary.LittleEndian.PutUint32(page[0:4], snapshotMagic)
		binary.LittleEndian.PutUint32(page[4:8], seq)
		binary.LittleEndian.PutUint32(page[8:12], uint32(n))
		copy(page[snapshotHeaderLen:], payload[:n])
		if err := sm.WritePage(start+seq, page); err != nil {
			return err
		}
		payload = payload[n:]
	}
	return nil
}

// LoadGraph rebuilds the adjacency from the snapshot pages and restores
// the entry point, which must match the one recorded in the header.
func (h *Index) LoadGraph(sm *storage.Manager, headerEP storage.ItemID) error {
	pageBytes := sm.PageBytes()
	page := make([]byte, pageBytes)
	start := sm.NumPages()

	if err := sm.ReadPage(start, page); err != nil {
		if sm.NumPages() == 0 {
			// Freshly created file that was never flushed: empty index.
			return nil
		}
		return fmt.Errorf("%w: %v", ErrGraphSnapshot, err)
	}

	var payload []byte
	total := -1
	for seq := uint32(0); ; seq++ {
		if seq > 0 {
			if err := sm.ReadPage(start+seq, page); err != nil {
				return fmt.Errorf("%w: %v", ErrGraphSnapshot, err)
			}
		}
		if binary.LittleEndian.Uint32(page[0:4]) != snapshotMagic {
			return fmt.Errorf("%w: bad magic on snapshot page %d", ErrGraphSnapshot, seq)
		}
		if binary.LittleEndian.Uint32(page[4:8]) != seq {
			return fmt.Errorf("%w: snapshot page out of sequence", ErrGraphSnapshot)
		}
		n := int(binary.LittleEndian.Uint32(page[8:12]))
		if n > pageBytes-snapshotHeaderLen {
			return fmt.Errorf("%w: chunk length %d exceeds page", ErrGraphSnapshot, n)
		}
		payload = append(payload, page[snapshotHeaderLen:snapshotHeaderLen+n]...)
		if total < 0 && len(payload) >= 4 {
			total = int(binary.LittleEndian.Uint32(payload[0:4]))
		}
		if total >= 0 && len(payload) >= 4+total {
			break
		}
	}

	r := bytes.NewReader(payload[4 : 4+total])
	var ep storage.ItemID
	var levels uint32
	if err := readU32s(r, &ep.Slot, &ep.Page, &levels); err != nil {
		return fmt.Errorf("%w: %v", ErrGraphSnapshot, err)
	}

	graph := NewGraph()
	for level := 0; level < int(levels); level++ {
		graph.levels = append(graph.levels, make(map[storage.ItemID][]Conn))
		var nodeCount uint32
		if err := readU32s(r, &nodeCount); err != nil {
			return fmt.Errorf("%w: %v", ErrGraphSnapshot, err)
		}
		for i := uint32(0); i < nodeCount; i++ {
			var id storage.ItemID
			var connCount uint32
			if err := readU32s(r, &id.Slot, &id.Page, &connCount); err != nil {
				return fmt.Errorf("%w: %v", ErrGraphSnapshot, err)
			}
			conns := make([]Conn, connCount)
			for j := range conns {
				if err := readU32s(r, &conns[j].Other.Slot, &conns[j].Other.Page); err != nil {
					return fmt.Errorf("%w: %v", ErrGraphSnapshot, err)
				}
				if err := binary.Read(r, binary.LittleEndian, &conns[j].Dist); err != nil {
					return fmt.Errorf("%w: %v", ErrGraphSnapshot, err)
				}
			}
			graph.levels[level][id] = conns
		}
	}

	h.graph = graph
	if levels == 0 {
		h.entry = nil
		return nil
	}
	if ep != headerEP {
		return fmt.Errorf("%w: entry point %v disagrees with header %v", ErrGraphSnapshot, ep, headerEP)
	}
	if !graph.Contains(ep, int(levels)-1) {
		return fmt.Errorf("%w: entry point %v missing from top level", ErrGraphSnapshot, ep)
	}
	h.entry = &entryPoint{id: ep, level: int(levels) - 1}
	return nil
}

func readU32s(r io.Reader, dst ...*uint32) error {
	for _, d := range dst {
		if err := binary.Read(r, binary.LittleEndian, d); err != nil {
			return err
		}
	}
	return nil
}
