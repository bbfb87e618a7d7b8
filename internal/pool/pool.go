// Package pool implements the bounded vector buffer pool: a fixed set of
// page-sized frames that serves vector reads by ItemID and absorbs new
// vector writes against the storage manager.
package pool

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math"

	simplelru "github.com/hashicorp/golang-lru/v2/simplelru"

	"github.com/andrew-r-thomas/tinyworld/internal/obs"
	"github.com/andrew-r-thomas/tinyworld/internal/storage"
)

// ErrInvalidItemID covers a slot out of range, a slot marked free, or an
// unknown page.
var ErrInvalidItemID = errors.New("invalid item id")

const noPage = ^uint32(0)

// Pool is a page cache over the storage manager. It owns its frame array
// and the directory of resident pages; the storage manager is borrowed
// per call.
type Pool struct {
	frames []byte

	// dir maps resident page numbers to frame indices. Its recency
	// order (least recently touched first) drives victim choice.
	dir       *simplelru.LRU[uint32, int]
	frameTo   []uint32
	empty     []int
	dirty     map[int]struct{}
	freeSlots []storage.ItemID

	scratch []float32

	pageBytes    int
	vecBytes     int
	slotsPerPage uint32
	dim          int

	log     *slog.Logger
	metrics *obs.Metrics
}

// New creates a pool of nFrames page-sized frames.
func New(nFrames, pageBytes, dim int, slotsPerPage uint32, log *slog.Logger, metrics *obs.Metrics) (*Pool, error) {
	if nFrames < 1 {
		return nil, fmt.Errorf("pool needs at least one frame, got %d", nFrames)
	}
	if log == nil {
		log = slog.Default()
	}
	dir, err := simplelru.NewLRU[uint32, int](nFrames, nil)
	if err != nil {
		return nil, fmt.Errorf("create page directory: %w", err)
	}

	empty := make([]int, nFrames)
	frameTo := make([]uint32, nFrames)
	for i := range empty {
		empty[i] = nFrames - 1 - i
		frameTo[i] = noPage
	}

	return &Pool{
		frames:       make([]byte, nFrames*pageBytes),
		dir:          dir,
		frameTo:      frameTo,
		empty:        empty,
		dirty:        make(map[int]struct{}),
		scratch:      make([]float32, dim),
		pageBytes:    pageBytes,
		vecBytes:     4 * dim,
		slotsPerPage: slotsPerPage,
		dim:          dim,
		log:          log,
		metrics:      metrics,
	}, nil
}

func (p *Pool) frameBytes(frame int) []byte {
	start := frame * p.pageBytes
	return p.frames[start : start+p.pageBytes]
}

// Get returns the vector stored under id. The returned slice is backed by
// the pool's scratch buffer and stays valid only until the next pool
// call.
func (p *Pool) Get(id storage.ItemID, sm *storage.Manager) ([]float32, error) {
	if id.Slot >= p.slotsPerPage {
		return nil, fmt.Errorf("%w: slot %d out of range", ErrInvalidItemID, id.Slot)
	}

	if frame, ok := p.dir.Get(id.Page); ok {
		p.metrics.IncPoolHit()
		return p.readSlot(frame, id)
	}
	p.metrics.IncPoolMiss()

	if id.Page >= sm.NumPages() {
		return nil, fmt.Errorf("%w: unknown page %d", ErrInvalidItemID, id.Page)
	}

	frame, err := p.takeFrame(sm)
	if err != nil {
		return nil, err
	}
	buf := p.frameBytes(frame)
	if err := sm.ReadPage(id.Page, buf); err != nil {
		p.empty = append(p.empty, frame)
		return nil, err
	}
	p.dir.Add(id.Page, frame)
	p.frameTo[frame] = id.Page

	for slot := uint32(0); slot < p.slotsPerPage; slot++ {
		if buf[slot] == 0 {
			p.freeSlots = append(p.freeSlots, storage.ItemID{Slot: slot, Page: id.Page})
		}
	}

	return p.readSlot(frame, id)
}

func (p *Pool) readSlot(frame int, id storage.ItemID) ([]float32, error) {
	buf := p.frameBytes(frame)
	switch buf[id.Slot] {
	case 0:
		return nil, fmt.Errorf("%w: slot %d on page %d is free", ErrInvalidItemID, id.Slot, id.Page)
	case 1:
		start := int(p.slotsPerPage) + int(id.Slot)*p.vecBytes
		for i := 0; i < p.dim; i++ {
			bits := binary.LittleEndian.Uint32(buf[start+4*i:])
			p.scratch[i] = math.Float32frombits(bits)
		}
		return p.scratch, nil
	default:
		panic(fmt.Sprintf("slot directory corrupt: page %d slot %d = %d", id.Page, id.Slot, buf[id.Slot]))
	}
}

// Push stores a new vector and returns its ItemID. A free slot on a
// resident page is preferred; otherwise a fresh page is allocated.
func (p *Pool) Push(vec []float32, sm *storage.Manager) (storage.ItemID, error) {
	if n := len(p.freeSlots); n > 0 {
		id := p.freeSlots[n-1]
		p.freeSlots = p.freeSlots[:n-1]

		frame, ok := p.dir.Get(id.Page)
		if !ok {
			panic(fmt.Sprintf("free slot queued for non-resident page %d", id.Page))
		}
		buf := p.frameBytes(frame)
		if buf[id.Slot] != 0 {
			panic(fmt.Sprintf("free slot %v already occupied", id))
		}
		buf[id.Slot] = 1
		p.writeSlot(buf, id.Slot, vec)
		p.dirty[frame] = struct{}{}
		return id, nil
	}

	frame, err := p.takeFrame(sm)
	if err != nil {
		return storage.ItemID{}, err
	}
	buf := p.frameBytes(frame)
	clear(buf)

	page := sm.NewPage()
	buf[0] = 1
	p.writeSlot(buf, 0, vec)
	p.dir.Add(page, frame)
	p.frameTo[frame] = page
	for slot := uint32(1); slot < p.slotsPerPage; slot++ {
		p.freeSlots = append(p.freeSlots, storage.ItemID{Slot: slot, Page: page})
	}
	p.dirty[frame] = struct{}{}

	return storage.ItemID{Slot: 0, Page: page}, nil
}

func (p *Pool) writeSlot(buf []byte, slot uint32, vec []float32) {
	start := int(p.slotsPerPage) + int(slot)*p.vecBytes
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[start+4*i:], math.Float32bits(v))
	}
}

// takeFrame pops an empty frame, evicting a resident page if none is
// left. A clean page is preferred as victim; the least recently touched
// dirty page is written back otherwise.
func (p *Pool) takeFrame(sm *storage.Manager) (int, error) {
	if n := len(p.empty); n > 0 {
		frame := p.empty[n-1]
		p.empty = p.empty[:n-1]
		return frame, nil
	}

	keys := p.dir.Keys() // least recently used first
	if len(keys) == 0 {
		panic("pool has no empty frames and no resident pages")
	}

	victimPage := noPage
	victimFrame := -1
	for _, page := range keys {
		frame, _ := p.dir.Peek(page)
		if _, isDirty := p.dirty[frame]; !isDirty {
			victimPage, victimFrame = page, frame
			break
		}
	}
	if victimFrame < 0 {
		victimPage = keys[0]
		victimFrame, _ = p.dir.Peek(victimPage)
		if err := sm.WritePage(victimPage, p.frameBytes(victimFrame)); err != nil {
			return 0, err
		}
		delete(p.dirty, victimFrame)
		p.metrics.IncPoolWriteBack()
	}

	p.dir.Remove(victimPage)
	p.frameTo[victimFrame] = noPage
	p.dropFreeSlots(victimPage)
	p.metrics.IncPoolEviction()
	p.log.Debug("evicted page from vector pool", "page", victimPage, "frame", victimFrame)

	return victimFrame, nil
}

func (p *Pool) dropFreeSlots(page uint32) {
	kept := p.freeSlots[:0]
	for _, id := range p.freeSlots {
		if id.Page != page {
			kept = append(kept, id)
		}
	}
	p.freeSlots = kept
}

// Flush writes every dirty frame back through the storage manager and
// clears the dirty set. Calling it twice in a row is a no-op the second
// time.
func (p *Pool) Flush(sm *storage.Manager) error {
	for frame := range p.dirty {
		page := p.frameTo[frame]
		if page == noPage {
			panic(fmt.Sprintf("dirty frame %d holds no page", frame))
		}
		if err := sm.WritePage(page, p.frameBytes(frame)); err != nil {
			return err
		}
		p.metrics.IncPoolWriteBack()
		delete(p.dirty, frame)
	}
	return nil
}

// Resident reports whether a page currently occupies a frame.
func (p *Pool) Resident(page uint32) bool {
	return p.dir.Contains(page)
}
