package store

import (
	"errors"
	"sync"
	"time"

	"github.com/arloliu/go-pldlink/codec"
	"github.com/arloliu/go-pldlink/session"
)

// DefaultCapacity is the number of packets kept per kind.
const DefaultCapacity = 1024

// Record is a stored packet with its receive time.
type Record struct {
	Time   time.Time
	Packet codec.Packet
}

// KindStats describes the ring of one packet kind.
type KindStats struct {
	Kind  codec.Kind
	Len   int
	Total uint64
}

// PacketStore keeps the most recent packets of each kind.
type PacketStore struct {
	capacity int
	rings    map[codec.Kind]*Ring[Record]
	now      func() time.Time

	mu    sync.RWMutex
	onNew []func(Record)
}

// New creates a PacketStore keeping capacity packets per kind.
func New(capacity int) (*PacketStore, error) {
	if capacity < 1 {
		return nil, errors.New("store: capacity must be positive")
	}

	s := &PacketStore{
		capacity: capacity,
		rings:    make(map[codec.Kind]*Ring[Record], len(codec.Kinds)),
		now:      time.Now,
	}
	for _, k := range codec.Kinds {
		s.rings[k] = NewRing[Record](capacity)
	}

	return s, nil
}

// Capacity returns the per-kind capacity.
func (s *PacketStore) Capacity() int {
	return s.capacity
}

// OnNew registers fn to be called synchronously for every added packet.
func (s *PacketStore) OnNew(fn func(Record)) {
	if fn == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.onNew = append(s.onNew, fn)
}

// Add stores pkt. Packets of unknown kinds are ignored and reported false.
func (s *PacketStore) Add(pkt codec.Packet) bool {
	if pkt == nil {
		return false
	}

	ring, ok := s.rings[pkt.Kind()]
	if !ok {
		return false
	}

	rec := Record{Time: s.now(), Packet: pkt}
	ring.Push(rec)

	s.mu.RLock()
	handlers := s.onNew
	s.mu.RUnlock()
	for _, fn := range handlers {
		fn(rec)
	}

	return true
}

// Collect stores the packet of a successful outcome. It can be used as a
// completion callback.
func (s *PacketStore) Collect(out session.Outcome) {
	if out.OK() {
		s.Add(out.Packet)
	}
}

// Latest returns the newest packet of kind.
func (s *PacketStore) Latest(kind codec.Kind) (Record, bool) {
	ring, ok := s.rings[kind]
	if !ok {
		return Record{}, false
	}

	return ring.Last()
}

// Snapshot returns the stored packets of kind from oldest to newest.
func (s *PacketStore) Snapshot(kind codec.Kind) []Record {
	ring, ok := s.rings[kind]
	if !ok {
		return nil
	}

	return ring.Snapshot()
}

// LatestHousekeeping returns the newest housekeeping packet.
func (s *PacketStore) LatestHousekeeping() (*codec.Housekeeping, bool) {
	rec, ok := s.Latest(codec.KindGetHousekeeping)
	if !ok {
		return nil, false
	}
	hk, ok := rec.Packet.(*codec.Housekeeping)

	return hk, ok
}

// Stats returns per-kind counts in codec.Kinds order.
func (s *PacketStore) Stats() []KindStats {
	stats := make([]KindStats, 0, len(codec.Kinds))
	for _, k := range codec.Kinds {
		ring := s.rings[k]
		stats = append(stats, KindStats{Kind: k, Len: ring.Len(), Total: ring.Total()})
	}

	return stats
}

// Reset drops all stored packets.
func (s *PacketStore) Reset() {
	for _, ring := range s.rings {
		ring.Clear()
	}
}
