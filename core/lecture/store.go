package lecture

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
)

// LectureFinder is the eligibility check consulted before a room is joined.
type LectureFinder interface {
	GetLecture(ctx context.Context, id string) (Lecture, error)
}

// RoomStore maps lecture ids to their Room.
// The store lock only guards the table; each Room is serialized by its own lock,
// so operations on different rooms never wait on each other.
// The two locks are never held together.
type RoomStore struct {
	finder  LectureFinder
	clock   clock.Clock
	idleTTL time.Duration

	mu    sync.RWMutex
	rooms map[string]*Room
}

func NewRoomStore(finder LectureFinder, clk clock.Clock, idleTTL time.Duration) *RoomStore {
	if clk == nil {
		clk = clock.New()
	}
	return &RoomStore{
		finder:  finder,
		clock:   clk,
		idleTTL: idleTTL,
		rooms:   make(map[string]*Room),
	}
}

// Validate runs the eligibility check for roomID. The durable store is only
// consulted for a room that is not in memory yet.
func (s *RoomStore) Validate(ctx context.Context, roomID string) (Lecture, error) {
	if r, ok := s.Get(roomID); ok {
		r.mu.Lock()
		lec := r.lecture()
		r.mu.Unlock()
		return lec, nil
	}

	lec, err := s.finder.GetLecture(ctx, roomID)
	if err != nil {
		if errors.Cause(err) == ErrRoomNotFound {
			return Lecture{}, ErrRoomNotFound
		}
		return Lecture{}, errors.Wrap(err, "getting lecture")
	}
	if lec.Status == StatusCancelled {
		return Lecture{}, ErrRoomCancelled
	}
	return lec, nil
}

// Open runs fn on the room of lec.ID with the room lock held, creating the room
// from lec if needed.
func (s *RoomStore) Open(lec Lecture, fn func(r *Room) error) error {
	for {
		r := s.getOrCreate(lec)
		r.mu.Lock()
		if r.retired.Load() {
			// dropped between lookup and lock; try again
			r.mu.Unlock()
			continue
		}
		err := fn(r)
		r.mu.Unlock()
		return err
	}
}

// With runs fn on an existing room with the room lock held.
// It reports ErrNotAMember when the room is unknown.
func (s *RoomStore) With(roomID string, fn func(r *Room) error) error {
	r, ok := s.Get(roomID)
	if !ok {
		return ErrNotAMember
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.retired.Load() {
		return ErrNotAMember
	}
	return fn(r)
}

// Get looks a room up. An expired room is dropped on access and reported absent.
func (s *RoomStore) Get(roomID string) (*Room, bool) {
	s.mu.RLock()
	r, ok := s.rooms[roomID]
	s.mu.RUnlock()
	if !ok || s.collect(r) {
		return nil, false
	}
	return r, true
}

func (s *RoomStore) getOrCreate(lec Lecture) *Room {
	if r, ok := s.Get(lec.ID); ok {
		return r
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.rooms[lec.ID]; ok && !r.retired.Load() { // created concurrently
		return r
	}
	r := newRoom(lec, s.clock.Now())
	s.rooms[lec.ID] = r
	metricRooms.Set(float64(len(s.rooms)))
	return r
}

// collect retires r if it is empty and idle. It reports whether r is retired.
func (s *RoomStore) collect(r *Room) bool {
	r.mu.Lock()
	if !r.retired.Load() && r.expired(s.clock.Now(), s.idleTTL) {
		r.retired.Store(true)
	}
	retired := r.retired.Load()
	r.mu.Unlock()
	if !retired {
		return false
	}

	s.mu.Lock()
	if cur, ok := s.rooms[r.id]; ok && cur == r {
		delete(s.rooms, r.id)
		metricRooms.Set(float64(len(s.rooms)))
	}
	s.mu.Unlock()
	return true
}

func (s *RoomStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rooms)
}
