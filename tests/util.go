package testutil

import (
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/trezcool/masomo-live/core/lecture"
	"github.com/trezcool/masomo-live/storage/database/inmem"
)

// FakeConn is a lecture.Conn recording every event it is sent.
type FakeConn struct {
	id string

	mu     sync.Mutex
	events []lecture.Event
	closed bool
	full   bool
}

func NewFakeConn() *FakeConn {
	return &FakeConn{id: uuid.New().String()}
}

func (c *FakeConn) ID() string { return c.id }

func (c *FakeConn) Send(ev lecture.Event) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.full {
		return false
	}
	c.events = append(c.events, ev)
	return true
}

func (c *FakeConn) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

func (c *FakeConn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// SetFull makes every following Send drop its event, like a saturated send buffer.
func (c *FakeConn) SetFull(full bool) {
	c.mu.Lock()
	c.full = full
	c.mu.Unlock()
}

func (c *FakeConn) Events() []lecture.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]lecture.Event(nil), c.events...)
}

// Names returns the names of the recorded events, in order.
func (c *FakeConn) Names() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, 0, len(c.events))
	for _, ev := range c.events {
		names = append(names, ev.Name)
	}
	return names
}

// Last returns the last recorded event named name.
func (c *FakeConn) Last(name string) (lecture.Event, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.events) - 1; i >= 0; i-- {
		if c.events[i].Name == name {
			return c.events[i], true
		}
	}
	return lecture.Event{}, false
}

func (c *FakeConn) Count(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	var n int
	for _, ev := range c.events {
		if ev.Name == name {
			n++
		}
	}
	return n
}

func (c *FakeConn) Reset() {
	c.mu.Lock()
	c.events = nil
	c.mu.Unlock()
}

func CreateLecture(t *testing.T, repo *inmemdb.LectureRepository, id, professorID, status string) lecture.Lecture {
	t.Helper()
	return repo.CreateLecture(lecture.Lecture{
		ID:          id,
		Title:       "Lecture " + id,
		Status:      status,
		ProfessorID: professorID,
	})
}
