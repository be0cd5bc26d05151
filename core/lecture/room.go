package lecture

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Room is the in-memory record of one lecture's live state and current membership.
// Every field but retired is guarded by mu; all methods below expect the caller
// to hold it (see RoomStore.With).
type Room struct {
	mu sync.Mutex

	id          string
	title       string
	professorID string
	state       State
	startedAt   time.Time
	members     map[string]*Session // by user id
	touchedAt   time.Time
	retired     atomic.Bool // dropped from the store; set under mu
}

func newRoom(lec Lecture, now time.Time) *Room {
	r := &Room{
		id:          lec.ID,
		title:       lec.Title,
		professorID: lec.ProfessorID,
		state:       stateFromStatus(lec.Status),
		members:     make(map[string]*Session),
		touchedAt:   now,
	}
	if lec.StartedAt != nil && r.state == StateLive {
		r.startedAt = *lec.StartedAt
	}
	return r
}

func (r *Room) ID() string          { return r.id }
func (r *Room) ProfessorID() string { return r.professorID }
func (r *Room) State() State        { return r.state }
func (r *Room) IsLive() bool        { return r.state == StateLive }
func (r *Room) Len() int            { return len(r.members) }

// join inserts sess as the member entry of its user, superseding any previous entry.
// The superseded session, if any, is returned with its room binding already cleared.
func (r *Room) join(sess *Session, now time.Time) (superseded *Session) {
	userID := sess.UserID()
	if prev, ok := r.members[userID]; ok && prev != sess {
		prev.clearRoom()
		superseded = prev
	}
	r.members[userID] = sess
	r.touchedAt = now
	return superseded
}

// leave removes the member entry of userID, provided it still belongs to sess.
func (r *Room) leave(userID string, sess *Session, now time.Time) error {
	if cur, ok := r.members[userID]; !ok || cur != sess {
		return ErrNotAMember
	}
	delete(r.members, userID)
	sess.clearRoom()
	r.touchedAt = now
	return nil
}

// updatePosition is a pure mutation; broadcasting is up to the caller.
func (r *Room) updatePosition(userID string, p Position) error {
	sess, ok := r.members[userID]
	if !ok {
		return ErrNotAMember
	}
	sess.setPosition(p)
	return nil
}

func (r *Room) isMember(sess *Session) bool {
	cur, ok := r.members[sess.UserID()]
	return ok && cur == sess
}

func (r *Room) memberSession(userID string) (*Session, bool) {
	sess, ok := r.members[userID]
	return sess, ok
}

// list returns the members ordered by user id.
func (r *Room) list() []Member {
	members := make([]Member, 0, len(r.members))
	for _, sess := range r.members {
		members = append(members, sess.member())
	}
	sort.Slice(members, func(i, j int) bool { return members[i].UserID < members[j].UserID })
	return members
}

func (r *Room) snapshot() Snapshot {
	snap := Snapshot{
		IsLive:       r.IsLive(),
		State:        r.state.String(),
		Participants: r.list(),
	}
	if !r.startedAt.IsZero() {
		t := r.startedAt
		snap.StartTime = &t
	}
	return snap
}

// lecture describes the room the way the durable store would after its queued
// writes land. A room re-created from it resumes in the same state, except that
// a paused room comes back live.
func (r *Room) lecture() Lecture {
	lec := Lecture{ID: r.id, Title: r.title, ProfessorID: r.professorID}
	switch r.state {
	case StateLive, StatePaused:
		lec.Status = StatusOngoing
	case StateEnded:
		lec.Status = StatusCompleted
	default:
		lec.Status = StatusScheduled
	}
	if !r.startedAt.IsZero() {
		t := r.startedAt
		lec.StartedAt = &t
	}
	return lec
}

// expired tells whether the room is inert and may be dropped from the store.
func (r *Room) expired(now time.Time, idleTTL time.Duration) bool {
	if len(r.members) > 0 || idleTTL <= 0 {
		return false
	}
	return now.Sub(r.touchedAt) > idleTTL
}
