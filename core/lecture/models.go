package lecture

import (
	"time"
)

// Roles
const (
	RoleStudent   = "student"
	RoleProfessor = "professor"
	RoleAdmin     = "admin"
)

var AllRoles = []string{RoleStudent, RoleProfessor, RoleAdmin}

// Lecture statuses, as kept by the durable store.
const (
	StatusScheduled = "scheduled"
	StatusOngoing   = "ongoing"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// State is the live state of a Room.
type State int

const (
	StateScheduled State = iota
	StateLive
	StatePaused
	StateEnded
)

func (s State) String() string {
	switch s {
	case StateScheduled:
		return "scheduled"
	case StateLive:
		return "live"
	case StatePaused:
		return "paused"
	case StateEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// stateFromStatus seeds a new Room from the lecture status.
func stateFromStatus(status string) State {
	switch status {
	case StatusOngoing:
		return StateLive
	case StatusCompleted:
		return StateEnded
	default:
		return StateScheduled
	}
}

type (
	// Lecture is what the durable store knows about a classroom session.
	Lecture struct {
		ID          string     `db:"id" json:"id"`
		Title       string     `db:"title" json:"title"`
		Status      string     `db:"status" json:"status"`
		ProfessorID string     `db:"professor_id" json:"professor_id"`
		StartedAt   *time.Time `db:"started_at" json:"started_at,omitempty"`
	}

	Identity struct {
		Name   string `json:"name"`
		Role   string `json:"role"`
		Avatar string `json:"avatar,omitempty"`
	}

	Position struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
	}

	// Member is the public view of a room member; it never carries transport handles.
	Member struct {
		UserID   string     `json:"userId"`
		UserInfo Identity   `json:"userInfo"`
		Position *Position  `json:"position,omitempty"`
		JoinedAt *time.Time `json:"joinedAt,omitempty"`
	}

	// Snapshot is sent to a newly joined connection to initialise its view.
	Snapshot struct {
		IsLive       bool       `json:"isLive"`
		State        string     `json:"state"`
		Participants []Member   `json:"participants"`
		StartTime    *time.Time `json:"startTime,omitempty"`
	}

	MemberStats struct {
		Member
		LastActivity time.Time `json:"lastActivity"`
		IsActive     bool      `json:"isActive"`
	}

	RoomStats struct {
		LectureID              string        `json:"lectureId"`
		ProfessorID            string        `json:"professorId"`
		State                  string        `json:"state"`
		IsLive                 bool          `json:"isLive"`
		StartTime              *time.Time    `json:"startTime,omitempty"`
		ParticipantCount       int           `json:"participantCount"`
		ActiveParticipantCount int           `json:"activeParticipantCount"`
		Participants           []MemberStats `json:"participants"`
	}

	Question struct {
		ID          string    `db:"id" json:"id"`
		LectureID   string    `db:"lecture_id" json:"lectureId"`
		UserID      string    `db:"user_id" json:"userId"`
		Content     string    `db:"content" json:"content"`
		Type        string    `db:"question_type" json:"questionType"`
		Position    *Position `db:"-" json:"position,omitempty"`
		IsAnonymous bool      `db:"is_anonymous" json:"isAnonymous"`
		CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	}

	Feedback struct {
		LectureID string    `db:"lecture_id" json:"lectureId"`
		UserID    string    `db:"user_id" json:"userId"`
		Rating    int       `db:"rating" json:"rating"`
		Comment   string    `db:"comment" json:"comment,omitempty"`
		Type      string    `db:"feedback_type" json:"feedbackType"`
		CreatedAt time.Time `db:"created_at" json:"createdAt"`
	}
)
