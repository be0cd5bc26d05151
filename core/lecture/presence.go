package lecture

import "time"

// broadcast delivers the event to every member of the room except the
// connection excludeConnID (if set). Delivery is a non-blocking enqueue per
// recipient; since it happens under the room lock, recipients observe the room's
// events in the order they were issued.
func (r *Room) broadcast(name string, payload interface{}, excludeConnID string) int {
	var delivered int
	for _, sess := range r.members {
		if excludeConnID != "" && sess.ConnectionID() == excludeConnID {
			continue
		}
		if sess.send(name, payload) {
			delivered++
		}
	}
	return delivered
}

type (
	UserJoined struct {
		UserID    string    `json:"userId"`
		SocketID  string    `json:"socketId"`
		UserInfo  Identity  `json:"userInfo"`
		Timestamp time.Time `json:"timestamp"`
	}

	UserLeft struct {
		UserID    string    `json:"userId"`
		Timestamp time.Time `json:"timestamp"`
	}

	PositionUpdated struct {
		UserID    string    `json:"userId"`
		Position  Position  `json:"position"`
		Timestamp time.Time `json:"timestamp"`
	}

	UserPosition struct {
		UserID   string   `json:"userId" validate:"required"`
		Position Position `json:"position"`
	}

	BatchPositionsUpdated struct {
		Positions []UserPosition `json:"positions"`
		Timestamp time.Time      `json:"timestamp"`
	}

	HeartbeatResponse struct {
		Timestamp  time.Time `json:"timestamp"`
		ServerTime int64     `json:"serverTime"` // unix milliseconds
	}

	ActiveUsersList struct {
		Users     []Member  `json:"users"`
		Count     int       `json:"count"`
		Timestamp time.Time `json:"timestamp"`
	}

	HandRaised struct {
		UserID    string    `json:"userId"`
		UserInfo  Identity  `json:"userInfo"`
		Position  *Position `json:"position,omitempty"`
		Timestamp time.Time `json:"timestamp"`
	}

	QuestionSubmitted struct {
		Question
		UserInfo  *Identity `json:"userInfo"`
		Timestamp time.Time `json:"timestamp"`
	}

	VoteReceived struct {
		UserID    string    `json:"userId"`
		Option    string    `json:"option"`
		Timestamp time.Time `json:"timestamp"`
	}

	FeedbackReceived struct {
		UserID       string    `json:"userId"`
		Rating       int       `json:"rating"`
		FeedbackType string    `json:"feedbackType"`
		Timestamp    time.Time `json:"timestamp"`
	}

	HelpRequested struct {
		UserID      string    `json:"userId"`
		UserInfo    Identity  `json:"userInfo"`
		HelpType    string    `json:"helpType"`
		Description string    `json:"description,omitempty"`
		Position    *Position `json:"position,omitempty"`
		Timestamp   time.Time `json:"timestamp"`
	}

	HelpResponse struct {
		ProfessorID   string    `json:"professorId"`
		ProfessorInfo Identity  `json:"professorInfo"`
		Response      string    `json:"response"`
		Action        string    `json:"action"`
		Timestamp     time.Time `json:"timestamp"`
	}

	PrivateMessage struct {
		FromUserID   string    `json:"fromUserId"`
		FromUserInfo Identity  `json:"fromUserInfo"`
		Message      string    `json:"message"`
		MessageType  string    `json:"messageType"`
		Timestamp    time.Time `json:"timestamp"`
	}

	AttendanceResponse struct {
		UserID    string    `json:"userId"`
		Name      string    `json:"name"`
		Timestamp time.Time `json:"timestamp"`
	}

	ExerciseSubmitted struct {
		UserID      string    `json:"userId"`
		Answer      string    `json:"answer"`
		SubmittedAt time.Time `json:"submittedAt"`
	}

	Subtitle struct {
		Text      string    `json:"text"`
		Language  string    `json:"language,omitempty"`
		Timestamp time.Time `json:"timestamp"`
	}
)
