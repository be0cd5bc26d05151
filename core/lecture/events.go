package lecture

// Outbound events
const (
	EventUserJoined            = "user-joined"
	EventUserLeft              = "user-left"
	EventLectureState          = "lecture-state"
	EventPositionUpdated       = "position-updated"
	EventBatchPositionsUpdated = "batch-positions-updated"
	EventHandRaised            = "hand-raised"
	EventQuestionSubmitted     = "question-submitted"
	EventVoteReceived          = "vote-received"
	EventFeedbackReceived      = "feedback-received"
	EventHelpRequested         = "help-requested"
	EventHelpResponse          = "help-response"
	EventPrivateMessage        = "private-message"
	EventAttendanceResponse    = "attendance-response"
	EventExerciseSubmitted     = "exercise-submitted"
	EventLectureStarted        = "lecture-started"
	EventLectureEnded          = "lecture-ended"
	EventLecturePaused         = "lecture-paused"
	EventLectureResumed        = "lecture-resumed"
	EventAttendanceCheck       = "attendance-check"
	EventExerciseAssigned      = "exercise-assigned"
	EventHeartbeatResponse     = "heartbeat-response"
	EventActiveUsersList       = "active-users-list"
	EventNewSubtitle           = "new-subtitle"
	EventError                 = "error"

	EventWebRTCOffer        = "webrtc-offer"
	EventWebRTCAnswer       = "webrtc-answer"
	EventWebRTCIceCandidate = "webrtc-ice-candidate"
)

// Event is a named payload delivered to a connection.
type Event struct {
	Name    string      `json:"type"`
	Payload interface{} `json:"data,omitempty"`
}

// Conn is a live transport connection, as seen by the coordinator.
type Conn interface {
	ID() string
	// Send queues ev for delivery without blocking. It reports false when the event was dropped.
	Send(ev Event) bool
	Close()
}

// ErrorPayload is the payload of EventError.
type ErrorPayload struct {
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}
