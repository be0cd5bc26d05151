package lecture

import "encoding/json"

// Inbound command names
const (
	CmdJoinLecture          = "join-lecture"
	CmdLeaveLecture         = "leave-lecture"
	CmdUpdatePosition       = "update-position"
	CmdBatchUpdatePositions = "batch-update-positions"
	CmdHeartbeat            = "heartbeat"
	CmdGetActiveUsers       = "get-active-users"
	CmdRaiseHand            = "raise-hand"
	CmdSubmitQuestion       = "submit-question"
	CmdVote                 = "vote"
	CmdSubmitFeedback       = "submit-feedback"
	CmdRequestHelp          = "request-help"
	CmdRespondToHelp        = "respond-to-help"
	CmdSendPrivateMessage   = "send-private-message"
	CmdAttendanceResponse   = "attendance-response"
	CmdSubmitExercise       = "submit-exercise"
	CmdProfessorControl     = "professor-control"
	CmdWebRTCOffer          = EventWebRTCOffer
	CmdWebRTCAnswer         = EventWebRTCAnswer
	CmdWebRTCIceCandidate   = EventWebRTCIceCandidate
)

type (
	JoinRequest struct {
		RoomID   string   `json:"lectureId" validate:"required"`
		UserID   string   `json:"userId" validate:"required"`
		UserInfo Identity `json:"userInfo"`
	}

	// RoomRequest is the payload of the commands that only name the room and, optionally, the user.
	RoomRequest struct {
		RoomID string `json:"lectureId" validate:"required"`
		UserID string `json:"userId"`
	}

	PositionRequest struct {
		RoomID   string    `json:"lectureId" validate:"required"`
		Position *Position `json:"position" validate:"required"`
	}

	BatchPositionsRequest struct {
		RoomID    string         `json:"lectureId" validate:"required"`
		Positions []UserPosition `json:"positions" validate:"required,dive"`
	}

	QuestionRequest struct {
		RoomID       string    `json:"lectureId" validate:"required"`
		UserID       string    `json:"userId"`
		Content      string    `json:"content" validate:"required,notblank,max=2000"`
		QuestionType string    `json:"questionType" validate:"omitempty,oneof=text voice"`
		Position     *Position `json:"position"`
		IsAnonymous  bool      `json:"isAnonymous"`
	}

	VoteRequest struct {
		RoomID string `json:"lectureId" validate:"required"`
		UserID string `json:"userId"`
		Option string `json:"option" validate:"required"`
	}

	FeedbackRequest struct {
		RoomID       string `json:"lectureId" validate:"required"`
		UserID       string `json:"userId"`
		Rating       int    `json:"rating" validate:"min=1,max=5"`
		Comment      string `json:"comment" validate:"max=2000"`
		FeedbackType string `json:"feedbackType" validate:"required,oneof=overall content presentation interaction"`
	}

	HelpRequest struct {
		RoomID      string `json:"lectureId" validate:"required"`
		UserID      string `json:"userId"`
		HelpType    string `json:"helpType" validate:"required,oneof=technical content other"`
		Description string `json:"description" validate:"max=2000"`
	}

	HelpReply struct {
		RoomID       string `json:"lectureId" validate:"required"`
		UserID       string `json:"userId"`
		TargetUserID string `json:"targetUserId" validate:"required"`
		Response     string `json:"response" validate:"required"`
		Action       string `json:"action" validate:"omitempty,oneof=resolved escalate ignore"`
	}

	PrivateMessageRequest struct {
		RoomID       string `json:"lectureId" validate:"required"`
		UserID       string `json:"userId"`
		TargetUserID string `json:"targetUserId" validate:"required"`
		Message      string `json:"message" validate:"required,max=2000"`
		MessageType  string `json:"messageType" validate:"omitempty,oneof=text emoji file"`
	}

	ExerciseRequest struct {
		RoomID string `json:"lectureId" validate:"required"`
		UserID string `json:"userId"`
		Answer string `json:"answer" validate:"required"`
	}

	ControlRequest struct {
		RoomID  string          `json:"lectureId" validate:"required"`
		UserID  string          `json:"userId"`
		Action  string          `json:"action" validate:"required"`
		Payload *ControlPayload `json:"payload"`
	}

	// RelayRequest carries an opaque peer negotiation message.
	RelayRequest struct {
		TargetSocketID string          `json:"targetSocketId" validate:"required"`
		SDP            json.RawMessage `json:"sdp,omitempty"`
		Candidate      json.RawMessage `json:"candidate,omitempty"`
	}
)
