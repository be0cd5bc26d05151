package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-live/core"
	"github.com/trezcool/masomo-live/core/lecture"
)

var errMalformedPayload = errors.New("malformed payload")

type commandFunc func(ctx context.Context, c *Client, data json.RawMessage) error

// Handler upgrades HTTP requests to websocket connections and feeds their
// messages to the lecture coordinator.
type Handler struct {
	svc        *lecture.Service
	validate   *validator.Validate
	translator ut.Translator
	logger     core.Logger
	opts       Options
	upgrader   websocket.Upgrader
	commands   map[string]commandFunc
	conns      sync.WaitGroup
}

func NewHandler(
	svc *lecture.Service,
	validate *validator.Validate,
	translator ut.Translator,
	logger core.Logger,
	opts Options,
) *Handler {
	h := &Handler{
		svc:        svc,
		validate:   validate,
		translator: translator,
		logger:     logger,
		opts:       opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// the connection is authenticated by its token, not by its origin
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
	h.commands = map[string]commandFunc{
		lecture.CmdJoinLecture:          h.join,
		lecture.CmdLeaveLecture:         h.leave,
		lecture.CmdUpdatePosition:       h.updatePosition,
		lecture.CmdBatchUpdatePositions: h.batchUpdatePositions,
		lecture.CmdHeartbeat:            h.heartbeat,
		lecture.CmdGetActiveUsers:       h.activeUsers,
		lecture.CmdRaiseHand:            h.raiseHand,
		lecture.CmdSubmitQuestion:       h.submitQuestion,
		lecture.CmdVote:                 h.vote,
		lecture.CmdSubmitFeedback:       h.submitFeedback,
		lecture.CmdRequestHelp:          h.requestHelp,
		lecture.CmdRespondToHelp:        h.respondToHelp,
		lecture.CmdSendPrivateMessage:   h.sendPrivateMessage,
		lecture.CmdAttendanceResponse:   h.attendanceResponse,
		lecture.CmdSubmitExercise:       h.submitExercise,
		lecture.CmdProfessorControl:     h.control,
		lecture.CmdWebRTCOffer:          h.relay(lecture.CmdWebRTCOffer),
		lecture.CmdWebRTCAnswer:         h.relay(lecture.CmdWebRTCAnswer),
		lecture.CmdWebRTCIceCandidate:   h.relay(lecture.CmdWebRTCIceCandidate),
	}
	return h
}

// Serve upgrades the request and runs the connection until it is closed, by
// either side or by the liveness reaper. The upgrader has already answered
// the request when an error is returned.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request, ident Identity) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return errors.Wrap(err, "upgrading connection")
	}

	h.conns.Add(1)
	defer h.conns.Done()

	c := newClient(conn, ident, h.opts, h.logger)
	h.svc.Connect(c)
	h.logger.Debug("connection " + c.ID() + " opened for user " + ident.UserID)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		c.writePump()
	}()

	ctx := context.Background()
	c.readPump(func(c *Client, msg envelope) { h.handle(ctx, c, msg) })

	h.svc.Disconnect(c.ID())
	c.Close()
	<-writerDone
	h.logger.Debug("connection " + c.ID() + " closed")
	return nil
}

// Wait blocks until every connection served so far has been torn down, or ctx is done.
func (h *Handler) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		h.conns.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "waiting for live connections")
	}
}

func (h *Handler) handle(ctx context.Context, c *Client, msg envelope) {
	cmd, ok := h.commands[msg.Type]
	if !ok {
		h.logger.Debug("ignoring unknown command " + msg.Type + " from connection " + c.ID())
		return
	}
	if err := cmd(ctx, c, msg.Data); err != nil {
		h.reportError(c, msg.Type, err)
	}
}

// reportError tells the connection what went wrong. Only validation errors and
// the coordinator's own errors are shown as is.
func (h *Handler) reportError(c *Client, cmd string, err error) {
	var payload lecture.ErrorPayload

	switch origErr := errors.Cause(err).(type) {
	case *core.ValidationError:
		payload.Message = origErr.Error()
		if len(origErr.Fields) > 0 {
			payload.Message = "invalid " + cmd + " payload"
			payload.Fields = origErr.FieldsMap()
		}
	default:
		if lecture.IsReportable(origErr) {
			payload.Message = origErr.Error()
			break
		}
		payload.Message = "internal error"
		person := core.Person{ID: c.ident.UserID, Name: c.ident.Name, Role: c.ident.Role}
		h.logger.Error(cmd+" failed", errors.Wrap(err, cmd), person)
	}
	c.sendError(payload)
}

// decode unmarshals data into req and validates it.
func (h *Handler) decode(data json.RawMessage, req interface{}) error {
	if len(data) == 0 {
		data = json.RawMessage("{}")
	}
	if err := json.Unmarshal(data, req); err != nil {
		return core.NewValidationError(errMalformedPayload)
	}
	if err := h.validate.Struct(req); err != nil {
		return core.TranslateValidationErrors(err, h.translator)
	}
	return nil
}

// Commands

func (h *Handler) join(ctx context.Context, c *Client, data json.RawMessage) error {
	var req lecture.JoinRequest
	if err := h.decode(data, &req); err != nil {
		return err
	}
	if req.UserID != c.ident.UserID {
		return lecture.ErrUnauthorized
	}
	req.UserInfo.Role = c.ident.Role
	if req.UserInfo.Name == "" {
		req.UserInfo.Name = c.ident.Name
	}
	_, err := h.svc.Join(ctx, c.ID(), req)
	return err
}

func (h *Handler) leave(_ context.Context, c *Client, data json.RawMessage) error {
	var req lecture.RoomRequest
	if err := h.decode(data, &req); err != nil {
		return err
	}
	return h.svc.Leave(c.ID(), req)
}

func (h *Handler) updatePosition(_ context.Context, c *Client, data json.RawMessage) error {
	var req lecture.PositionRequest
	if err := h.decode(data, &req); err != nil {
		return err
	}
	return h.svc.UpdatePosition(c.ID(), req)
}

func (h *Handler) batchUpdatePositions(_ context.Context, c *Client, data json.RawMessage) error {
	var req lecture.BatchPositionsRequest
	if err := h.decode(data, &req); err != nil {
		return err
	}
	return h.svc.BatchUpdatePositions(c.ID(), req)
}

func (h *Handler) heartbeat(_ context.Context, c *Client, data json.RawMessage) error {
	var req lecture.RoomRequest
	if err := h.decode(data, &req); err != nil {
		return err
	}
	return h.svc.Heartbeat(c.ID(), req)
}

func (h *Handler) activeUsers(_ context.Context, c *Client, data json.RawMessage) error {
	var req lecture.RoomRequest
	if err := h.decode(data, &req); err != nil {
		return err
	}
	return h.svc.ActiveUsers(c.ID(), req)
}

func (h *Handler) raiseHand(_ context.Context, c *Client, data json.RawMessage) error {
	var req lecture.RoomRequest
	if err := h.decode(data, &req); err != nil {
		return err
	}
	return h.svc.RaiseHand(c.ID(), req)
}

func (h *Handler) submitQuestion(_ context.Context, c *Client, data json.RawMessage) error {
	var req lecture.QuestionRequest
	if err := h.decode(data, &req); err != nil {
		return err
	}
	_, err := h.svc.SubmitQuestion(c.ID(), req)
	return err
}

func (h *Handler) vote(_ context.Context, c *Client, data json.RawMessage) error {
	var req lecture.VoteRequest
	if err := h.decode(data, &req); err != nil {
		return err
	}
	return h.svc.Vote(c.ID(), req)
}

func (h *Handler) submitFeedback(_ context.Context, c *Client, data json.RawMessage) error {
	var req lecture.FeedbackRequest
	if err := h.decode(data, &req); err != nil {
		return err
	}
	return h.svc.SubmitFeedback(c.ID(), req)
}

func (h *Handler) requestHelp(_ context.Context, c *Client, data json.RawMessage) error {
	var req lecture.HelpRequest
	if err := h.decode(data, &req); err != nil {
		return err
	}
	return h.svc.RequestHelp(c.ID(), req)
}

func (h *Handler) respondToHelp(_ context.Context, c *Client, data json.RawMessage) error {
	var req lecture.HelpReply
	if err := h.decode(data, &req); err != nil {
		return err
	}
	return h.svc.RespondToHelp(c.ID(), req)
}

func (h *Handler) sendPrivateMessage(_ context.Context, c *Client, data json.RawMessage) error {
	var req lecture.PrivateMessageRequest
	if err := h.decode(data, &req); err != nil {
		return err
	}
	return h.svc.SendPrivateMessage(c.ID(), req)
}

func (h *Handler) attendanceResponse(_ context.Context, c *Client, data json.RawMessage) error {
	var req lecture.RoomRequest
	if err := h.decode(data, &req); err != nil {
		return err
	}
	return h.svc.AttendanceResponse(c.ID(), req)
}

func (h *Handler) submitExercise(_ context.Context, c *Client, data json.RawMessage) error {
	var req lecture.ExerciseRequest
	if err := h.decode(data, &req); err != nil {
		return err
	}
	return h.svc.SubmitExercise(c.ID(), req)
}

func (h *Handler) control(_ context.Context, c *Client, data json.RawMessage) error {
	var req lecture.ControlRequest
	if err := h.decode(data, &req); err != nil {
		return err
	}
	return h.svc.Control(c.ID(), req)
}

// relay never reports an error besides a malformed payload: an unreachable
// target is a silent drop.
func (h *Handler) relay(kind string) commandFunc {
	return func(_ context.Context, c *Client, data json.RawMessage) error {
		var req lecture.RelayRequest
		if err := h.decode(data, &req); err != nil {
			return err
		}
		if err := h.svc.Relay(c.ID(), kind, req); err != lecture.ErrTargetUnreachable {
			return err
		}
		h.logger.Debug(kind + " from " + c.ID() + " dropped: " + req.TargetSocketID + " is unreachable")
		return nil
	}
}
