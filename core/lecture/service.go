package lecture

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"

	"github.com/trezcool/masomo-live/core"
)

type (
	// Repository is the durable store. Only GetLecture is awaited; every write is
	// handed to the Recorder and must be safe to repeat.
	Repository interface {
		LectureFinder
		RecordJoin(ctx context.Context, lectureID, userID string, at time.Time) error
		RecordLeave(ctx context.Context, lectureID, userID string, at time.Time) error
		// UpdateLectureStatus also stamps started_at (ongoing) or ended_at (completed).
		UpdateLectureStatus(ctx context.Context, lectureID, status string, at time.Time) error
		SaveQuestion(ctx context.Context, q Question) error
		SaveFeedback(ctx context.Context, f Feedback) error
	}

	Options struct {
		HeartbeatTimeout time.Duration
		ActiveWindow     time.Duration
		RoomIdleTTL      time.Duration
		PersistQueueSize int
		PersistWorkers   int
		PersistTimeout   time.Duration
	}

	// Service is the lecture coordinator. Transports call it with the id of the
	// connection a command arrived on.
	Service struct {
		repo     Repository
		logger   core.Logger
		clock    clock.Clock
		opts     Options
		registry *Registry
		rooms    *RoomStore
		recorder *Recorder
	}
)

func NewOptions(cfg core.LiveConfig) Options {
	return Options{
		HeartbeatTimeout: cfg.HeartbeatTimeout,
		ActiveWindow:     cfg.ActiveWindow,
		RoomIdleTTL:      cfg.RoomIdleTTL,
		PersistQueueSize: cfg.PersistQueueSize,
		PersistWorkers:   cfg.PersistWorkers,
		PersistTimeout:   cfg.PersistTimeout,
	}
}

func NewService(repo Repository, logger core.Logger, opts Options, clk clock.Clock) *Service {
	if clk == nil {
		clk = clock.New()
	}
	return &Service{
		repo:     repo,
		logger:   logger,
		clock:    clk,
		opts:     opts,
		registry: NewRegistry(clk),
		rooms:    NewRoomStore(repo, clk, opts.RoomIdleTTL),
		recorder: NewRecorder(logger, opts.PersistQueueSize, opts.PersistWorkers, opts.PersistTimeout),
	}
}

// Close waits for pending durable store writes.
func (svc *Service) Close() {
	svc.recorder.Close()
}

// CloseConnections closes every registered transport connection. The transports
// then report their disconnects as usual. It returns the number of connections closed.
func (svc *Service) CloseConnections() int {
	sessions := svc.registry.Sessions()
	for _, sess := range sessions {
		sess.conn.Close()
	}
	return len(sessions)
}

func (svc *Service) now() time.Time {
	return svc.clock.Now().UTC()
}

func (svc *Service) Connect(conn Conn) *Session {
	return svc.registry.Connect(conn)
}

// Disconnect tears down the connection's membership, if any. It is safe to call
// more than once.
func (svc *Service) Disconnect(connID string) {
	if sess, ok := svc.registry.Unbind(connID); ok {
		svc.teardown(sess)
	}
}

// teardown removes sess from its room and tells the remaining members.
// It is the single departure path of leave, disconnect and eviction and does
// nothing when sess is no longer a member.
func (svc *Service) teardown(sess *Session) bool {
	roomID := sess.RoomID()
	if roomID == "" {
		return false
	}
	var userID string
	err := svc.rooms.With(roomID, func(r *Room) error {
		userID = sess.UserID()
		now := svc.now()
		if err := r.leave(userID, sess, now); err != nil {
			return err
		}
		metricMembers.Dec()
		r.broadcast(EventUserLeft, UserLeft{UserID: userID, Timestamp: now}, sess.ConnectionID())
		svc.persist(roomID, "record-leave", func(ctx context.Context) error {
			return svc.repo.RecordLeave(ctx, roomID, userID, now)
		})
		return nil
	})
	if err != nil {
		return false
	}
	svc.logger.Info("user " + userID + " left lecture " + roomID)
	return true
}

// persist queues a durable write of the lecture roomID. Writes of one lecture
// land in the order they were queued.
func (svc *Service) persist(roomID, name string, task Task) {
	svc.recorder.Submit(roomID, name, task)
}

// withMember runs fn with the room lock held, provided the connection is the
// room's current entry for its user. A non-empty userID must be the connection's own.
func (svc *Service) withMember(connID, roomID, userID string, fn func(r *Room, sess *Session) error) error {
	sess, ok := svc.registry.Lookup(connID)
	if !ok {
		return ErrNotAMember
	}
	if userID != "" && userID != sess.UserID() {
		return ErrUnauthorized
	}
	return svc.rooms.With(roomID, func(r *Room) error {
		if !r.isMember(sess) {
			return ErrNotAMember
		}
		return fn(r, sess)
	})
}

// withProfessor is withMember restricted to the room's professor.
func (svc *Service) withProfessor(connID, roomID, userID string, fn func(r *Room, sess *Session) error) error {
	return svc.withMember(connID, roomID, userID, func(r *Room, sess *Session) error {
		if sess.UserID() != r.ProfessorID() {
			return ErrUnauthorized
		}
		return fn(r, sess)
	})
}

// Join makes the connection a member of the lecture room and returns the snapshot
// it was sent. A previous membership of the connection in another room is torn down first.
func (svc *Service) Join(ctx context.Context, connID string, req JoinRequest) (Snapshot, error) {
	sess, ok := svc.registry.Lookup(connID)
	if !ok {
		return Snapshot{}, ErrNotAMember
	}
	lec, err := svc.rooms.Validate(ctx, req.RoomID)
	if err != nil {
		return Snapshot{}, err
	}
	if prev := sess.RoomID(); prev != "" && (prev != lec.ID || sess.UserID() != req.UserID) {
		svc.teardown(sess)
	}

	var snap Snapshot
	err = svc.rooms.Open(lec, func(r *Room) error {
		now := svc.now()
		wasMember := r.isMember(sess)
		if _, ok := svc.registry.Bind(connID, req.UserID, r.ID(), req.UserInfo); !ok {
			return ErrNotAMember // disconnected meanwhile
		}
		if superseded := r.join(sess, now); superseded != nil {
			svc.logger.Debug("connection " + superseded.ConnectionID() + " superseded in lecture " + r.ID())
		} else if !wasMember {
			metricMembers.Inc()
		}

		r.broadcast(EventUserJoined, UserJoined{
			UserID:    req.UserID,
			SocketID:  connID,
			UserInfo:  req.UserInfo,
			Timestamp: now,
		}, connID)
		snap = r.snapshot()
		sess.send(EventLectureState, snap)

		svc.persist(r.ID(), "record-join", func(ctx context.Context) error {
			return svc.repo.RecordJoin(ctx, lec.ID, req.UserID, now)
		})
		return nil
	})
	if err != nil {
		return Snapshot{}, err
	}
	svc.logger.Info("user " + req.UserID + " joined lecture " + lec.ID)
	return snap, nil
}

func (svc *Service) Leave(connID string, req RoomRequest) error {
	sess, ok := svc.registry.Lookup(connID)
	if !ok {
		return ErrNotAMember
	}
	if req.UserID != "" && req.UserID != sess.UserID() {
		return ErrUnauthorized
	}
	if sess.RoomID() != req.RoomID || !svc.teardown(sess) {
		return ErrNotAMember
	}
	return nil
}

func (svc *Service) UpdatePosition(connID string, req PositionRequest) error {
	return svc.withMember(connID, req.RoomID, "", func(r *Room, sess *Session) error {
		userID := sess.UserID()
		if err := r.updatePosition(userID, *req.Position); err != nil {
			return err
		}
		r.broadcast(EventPositionUpdated, PositionUpdated{
			UserID:    userID,
			Position:  *req.Position,
			Timestamp: svc.now(),
		}, connID)
		return nil
	})
}

// BatchUpdatePositions applies the positions of the users currently in the room
// and relays the applied ones to the other members.
func (svc *Service) BatchUpdatePositions(connID string, req BatchPositionsRequest) error {
	return svc.withMember(connID, req.RoomID, "", func(r *Room, _ *Session) error {
		applied := make([]UserPosition, 0, len(req.Positions))
		for _, up := range req.Positions {
			if r.updatePosition(up.UserID, up.Position) == nil {
				applied = append(applied, up)
			}
		}
		if len(applied) == 0 {
			return nil
		}
		r.broadcast(EventBatchPositionsUpdated, BatchPositionsUpdated{
			Positions: applied,
			Timestamp: svc.now(),
		}, connID)
		return nil
	})
}

// Heartbeat refreshes the liveness of the connection and answers the sender only.
func (svc *Service) Heartbeat(connID string, req RoomRequest) error {
	return svc.withMember(connID, req.RoomID, req.UserID, func(_ *Room, sess *Session) error {
		now := svc.now()
		sess.touch(now)
		sess.send(EventHeartbeatResponse, HeartbeatResponse{Timestamp: now, ServerTime: now.UnixMilli()})
		return nil
	})
}

func (svc *Service) ActiveUsers(connID string, req RoomRequest) error {
	return svc.withMember(connID, req.RoomID, "", func(r *Room, sess *Session) error {
		users := r.list()
		sess.send(EventActiveUsersList, ActiveUsersList{Users: users, Count: len(users), Timestamp: svc.now()})
		return nil
	})
}

func (svc *Service) RaiseHand(connID string, req RoomRequest) error {
	return svc.withMember(connID, req.RoomID, req.UserID, func(r *Room, sess *Session) error {
		m := sess.member()
		r.broadcast(EventHandRaised, HandRaised{
			UserID:    m.UserID,
			UserInfo:  m.UserInfo,
			Position:  m.Position,
			Timestamp: svc.now(),
		}, "")
		return nil
	})
}

func (svc *Service) SubmitQuestion(connID string, req QuestionRequest) (Question, error) {
	var q Question
	err := svc.withMember(connID, req.RoomID, req.UserID, func(r *Room, sess *Session) error {
		now := svc.now()
		q = Question{
			ID:          uuid.New().String(),
			LectureID:   r.ID(),
			UserID:      sess.UserID(),
			Content:     core.CleanString(req.Content),
			Type:        req.QuestionType,
			Position:    req.Position,
			IsAnonymous: req.IsAnonymous,
			CreatedAt:   now,
		}
		if q.Type == "" {
			q.Type = "text"
		}
		ev := QuestionSubmitted{Question: q, Timestamp: now}
		if !q.IsAnonymous {
			info := sess.Identity()
			ev.UserInfo = &info
		}
		r.broadcast(EventQuestionSubmitted, ev, "")

		saved := q
		svc.persist(r.ID(), "save-question", func(ctx context.Context) error {
			return svc.repo.SaveQuestion(ctx, saved)
		})
		return nil
	})
	return q, err
}

func (svc *Service) Vote(connID string, req VoteRequest) error {
	return svc.withMember(connID, req.RoomID, req.UserID, func(r *Room, sess *Session) error {
		r.broadcast(EventVoteReceived, VoteReceived{
			UserID:    sess.UserID(),
			Option:    req.Option,
			Timestamp: svc.now(),
		}, "")
		return nil
	})
}

func (svc *Service) SubmitFeedback(connID string, req FeedbackRequest) error {
	return svc.withMember(connID, req.RoomID, req.UserID, func(r *Room, sess *Session) error {
		now := svc.now()
		fb := Feedback{
			LectureID: r.ID(),
			UserID:    sess.UserID(),
			Rating:    req.Rating,
			Comment:   core.CleanString(req.Comment),
			Type:      req.FeedbackType,
			CreatedAt: now,
		}
		r.broadcast(EventFeedbackReceived, FeedbackReceived{
			UserID:       fb.UserID,
			Rating:       fb.Rating,
			FeedbackType: fb.Type,
			Timestamp:    now,
		}, "")
		svc.persist(r.ID(), "save-feedback", func(ctx context.Context) error {
			return svc.repo.SaveFeedback(ctx, fb)
		})
		return nil
	})
}

func (svc *Service) RequestHelp(connID string, req HelpRequest) error {
	return svc.withMember(connID, req.RoomID, req.UserID, func(r *Room, sess *Session) error {
		m := sess.member()
		r.broadcast(EventHelpRequested, HelpRequested{
			UserID:      m.UserID,
			UserInfo:    m.UserInfo,
			HelpType:    req.HelpType,
			Description: req.Description,
			Position:    m.Position,
			Timestamp:   svc.now(),
		}, "")
		return nil
	})
}

// RespondToHelp delivers the professor's answer to one member of the room.
// An absent target is not an error.
func (svc *Service) RespondToHelp(connID string, req HelpReply) error {
	return svc.withProfessor(connID, req.RoomID, req.UserID, func(r *Room, sess *Session) error {
		target, ok := r.memberSession(req.TargetUserID)
		if !ok {
			svc.logger.Debug("help response to absent user " + req.TargetUserID)
			return nil
		}
		action := req.Action
		if action == "" {
			action = "resolved"
		}
		target.send(EventHelpResponse, HelpResponse{
			ProfessorID:   sess.UserID(),
			ProfessorInfo: sess.Identity(),
			Response:      req.Response,
			Action:        action,
			Timestamp:     svc.now(),
		})
		return nil
	})
}

// SendPrivateMessage delivers a message to one member of the same room.
// An absent target is not an error.
func (svc *Service) SendPrivateMessage(connID string, req PrivateMessageRequest) error {
	return svc.withMember(connID, req.RoomID, req.UserID, func(r *Room, sess *Session) error {
		target, ok := r.memberSession(req.TargetUserID)
		if !ok {
			svc.logger.Debug("private message to absent user " + req.TargetUserID)
			return nil
		}
		kind := req.MessageType
		if kind == "" {
			kind = "text"
		}
		target.send(EventPrivateMessage, PrivateMessage{
			FromUserID:   sess.UserID(),
			FromUserInfo: sess.Identity(),
			Message:      req.Message,
			MessageType:  kind,
			Timestamp:    svc.now(),
		})
		return nil
	})
}

func (svc *Service) AttendanceResponse(connID string, req RoomRequest) error {
	return svc.withMember(connID, req.RoomID, req.UserID, func(r *Room, sess *Session) error {
		r.broadcast(EventAttendanceResponse, AttendanceResponse{
			UserID:    sess.UserID(),
			Name:      sess.Identity().Name,
			Timestamp: svc.now(),
		}, "")
		return nil
	})
}

func (svc *Service) SubmitExercise(connID string, req ExerciseRequest) error {
	return svc.withMember(connID, req.RoomID, req.UserID, func(r *Room, sess *Session) error {
		r.broadcast(EventExerciseSubmitted, ExerciseSubmitted{
			UserID:      sess.UserID(),
			Answer:      req.Answer,
			SubmittedAt: svc.now(),
		}, "")
		return nil
	})
}

// Control applies a professor command to the room state machine and fans the
// result out to every member. Unknown actions are logged and ignored.
func (svc *Service) Control(connID string, req ControlRequest) error {
	cmd := ParseCommand(req.Action, req.Payload)
	return svc.withProfessor(connID, req.RoomID, req.UserID, func(r *Room, _ *Session) error {
		if _, ok := cmd.(UnrecognizedCommand); ok {
			svc.logger.Warn("ignoring unknown control action " + cmd.Action() + " in lecture " + r.ID())
			return nil
		}
		now := svc.now()
		out, err := r.apply(cmd, now)
		if err != nil {
			return err
		}
		r.broadcast(out.event, out.payload, "")
		if out.status != "" {
			roomID, status := r.ID(), out.status
			svc.persist(roomID, "update-status", func(ctx context.Context) error {
				return svc.repo.UpdateLectureStatus(ctx, roomID, status, now)
			})
		}
		svc.logger.Info("lecture " + r.ID() + ": " + cmd.Action())
		return nil
	})
}

// Broadcast sends an event originating outside the room (e.g. live subtitles)
// to all of its members.
func (svc *Service) Broadcast(roomID, name string, payload interface{}) (int, error) {
	var n int
	err := svc.rooms.With(roomID, func(r *Room) error {
		n = r.broadcast(name, payload, "")
		return nil
	})
	if err == ErrNotAMember {
		return 0, ErrRoomNotFound
	}
	return n, err
}

func (svc *Service) Stats(roomID string) (RoomStats, error) {
	var stats RoomStats
	err := svc.rooms.With(roomID, func(r *Room) error {
		now := svc.now()
		snap := r.snapshot()
		stats = RoomStats{
			LectureID:        r.ID(),
			ProfessorID:      r.ProfessorID(),
			State:            snap.State,
			IsLive:           snap.IsLive,
			StartTime:        snap.StartTime,
			ParticipantCount: len(snap.Participants),
			Participants:     make([]MemberStats, 0, len(snap.Participants)),
		}
		for _, m := range snap.Participants {
			sess, _ := r.memberSession(m.UserID)
			last := sess.LastActivity()
			active := now.Sub(last) < svc.opts.ActiveWindow
			if active {
				stats.ActiveParticipantCount++
			}
			stats.Participants = append(stats.Participants, MemberStats{Member: m, LastActivity: last, IsActive: active})
		}
		return nil
	})
	if err == ErrNotAMember {
		return RoomStats{}, ErrRoomNotFound
	}
	return stats, err
}
