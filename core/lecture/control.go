package lecture

import "time"

// Professor control actions
const (
	ActionStartLecture      = "start-lecture"
	ActionEndLecture        = "end-lecture"
	ActionPauseLecture      = "pause-lecture"
	ActionResumeLecture     = "resume-lecture"
	ActionRequestAttendance = "request-attendance"
	ActionAssignExercise    = "assign-exercise"
)

// Command is a professor-only instruction. The set of commands is closed:
// ParseCommand maps anything it does not know to UnrecognizedCommand.
type Command interface {
	Action() string
	command()
}

type (
	StartLecture      struct{}
	EndLecture        struct{}
	PauseLecture      struct{}
	ResumeLecture     struct{}
	RequestAttendance struct{}
	AssignExercise    struct {
		Exercise interface{}
		Deadline string
	}
	UnrecognizedCommand struct {
		Name string
	}
)

func (StartLecture) Action() string          { return ActionStartLecture }
func (EndLecture) Action() string            { return ActionEndLecture }
func (PauseLecture) Action() string          { return ActionPauseLecture }
func (ResumeLecture) Action() string         { return ActionResumeLecture }
func (RequestAttendance) Action() string     { return ActionRequestAttendance }
func (AssignExercise) Action() string        { return ActionAssignExercise }
func (c UnrecognizedCommand) Action() string { return c.Name }

func (StartLecture) command()        {}
func (EndLecture) command()          {}
func (PauseLecture) command()        {}
func (ResumeLecture) command()       {}
func (RequestAttendance) command()   {}
func (AssignExercise) command()      {}
func (UnrecognizedCommand) command() {}

// ControlPayload carries the optional arguments of a control action.
type ControlPayload struct {
	Exercise interface{} `json:"exercise,omitempty"`
	Deadline string      `json:"deadline,omitempty"`
}

func ParseCommand(action string, payload *ControlPayload) Command {
	switch action {
	case ActionStartLecture:
		return StartLecture{}
	case ActionEndLecture:
		return EndLecture{}
	case ActionPauseLecture:
		return PauseLecture{}
	case ActionResumeLecture:
		return ResumeLecture{}
	case ActionRequestAttendance:
		return RequestAttendance{}
	case ActionAssignExercise:
		cmd := AssignExercise{}
		if payload != nil {
			cmd.Exercise = payload.Exercise
			cmd.Deadline = payload.Deadline
		}
		return cmd
	default:
		return UnrecognizedCommand{Name: action}
	}
}

type (
	LectureStarted struct {
		StartTime time.Time `json:"startTime"`
	}

	LectureControl struct {
		Timestamp time.Time `json:"timestamp"`
	}

	ExerciseAssigned struct {
		Exercise  interface{} `json:"exercise"`
		Deadline  string      `json:"deadline,omitempty"`
		Timestamp time.Time   `json:"timestamp"`
	}
)

// outcome is what applying a Command produced.
type outcome struct {
	event   string
	payload interface{}
	status  string // lecture status to persist, if any
}

// apply runs cmd against the room state machine:
//
//	Scheduled -> Live <-> Paused ; Live|Paused -> Ended (terminal)
//
// The caller must hold the room lock and must have checked authority.
// UnrecognizedCommand yields a zero outcome and no error.
func (r *Room) apply(cmd Command, now time.Time) (outcome, error) {
	var out outcome
	switch c := cmd.(type) {
	case StartLecture:
		if r.state != StateScheduled {
			return out, ErrInvalidTransition
		}
		r.state = StateLive
		r.startedAt = now
		out = outcome{EventLectureStarted, LectureStarted{StartTime: now}, StatusOngoing}
	case EndLecture:
		if r.state != StateLive && r.state != StatePaused {
			return out, ErrInvalidTransition
		}
		r.state = StateEnded
		out = outcome{EventLectureEnded, LectureControl{Timestamp: now}, StatusCompleted}
	case PauseLecture:
		if r.state != StateLive {
			return out, ErrInvalidTransition
		}
		r.state = StatePaused
		out = outcome{event: EventLecturePaused, payload: LectureControl{Timestamp: now}}
	case ResumeLecture:
		if r.state != StatePaused {
			return out, ErrInvalidTransition
		}
		r.state = StateLive
		out = outcome{event: EventLectureResumed, payload: LectureControl{Timestamp: now}}
	case RequestAttendance:
		out = outcome{event: EventAttendanceCheck, payload: LectureControl{Timestamp: now}}
	case AssignExercise:
		out = outcome{event: EventExerciseAssigned, payload: ExerciseAssigned{
			Exercise:  c.Exercise,
			Deadline:  c.Deadline,
			Timestamp: now,
		}}
	case UnrecognizedCommand:
		return out, nil
	}
	r.touchedAt = now
	return out, nil
}
