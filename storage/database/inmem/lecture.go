package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/trezcool/masomo-live/core/lecture"
)

// Participation is a lecture_participants row.
type Participation struct {
	UserID   string
	JoinedAt time.Time
	LeftAt   *time.Time
}

type LectureRepository struct {
	db *lectureTable
}

var _ lecture.Repository = (*LectureRepository)(nil)

func NewLectureRepository(db *DB) *LectureRepository {
	return &LectureRepository{db: db.lecture}
}

// CreateLecture inserts or replaces lec.
func (repo *LectureRepository) CreateLecture(lec lecture.Lecture) lecture.Lecture {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if lec.Status == "" {
		lec.Status = lecture.StatusScheduled
	}
	repo.db.table[lec.ID] = &lec
	return lec
}

func (repo *LectureRepository) GetLecture(_ context.Context, id string) (lecture.Lecture, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if lec, ok := repo.db.table[id]; ok {
		return *lec, nil
	}
	return lecture.Lecture{}, lecture.ErrRoomNotFound
}

// QueryLectures lists lectures, optionally restricted to one status, ordered by id.
func (repo *LectureRepository) QueryLectures(_ context.Context, status string) ([]lecture.Lecture, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	lectures := make([]lecture.Lecture, 0, len(repo.db.table))
	for _, lec := range repo.db.table {
		if status == "" || lec.Status == status {
			lectures = append(lectures, *lec)
		}
	}
	sort.Slice(lectures, func(i, j int) bool { return lectures[i].ID < lectures[j].ID })
	return lectures, nil
}

func (repo *LectureRepository) RecordJoin(_ context.Context, lectureID, userID string, at time.Time) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	key := lectureID + "/" + userID
	if p, ok := repo.db.participants[key]; ok {
		p.JoinedAt = at
		p.LeftAt = nil
		return nil
	}
	repo.db.participants[key] = &participant{LectureID: lectureID, UserID: userID, JoinedAt: at}
	return nil
}

func (repo *LectureRepository) RecordLeave(_ context.Context, lectureID, userID string, at time.Time) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if p, ok := repo.db.participants[lectureID+"/"+userID]; ok && p.LeftAt == nil {
		p.LeftAt = &at
	}
	return nil
}

func (repo *LectureRepository) UpdateLectureStatus(_ context.Context, lectureID, status string, at time.Time) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	lec, ok := repo.db.table[lectureID]
	if !ok {
		return lecture.ErrRoomNotFound
	}
	lec.Status = status
	if status == lecture.StatusOngoing && lec.StartedAt == nil {
		lec.StartedAt = &at
	}
	return nil
}

func (repo *LectureRepository) SaveQuestion(_ context.Context, q lecture.Question) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	repo.db.questions = append(repo.db.questions, q)
	return nil
}

func (repo *LectureRepository) SaveFeedback(_ context.Context, f lecture.Feedback) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	repo.db.feedback = append(repo.db.feedback, f)
	return nil
}

// Participations returns the attendance of a lecture, ordered by user id.
func (repo *LectureRepository) Participations(lectureID string) []Participation {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	parts := make([]Participation, 0)
	for _, p := range repo.db.participants {
		if p.LectureID == lectureID {
			parts = append(parts, Participation{UserID: p.UserID, JoinedAt: p.JoinedAt, LeftAt: p.LeftAt})
		}
	}
	sort.Slice(parts, func(i, j int) bool { return parts[i].UserID < parts[j].UserID })
	return parts
}

func (repo *LectureRepository) Questions() []lecture.Question {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return append([]lecture.Question(nil), repo.db.questions...)
}

func (repo *LectureRepository) Feedback() []lecture.Feedback {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return append([]lecture.Feedback(nil), repo.db.feedback...)
}
