package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/masomo-live/core"
	"github.com/trezcool/masomo-live/core/lecture"
)

const lectureColumns = `l.id, l.title, l.status, c.professor_id, l.started_at`

type (
	lectureRow struct {
		ID          string    `db:"id"`
		Title       string    `db:"title"`
		Status      string    `db:"status"`
		ProfessorID string    `db:"professor_id"`
		StartedAt   null.Time `db:"started_at"`
	}

	questionRow struct {
		ID          string       `db:"id"`
		LectureID   string       `db:"lecture_id"`
		UserID      string       `db:"user_id"`
		Content     string       `db:"content"`
		Type        string       `db:"question_type"`
		PositionX   null.Float64 `db:"position_x"`
		PositionY   null.Float64 `db:"position_y"`
		IsAnonymous bool         `db:"is_anonymous"`
		CreatedAt   time.Time    `db:"created_at"`
	}

	feedbackRow struct {
		LectureID string      `db:"lecture_id"`
		UserID    string      `db:"user_id"`
		Rating    int         `db:"rating"`
		Comment   null.String `db:"comment"`
		Type      string      `db:"feedback_type"`
		CreatedAt time.Time   `db:"created_at"`
	}
)

func (row lectureRow) lecture() lecture.Lecture {
	return lecture.Lecture{
		ID:          row.ID,
		Title:       row.Title,
		Status:      row.Status,
		ProfessorID: row.ProfessorID,
		StartedAt:   row.StartedAt.Ptr(),
	}
}

type LectureRepository struct {
	exec core.DBExecutor
}

var _ lecture.Repository = (*LectureRepository)(nil) // interface compliance check

func NewLectureRepository(exec core.DBExecutor) *LectureRepository {
	return &LectureRepository{exec: exec}
}

func (repo *LectureRepository) GetLecture(ctx context.Context, id string) (lecture.Lecture, error) {
	var row lectureRow
	q := `SELECT ` + lectureColumns + ` FROM lectures l JOIN courses c ON c.id = l.course_id WHERE l.id = $1`
	if err := repo.exec.GetContext(ctx, &row, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return lecture.Lecture{}, lecture.ErrRoomNotFound
		}
		return lecture.Lecture{}, errors.Wrap(err, "selecting lecture")
	}
	return row.lecture(), nil
}

// QueryLectures lists lectures, optionally restricted to one status, most recent first.
func (repo *LectureRepository) QueryLectures(ctx context.Context, status string) ([]lecture.Lecture, error) {
	q := `SELECT ` + lectureColumns + ` FROM lectures l JOIN courses c ON c.id = l.course_id
		WHERE ($1 = '' OR l.status = $1) ORDER BY l.created_at DESC`
	var rows []lectureRow
	if err := repo.exec.SelectContext(ctx, &rows, q, status); err != nil {
		return nil, errors.Wrap(err, "selecting lectures")
	}
	lectures := make([]lecture.Lecture, 0, len(rows))
	for _, row := range rows {
		lectures = append(lectures, row.lecture())
	}
	return lectures, nil
}

func (repo *LectureRepository) RecordJoin(ctx context.Context, lectureID, userID string, at time.Time) error {
	q := `INSERT INTO lecture_participants (lecture_id, user_id, joined_at) VALUES ($1, $2, $3)
		ON CONFLICT (lecture_id, user_id) DO UPDATE SET joined_at = EXCLUDED.joined_at, left_at = NULL`
	if _, err := repo.exec.ExecContext(ctx, q, lectureID, userID, at.UTC()); err != nil {
		return errors.Wrap(err, "recording join")
	}
	return nil
}

func (repo *LectureRepository) RecordLeave(ctx context.Context, lectureID, userID string, at time.Time) error {
	q := `UPDATE lecture_participants SET left_at = $3 WHERE lecture_id = $1 AND user_id = $2 AND left_at IS NULL`
	if _, err := repo.exec.ExecContext(ctx, q, lectureID, userID, at.UTC()); err != nil {
		return errors.Wrap(err, "recording leave")
	}
	return nil
}

func (repo *LectureRepository) UpdateLectureStatus(ctx context.Context, lectureID, status string, at time.Time) error {
	q := `UPDATE lectures SET status = $2,
		started_at = CASE WHEN $2 = 'ongoing' THEN COALESCE(started_at, $3) ELSE started_at END,
		ended_at = CASE WHEN $2 = 'completed' THEN $3 ELSE ended_at END
		WHERE id = $1`
	res, err := repo.exec.ExecContext(ctx, q, lectureID, status, at.UTC())
	if err != nil {
		return errors.Wrap(err, "updating lecture status")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return lecture.ErrRoomNotFound
	}
	return nil
}

func (repo *LectureRepository) SaveQuestion(ctx context.Context, q lecture.Question) error {
	row := questionRow{
		ID:          q.ID,
		LectureID:   q.LectureID,
		UserID:      q.UserID,
		Content:     q.Content,
		Type:        q.Type,
		IsAnonymous: q.IsAnonymous,
		CreatedAt:   q.CreatedAt.UTC(),
	}
	if q.Position != nil {
		row.PositionX = null.Float64From(q.Position.X)
		row.PositionY = null.Float64From(q.Position.Y)
	}
	stmt := `INSERT INTO questions
		(id, lecture_id, user_id, content, question_type, position_x, position_y, is_anonymous, created_at)
		VALUES (:id, :lecture_id, :user_id, :content, :question_type, :position_x, :position_y, :is_anonymous, :created_at)
		ON CONFLICT (id) DO NOTHING`
	if _, err := repo.exec.NamedExecContext(ctx, stmt, row); err != nil {
		return errors.Wrap(err, "inserting question")
	}
	return nil
}

func (repo *LectureRepository) SaveFeedback(ctx context.Context, f lecture.Feedback) error {
	row := feedbackRow{
		LectureID: f.LectureID,
		UserID:    f.UserID,
		Rating:    f.Rating,
		Comment:   null.NewString(f.Comment, f.Comment != ""),
		Type:      f.Type,
		CreatedAt: f.CreatedAt.UTC(),
	}
	stmt := `INSERT INTO lecture_feedback (lecture_id, user_id, rating, comment, feedback_type, created_at)
		VALUES (:lecture_id, :user_id, :rating, :comment, :feedback_type, :created_at)`
	if _, err := repo.exec.NamedExecContext(ctx, stmt, row); err != nil {
		return errors.Wrap(err, "inserting feedback")
	}
	return nil
}
