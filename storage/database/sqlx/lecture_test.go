package sqlxrepos

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-live/core/lecture"
	"github.com/trezcool/masomo-live/tests"
)

func TestLectureRepository(t *testing.T) {
	db := testutil.PrepareDB(t)
	repo := NewLectureRepository(db)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	testutil.CreateCourseLecture(t, db, "c1", "l1", "prof", lecture.StatusScheduled)
	testutil.CreateCourseLecture(t, db, "c1", "l2", "prof", lecture.StatusCancelled)

	t.Run("get", func(t *testing.T) {
		lec, err := repo.GetLecture(ctx, "l1")
		require.NoError(t, err)
		assert.Equal(t, lecture.Lecture{ID: "l1", Title: "Lecture l1", Status: lecture.StatusScheduled, ProfessorID: "prof"}, lec)

		_, err = repo.GetLecture(ctx, "nope")
		assert.Equal(t, lecture.ErrRoomNotFound, err)
	})

	t.Run("query", func(t *testing.T) {
		all, err := repo.QueryLectures(ctx, "")
		require.NoError(t, err)
		assert.Len(t, all, 2)

		cancelled, err := repo.QueryLectures(ctx, lecture.StatusCancelled)
		require.NoError(t, err)
		require.Len(t, cancelled, 1)
		assert.Equal(t, "l2", cancelled[0].ID)
	})

	t.Run("status", func(t *testing.T) {
		require.NoError(t, repo.UpdateLectureStatus(ctx, "l1", lecture.StatusOngoing, now))
		require.NoError(t, repo.UpdateLectureStatus(ctx, "l1", lecture.StatusOngoing, now.Add(time.Hour)))
		lec, err := repo.GetLecture(ctx, "l1")
		require.NoError(t, err)
		assert.Equal(t, lecture.StatusOngoing, lec.Status)
		require.NotNil(t, lec.StartedAt)
		assert.True(t, now.Equal(*lec.StartedAt), "the first start wins")

		assert.Equal(t, lecture.ErrRoomNotFound, repo.UpdateLectureStatus(ctx, "nope", lecture.StatusOngoing, now))
	})

	t.Run("attendance", func(t *testing.T) {
		require.NoError(t, repo.RecordJoin(ctx, "l1", "u1", now))
		require.NoError(t, repo.RecordLeave(ctx, "l1", "u1", now.Add(time.Minute)))
		require.NoError(t, repo.RecordLeave(ctx, "l1", "u1", now.Add(time.Hour)), "leaving twice is harmless")
		require.NoError(t, repo.RecordJoin(ctx, "l1", "u1", now.Add(2*time.Minute)))

		var leftAt []time.Time
		require.NoError(t, db.SelectContext(ctx, &leftAt,
			`SELECT left_at FROM lecture_participants WHERE lecture_id = 'l1' AND left_at IS NOT NULL`))
		assert.Empty(t, leftAt, "rejoining clears left_at")
	})

	t.Run("question and feedback", func(t *testing.T) {
		q := lecture.Question{
			ID: "q1", LectureID: "l1", UserID: "u1", Content: "why?", Type: "text",
			Position: &lecture.Position{X: 1, Y: 2}, CreatedAt: now,
		}
		require.NoError(t, repo.SaveQuestion(ctx, q))
		require.NoError(t, repo.SaveQuestion(ctx, q), "saving twice is harmless")
		require.NoError(t, repo.SaveFeedback(ctx, lecture.Feedback{LectureID: "l1", UserID: "u1", Rating: 5, Type: "overall", CreatedAt: now}))

		var n int
		require.NoError(t, db.GetContext(ctx, &n, `SELECT count(*) FROM questions`))
		assert.Equal(t, 1, n)
		require.NoError(t, db.GetContext(ctx, &n, `SELECT count(*) FROM lecture_feedback WHERE comment IS NULL`))
		assert.Equal(t, 1, n)
	})
}
