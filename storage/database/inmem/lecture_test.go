package inmemdb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-live/core/lecture"
)

func TestLectureRepository(t *testing.T) {
	repo := NewLectureRepository(Open())
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	lec := repo.CreateLecture(lecture.Lecture{ID: "l1", ProfessorID: "p"})
	assert.Equal(t, lecture.StatusScheduled, lec.Status)

	_, err := repo.GetLecture(ctx, "nope")
	assert.Equal(t, lecture.ErrRoomNotFound, err)

	require.NoError(t, repo.UpdateLectureStatus(ctx, "l1", lecture.StatusOngoing, now))
	require.NoError(t, repo.UpdateLectureStatus(ctx, "l1", lecture.StatusOngoing, now.Add(time.Hour)))
	got, err := repo.GetLecture(ctx, "l1")
	require.NoError(t, err)
	assert.Equal(t, lecture.StatusOngoing, got.Status)
	assert.Equal(t, &now, got.StartedAt)
	assert.Equal(t, lecture.ErrRoomNotFound, repo.UpdateLectureStatus(ctx, "nope", lecture.StatusCompleted, now))

	require.NoError(t, repo.RecordJoin(ctx, "l1", "u2", now))
	require.NoError(t, repo.RecordJoin(ctx, "l1", "u1", now))
	require.NoError(t, repo.RecordLeave(ctx, "l1", "u1", now.Add(time.Minute)))
	require.NoError(t, repo.RecordLeave(ctx, "l1", "u1", now.Add(time.Hour)))
	parts := repo.Participations("l1")
	require.Len(t, parts, 2)
	assert.Equal(t, "u1", parts[0].UserID)
	require.NotNil(t, parts[0].LeftAt)
	assert.Equal(t, now.Add(time.Minute), *parts[0].LeftAt, "the first leave wins")

	require.NoError(t, repo.RecordJoin(ctx, "l1", "u1", now.Add(2*time.Minute)))
	assert.Nil(t, repo.Participations("l1")[0].LeftAt)
	assert.Empty(t, repo.Participations("l2"))
}
