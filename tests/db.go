package testutil

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/masomo-live/core"
	"github.com/trezcool/masomo-live/storage/database"
)

// PrepareDB opens the test database, migrates it and empties its tables.
// Tests are skipped when no database is reachable.
func PrepareDB(t *testing.T) *sqlx.DB {
	t.Helper()
	if os.Getenv("ENV") == "" {
		t.Setenv("ENV", "TEST")
	}
	conf := core.NewConfig()

	db, err := database.OpenOnce(conf)
	if err != nil {
		t.Skipf("no test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err = database.Migrate(db, "up"); err != nil {
		t.Fatalf("PrepareDB(): %v", err)
	}
	ResetDB(t, db)
	return db
}

func ResetDB(t *testing.T, db *sqlx.DB) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := db.ExecContext(ctx, "TRUNCATE courses, lectures, lecture_participants, questions, lecture_feedback"); err != nil {
		t.Fatalf("ResetDB(): %v", err)
	}
}

func CreateCourseLecture(t *testing.T, db *sqlx.DB, courseID, lectureID, professorID, status string) {
	t.Helper()
	ctx := context.Background()
	if _, err := db.ExecContext(ctx,
		`INSERT INTO courses (id, title, professor_id) VALUES ($1, $2, $3) ON CONFLICT (id) DO NOTHING`,
		courseID, "Course "+courseID, professorID,
	); err != nil {
		t.Fatalf("CreateCourseLecture(): %v", err)
	}
	if _, err := db.ExecContext(ctx,
		`INSERT INTO lectures (id, course_id, title, status) VALUES ($1, $2, $3, $4)`,
		lectureID, courseID, "Lecture "+lectureID, status,
	); err != nil {
		t.Fatalf("CreateCourseLecture(): %v", err)
	}
}
