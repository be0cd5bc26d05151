package inmemdb

import (
	"sync"
	"time"

	"github.com/trezcool/masomo-live/core/lecture"
)

type (
	// DB is a process-local stand-in for the durable store, used in development and tests.
	DB struct {
		lecture *lectureTable
	}

	participant struct {
		LectureID string
		UserID    string
		JoinedAt  time.Time
		LeftAt    *time.Time
	}

	lectureTable struct {
		mutex        sync.RWMutex
		table        map[string]*lecture.Lecture
		participants map[string]*participant // by lecture id + user id
		questions    []lecture.Question
		feedback     []lecture.Feedback
	}
)

func Open() *DB {
	return &DB{
		lecture: &lectureTable{
			table:        make(map[string]*lecture.Lecture),
			participants: make(map[string]*participant),
		},
	}
}
