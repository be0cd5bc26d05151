package logsvc

import (
	"bytes"
	"errors"
	"log"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/masomo-live/core"
)

func TestRollbarLogger(t *testing.T) {
	tests := []struct {
		name    string
		debug   bool
		log     func(l *RollbarLogger)
		want    []string
		notWant []string
	}{
		{
			name:    "debug hidden outside debug mode",
			log:     func(l *RollbarLogger) { l.Debug("noisy") },
			notWant: []string{"noisy"},
		},
		{
			name:  "debug shown in debug mode",
			debug: true,
			log:   func(l *RollbarLogger) { l.Debug("noisy") },
			want:  []string{"DEBUG noisy"},
		},
		{
			name: "args printed",
			log: func(l *RollbarLogger) {
				l.Error("persisting record-join", errors.New("db down"), map[string]interface{}{"lecture": "l1"})
			},
			want: []string{"ERROR persisting record-join", "db down", "lecture:l1"},
		},
		{
			name: "person summarised",
			log: func(l *RollbarLogger) {
				l.Warn("dropped message", core.Person{ID: "u1", Name: "Ada", Role: "student"})
			},
			want:    []string{"WARN dropped message", "person: u1 (student)"},
			notWant: []string{"Ada"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			l := NewRollbarLogger(log.New(&buf, "", 0), &core.Config{Debug: tt.debug, TestMode: true})
			tt.log(l)
			out := buf.String()
			for _, w := range tt.want {
				assert.True(t, strings.Contains(out, w), "%q not in %q", w, out)
			}
			for _, w := range tt.notWant {
				assert.False(t, strings.Contains(out, w), "%q in %q", w, out)
			}
		})
	}
}
