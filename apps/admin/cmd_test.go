package main

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-live/core/lecture"
	"github.com/trezcool/masomo-live/storage/database/inmem"
	"github.com/trezcool/masomo-live/tests"
)

func setup(t *testing.T) (*commandLine, *inmemdb.LectureRepository, *bytes.Buffer) {
	repo := inmemdb.NewLectureRepository(inmemdb.Open())
	testutil.CreateLecture(t, repo, "l1", "p1", lecture.StatusScheduled)
	testutil.CreateLecture(t, repo, "l2", "p2", lecture.StatusOngoing)

	var out bytes.Buffer
	return &commandLine{repo: repo, out: &out}, repo, &out
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	wantOut    []string
}

func (tt cliTest) check(t *testing.T, cli *commandLine, out *bytes.Buffer) {
	t.Helper()
	out.Reset()
	err := cli.run(append([]string{"admin"}, tt.args...))

	switch {
	case tt.wantErr != nil:
		assert.Equal(t, tt.wantErr, err)
	case tt.wantErrStr != "":
		require.Error(t, err)
		assert.Equal(t, tt.wantErrStr, err.Error())
	default:
		require.NoError(t, err)
	}
	for _, s := range tt.wantOut {
		assert.Contains(t, out.String(), s)
	}
}

func Test_commandLine_usage(t *testing.T) {
	cli, _, out := setup(t)

	tests := []cliTest{
		{name: "no command", wantErr: errHelp, wantOut: []string{"Usage:"}},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp, wantOut: []string{"Usage:"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) { tt.check(t, cli, out) })
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _, out := setup(t)

	var calls []string
	migrateFunc = func(db *sqlx.DB, command string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		calls = append(calls, strings.Join(append([]string{command}, args...), " "))
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "create", args: []string{"migrate", "create", "polls", "sql"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) { tt.check(t, cli, out) })
	}
	assert.Equal(t, []string{"up", "up-to 2", "down-to 1", "status", "create polls sql"}, calls)
}

func Test_commandLine_lectures(t *testing.T) {
	cli, repo, out := setup(t)

	tests := []cliTest{
		{name: "list all", args: []string{"lectures"}, wantOut: []string{"ID", "l1", "l2", "p2"}},
		{name: "list by status", args: []string{"lectures", "-status", "ongoing"}, wantOut: []string{"l2"}},
		{name: "list by invalid status", args: []string{"lectures", "-status", "lol"}, wantErr: errInvalidStatus},
		{name: "unknown flag", args: []string{"lectures", "-lol"}, wantErr: errHelp},
		{name: "id without status", args: []string{"lectures", "-id", "l1"}, wantErr: errHelp},
		{name: "invalid status", args: []string{"lectures", "-id", "l1", "-status", "live"}, wantErr: errInvalidStatus},
		{name: "unknown lecture", args: []string{"lectures", "-id", "nope", "-status", "cancelled"}, wantErr: lecture.ErrRoomNotFound},
		{name: "set status", args: []string{"lectures", "-id", "l1", "-status", "Cancelled"}, wantOut: []string{"lecture l1 is now cancelled"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) { tt.check(t, cli, out) })
	}

	lec, err := repo.GetLecture(context.Background(), "l1")
	require.NoError(t, err)
	assert.Equal(t, lecture.StatusCancelled, lec.Status)

	out.Reset()
	require.NoError(t, cli.run([]string{"admin", "lectures", "-status", "ongoing"}))
	assert.NotContains(t, out.String(), "l1")
}
