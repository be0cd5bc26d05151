package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/masomo-live/core/lecture"
)

var errHelp = errors.New("help provided")

// lectureStore is the part of the durable store the CLI works with.
type lectureStore interface {
	GetLecture(ctx context.Context, id string) (lecture.Lecture, error)
	QueryLectures(ctx context.Context, status string) ([]lecture.Lecture, error)
	UpdateLectureStatus(ctx context.Context, lectureID, status string, at time.Time) error
}

type commandLine struct {
	db   *sqlx.DB
	repo lectureStore
	out  io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS] - run a goose migration command (up, down, status, version...)")
	fmt.Fprintln(cli.out, "  lectures [-status STATUS] - list lectures, optionally with the given status")
	fmt.Fprintln(cli.out, "  lectures -id ID -status STATUS - set a lecture's status")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	lecturesCmd := flag.NewFlagSet("lectures", flag.ContinueOnError)
	lecturesCmd.SetOutput(cli.out)
	lecturesID := lecturesCmd.String("id", "", "The lecture to update.")
	lecturesStatus := lecturesCmd.String("status", "", "Filter by (or, with -id, set) this status.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "lectures":
		if err := lecturesCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *lecturesID == "" {
			return cli.listLectures(*lecturesStatus)
		}
		if *lecturesStatus == "" {
			lecturesCmd.Usage()
			return errHelp
		}
		return cli.setLectureStatus(*lecturesID, *lecturesStatus)
	default:
		cli.printUsage()
		return errHelp
	}
}
