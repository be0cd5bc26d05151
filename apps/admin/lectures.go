package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-live/core"
	"github.com/trezcool/masomo-live/core/lecture"
)

var errInvalidStatus = errors.New("status must be one of scheduled, ongoing, completed, cancelled")

func validStatus(status string) bool {
	switch status {
	case lecture.StatusScheduled, lecture.StatusOngoing, lecture.StatusCompleted, lecture.StatusCancelled:
		return true
	default:
		return false
	}
}

func (cli *commandLine) listLectures(status string) error {
	status = core.CleanString(status, true /* lower */)
	if status != "" && !validStatus(status) {
		return errInvalidStatus
	}

	lectures, err := cli.repo.QueryLectures(context.Background(), status)
	if err != nil {
		return errors.Wrap(err, "querying lectures")
	}

	w := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tPROFESSOR\tTITLE")
	for _, lec := range lectures {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", lec.ID, lec.Status, lec.ProfessorID, lec.Title)
	}
	return w.Flush()
}

// setLectureStatus changes a lecture's status out of band, e.g. to close a lecture
// its professor never ended. Rooms already in memory keep their live state.
func (cli *commandLine) setLectureStatus(id, status string) error {
	status = core.CleanString(status, true /* lower */)
	if !validStatus(status) {
		return errInvalidStatus
	}

	ctx := context.Background()
	if _, err := cli.repo.GetLecture(ctx, id); err != nil {
		return err
	}
	if err := cli.repo.UpdateLectureStatus(ctx, id, status, time.Now().UTC()); err != nil {
		return errors.Wrap(err, "updating lecture status")
	}
	fmt.Fprintf(cli.out, "lecture %s is now %s\n", id, status)
	return nil
}
