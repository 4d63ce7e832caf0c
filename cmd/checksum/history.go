package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/bamsammich/checksum/internal/history"
)

func newHistoryCmd(stdout io.Writer) *cobra.Command {
	var (
		limit  int
		dbPath string
	)

	cmd := &cobra.Command{
		Use:   "history [job-id]",
		Short: "List recorded clone jobs, or show the files of one job",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			if dbPath == "" {
				dbPath = history.DefaultPath()
			}
			store, err := history.Open(dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			if len(args) == 0 {
				return listJobs(stdout, store, limit)
			}
			return showJob(stdout, store, args[0])
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "number of jobs to list (0 for all)")
	cmd.Flags().StringVar(&dbPath, "db", "", "history database (default: $XDG_DATA_HOME/checksum/history.db)")
	return cmd
}

func listJobs(w io.Writer, store *history.Store, limit int) error {
	jobs, err := store.ListJobs(limit)
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		fmt.Fprintln(w, "no jobs recorded")
		return nil
	}
	for _, j := range jobs {
		fmt.Fprintf(w, "%s  %-9s  %s  ok %d  failed %d  %s -> %s\n",
			shortID(j.ID),
			j.Status,
			j.CreatedAt.Format(time.DateTime),
			j.FilesOK,
			j.FilesFailed,
			strings.Join(j.Sources, ","),
			strings.Join(j.Destinations, ","),
		)
	}
	return nil
}

func showJob(w io.Writer, store *history.Store, idOrPrefix string) error {
	job, err := store.Job(idOrPrefix)
	if err != nil {
		return err
	}
	files, err := store.JobFiles(job.ID)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "job          %s\n", job.ID)
	fmt.Fprintf(w, "status       %s\n", job.Status)
	fmt.Fprintf(w, "sources      %s\n", strings.Join(job.Sources, ", "))
	fmt.Fprintf(w, "destinations %s\n", strings.Join(job.Destinations, ", "))
	fmt.Fprintf(w, "created      %s\n", job.CreatedAt.Format(time.DateTime))
	if !job.FinishedAt.IsZero() && !job.StartedAt.IsZero() {
		fmt.Fprintf(w, "duration     %s\n", job.FinishedAt.Sub(job.StartedAt).Round(time.Millisecond))
	}
	if job.Error != "" {
		fmt.Fprintf(w, "error        %s\n", job.Error)
	}
	fmt.Fprintf(w, "files        ok %d  failed %d\n", job.FilesOK, job.FilesFailed)

	for _, f := range files {
		if f.Kind == history.KindError {
			fmt.Fprintf(w, "FAILED %s -> %s: %s\n", f.Source, f.Destination, f.Error)
			continue
		}
		fmt.Fprintf(w, "OK %s -> %s %s\n", f.Source, f.Destination, f.Digest)
	}
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
