package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/genstudio/jobtrack/internal/config"
	"github.com/genstudio/jobtrack/internal/persistence"
	"github.com/genstudio/jobtrack/internal/track"
)

func newJobsCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List the tracked generation jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.NewFromEnv()
			if err != nil {
				return err
			}

			store, err := persistence.NewSQLiteStore(cfg.Data.DBPath)
			if err != nil {
				return err
			}
			defer store.Close()

			jobs := track.NewStore(store).ListActiveJobs(cmd.Context())

			if asJSON {
				if jobs == nil {
					jobs = []track.TrackedJob{}
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(jobs)
			}

			if len(jobs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No tracked jobs")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(jobsTableHeaders(), jobsTableRows(jobs, time.Now())))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print jobs as JSON")
	return cmd
}

func jobsTableHeaders() []string {
	return []string{"JOB ID", "PROVIDER", "OWNER", "MODEL", "AGE"}
}

func jobsTableRows(jobs []track.TrackedJob, now time.Time) [][]string {
	rows := make([][]string, 0, len(jobs))
	for _, job := range jobs {
		rows = append(rows, []string{
			job.JobID,
			job.ProviderKey,
			job.OwnerRef,
			job.Params.Model,
			formatAge(job.CreatedAt, now),
		})
	}
	return rows
}

func formatAge(createdAtMillis int64, now time.Time) string {
	if createdAtMillis <= 0 {
		return "-"
	}
	age := now.Sub(time.UnixMilli(createdAtMillis))
	if age < 0 {
		age = 0
	}
	return age.Truncate(time.Second).String()
}
