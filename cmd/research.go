package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/safescan/internal/model"
)

var researchCmd = &cobra.Command{
	Use:   "research <product.yaml|product.json>",
	Short: "Run a deep research job and wait for the report",
	Long: `Start a deep research job for a product file and poll it until it completes
or fails. Progress lines go to stderr; the report goes to stdout.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("research"); err != nil {
			return err
		}

		var req model.ResearchRequest
		if err := loadProductFile(args[0], &req); err != nil {
			return err
		}

		every, _ := cmd.Flags().GetDuration("poll")
		timeout, _ := cmd.Flags().GetDuration("timeout")

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		env, err := initApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer env.Close()

		job, err := env.Orchestrator.Start(ctx, req)
		if err != nil {
			return eris.Wrap(err, "start research")
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "job %s started (store: %s)\n", job.ID, env.Store.Backend())

		job, err = pollJob(ctx, env.Orchestrator, job.ID, every, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		if job.Status == model.JobStatusFailed {
			return eris.Errorf("research job %s failed: %s", job.ID, job.Error)
		}
		printReport(cmd.OutOrStdout(), job.Result)
		return nil
	},
}

type jobGetter interface {
	Get(ctx context.Context, id string) (*model.ResearchJob, error)
}

// pollJob reads the job every interval, printing a line whenever progress
// moves, until it reaches a terminal state.
func pollJob(ctx context.Context, jobs jobGetter, id string, every time.Duration, out io.Writer) (*model.ResearchJob, error) {
	if every <= 0 {
		every = 2 * time.Second
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	last := -1
	for {
		job, err := jobs.Get(ctx, id)
		if err != nil {
			return nil, eris.Wrapf(err, "poll job %s", id)
		}
		if job.Progress != last || job.Status.Terminal() {
			fmt.Fprintf(out, "[%3d%%] %-10s %s\n", job.Progress, job.Status, job.CurrentStep)
			last = job.Progress
		}
		if job.Status.Terminal() {
			return job, nil
		}

		select {
		case <-ctx.Done():
			return nil, eris.Wrapf(ctx.Err(), "poll job %s", id)
		case <-ticker.C:
		}
	}
}

func printReport(w io.Writer, report *model.ResearchReport) {
	if report == nil {
		return
	}
	title := report.ProductName
	if report.Brand != "" {
		title += " (" + report.Brand + ")"
	}
	fmt.Fprintf(w, "# %s\n\n", title)
	for _, sec := range report.Sections {
		body := sec.Body
		if body == "" {
			body = "_No findings._"
		}
		fmt.Fprintf(w, "## %s\n\n%s\n\n", sec.Title, body)
	}
}

func init() {
	researchCmd.Flags().Duration("poll", 2*time.Second, "status poll interval")
	researchCmd.Flags().Duration("timeout", 10*time.Minute, "give up waiting after this long")
	rootCmd.AddCommand(researchCmd)
}
