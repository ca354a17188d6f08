package cli

import (
	"github.com/spf13/cobra"

	"github.com/BartekS5/rdbsync/internal/config"
)

type RunOptions struct {
	JobFile   string
	BatchSize int
	DryRun    bool
}

func newRunCmd(settings func() *config.Config) *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the sync job described by a job file",
		RunE: func(c *cobra.Command, args []string) error {
			return runJob(c.Context(), settings(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.JobFile, "file", "f", "", "Path to the job file (.json, .yaml)")
	cmd.Flags().IntVarP(&opts.BatchSize, "batch-size", "b", 0, "Records per writer batch (overrides setting.batchSize)")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Read and transform, but do not write")
	cmd.MarkFlagRequired("file")

	return cmd
}

func newPreCheckCmd(settings func() *config.Config) *cobra.Command {
	var jobFile string

	cmd := &cobra.Command{
		Use:   "precheck",
		Short: "Verify every source connection can run its query",
		RunE: func(c *cobra.Command, args []string) error {
			return runPreCheck(c.Context(), settings(), jobFile)
		},
	}

	cmd.Flags().StringVarP(&jobFile, "file", "f", "", "Path to the job file (.json, .yaml)")
	cmd.MarkFlagRequired("file")

	return cmd
}

func newTransformersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "transformers",
		Short: "List the built-in transformers",
		RunE: func(c *cobra.Command, args []string) error {
			return listTransformers(c.OutOrStdout())
		},
	}
}
