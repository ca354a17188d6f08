// Package cli handles the command-line interface logic
// using the Cobra library.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/BartekS5/rdbsync/internal/config"
	"github.com/BartekS5/rdbsync/pkg/logger"
)

func NewRootCmd() *cobra.Command {
	var cfg *config.Config

	rootCmd := &cobra.Command{
		Use:   "rdbsync",
		Short: "rdbsync - batch sync from relational databases",
		Long: `rdbsync reads tables or queries from MySQL, PostgreSQL, SQL Server or SQLite,
runs each record through a chain of transformers and writes the result to
MongoDB, another SQL database or stdout.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if cfg, err = config.LoadConfig(); err != nil {
				return err
			}
			lvl := logger.INFO
			if cfg.LogLevel == "DEBUG" {
				lvl = logger.DEBUG
			}
			return logger.InitLogger(cfg.LogFile, lvl)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logger.Close()
		},
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
	}

	settings := func() *config.Config { return cfg }
	rootCmd.AddCommand(newRunCmd(settings), newPreCheckCmd(settings), newTransformersCmd())

	return rootCmd
}
