package main

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var envFile string

	rootCmd := &cobra.Command{
		Use:           "jobtrack",
		Short:         "Track long-running generative-video jobs",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if envFile != "" {
				return godotenv.Load(envFile)
			}
			// Default .env is optional.
			_ = godotenv.Load()
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Environment file to load before reading configuration")

	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newJobsCommand())

	return rootCmd
}
