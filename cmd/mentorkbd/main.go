package main

import (
	"fmt"
	"os"

	"github.com/cloo-solutions/mentorkb/internal/cli"
	"github.com/cloo-solutions/mentorkb/internal/cli/admin"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "mentorkbd",
		Short: "Mentorkb daemon and CLI",
		Long:  "Mentorkb daemon for running the search API and managing the mentoring knowledge base",
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(admin.ServeCmd())
	rootCmd.AddCommand(admin.IngestCmd())
	rootCmd.AddCommand(admin.ScoreCmd())
	rootCmd.AddCommand(admin.EmbedCmd())
	rootCmd.AddCommand(admin.SearchCmd())
	rootCmd.AddCommand(admin.StatsCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
