package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dgallion1/docrank/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "docrank",
	Short: "Rank document sections for a persona and a job to be done",
	Long: `docrank reads a folder of documents (PDF, DOCX, HTML, Markdown, text),
splits them into titled sections and ranks those sections and their sentences
against a persona and the job that persona needs to get done.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.Version = version.Version
	rootCmd.SetVersionTemplate(fmt.Sprintf("docrank %s\n", version.String()))
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
