package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	gitCommit string
	buildTime string
)

func formatVersion() string {
	v := version
	if gitCommit != "" {
		v += fmt.Sprintf(" (git: %s)", gitCommit)
	}
	return v
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "dingomark",
		Short: "Marketing automation service for the Dingo community",
		Long: "dingomark coordinates a team of LLM agents over the GitHub API\n" +
			"to analyze users, produce content campaigns, and plan community engagement.",
		SilenceUsage: true,
	}
	root.AddCommand(newServeCmd(), newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version and build info",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("dingomark %s\n", formatVersion())
			if buildTime != "" {
				fmt.Printf("  Build: %s\n", buildTime)
			}
			fmt.Printf("  Go: %s\n", runtime.Version())
		},
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
