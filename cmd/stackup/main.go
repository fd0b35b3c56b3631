package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "stackup",
	Short: "stackup - deployment orchestrator for compose-based web stacks",
	Long: `stackup deploys a three-tier web application stack (app, database,
cache, proxy, frontend) declared in per-environment Docker Compose profiles.

One command drives the whole pipeline: environment materialization,
prerequisite checks, production backups, container lifecycle, database
readiness gating, application bootstrap and post-deploy verification.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"stackup version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.AddCommand(deployCmd)
	rootCmd.AddCommand(historyCmd)
}
