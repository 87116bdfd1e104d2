// Package cmd contains all the CLI commands for the application,
// built using the Cobra library.
package cmd

import (
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/naka-gawa/github-opened/internal/config"
)

// All linker flags will be set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// v holds every setting source of a run: file, env and flags.
var v = viper.New()

var rootCmd = &cobra.Command{
	Use:   "github-opened",
	Short: "A CLI tool to list the opened pull requests and issues of GitHub repositories.",
	Long: `github-opened is a CLI tool that crawls the repositories of GitHub users
and a configured watch list, and reports every open pull request and issue
with its age. Entries older than --days are left out.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(func() {
		configFile, _ := rootCmd.PersistentFlags().GetString("config")
		config.InitViper(v, configFile)
	})

	// Add a persistent flag for verbose output, available to all commands.
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose/debug logging")
	rootCmd.PersistentFlags().String("config", "", "Path to config file (default is ./.github-opened.yaml or $HOME/.github-opened.yaml)")

	rootCmd.AddCommand(openedCmd)
	rootCmd.AddCommand(versionCmd)
}

// newLogger discards everything unless verbose is set.
func newLogger(verbose bool) *log.Logger {
	logger := log.New(io.Discard, "", log.LstdFlags)
	if verbose {
		logger.SetOutput(os.Stderr)
	}
	return logger
}
