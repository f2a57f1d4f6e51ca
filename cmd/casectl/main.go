package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/jwebster45206/case-engine/internal/content"
	"github.com/spf13/cobra"
)

var rootFlags struct {
	dir     string
	verbose bool
}

var rootCmd = &cobra.Command{
	Use:   "casectl",
	Short: "Content and session tooling for the case engine",
	Long:  "casectl validates authored case content, describes a case's accusations,\nand reads the state a running session mirrors to Redis.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	SilenceUsage: true,
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVar(&rootFlags.dir, "dir", "", "Content directory with cases/, scenes/ and stories/ (default: embedded content)")
	f.BoolVarP(&rootFlags.verbose, "verbose", "v", false, "Log content loading")

	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(describeCmd)
	rootCmd.AddCommand(snapshotCmd)
	rootCmd.AddCommand(notificationsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func cliLogger(cmd *cobra.Command) *slog.Logger {
	if !rootFlags.verbose {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func loadLibrary(cmd *cobra.Command) (*content.Library, error) {
	log := cliLogger(cmd)
	if rootFlags.dir == "" {
		return content.Load(log)
	}
	return content.LoadFS(os.DirFS(rootFlags.dir), log)
}
