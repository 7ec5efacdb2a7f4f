package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nao1215/blockphrase/internal/config"
)

// NewRootCmd creates the root command for blockphrase.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "blockphrase",
		Short: "Hide page text that resembles a blocked phrase",
		Long: `blockphrase scans HTML pages, scores each text block against a blocked
phrase using text embeddings and redacts the blocks that match.

The blocked phrase, API key and on/off switch are kept in a settings store
(SQLite under the XDG data directory by default) and edited with the
options command. A literal mode matches blocked words instead.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().StringP("config", "c", "",
		"Configuration file path (default: .blockphrase in current or home directory)")
	cmd.PersistentFlags().String("store", config.DefaultStore,
		"Settings store: sqlite, redis or memory")
	cmd.PersistentFlags().String("db-dir", "",
		"Directory of the SQLite settings database (default: XDG data directory)")
	cmd.PersistentFlags().String("redis-url", "",
		"Redis URL for the redis store (e.g., redis://localhost:6379/0)")

	cmd.AddCommand(NewRedactCmd())
	cmd.AddCommand(NewOptionsCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
