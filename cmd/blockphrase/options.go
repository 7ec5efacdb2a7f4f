package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nao1215/blockphrase/internal/config"
	"github.com/nao1215/blockphrase/internal/log"
	"github.com/nao1215/blockphrase/internal/store"
)

// errEmptyValue is returned when a setting would be set to blank text.
var errEmptyValue = errors.New("value must not be empty")

// notSet is shown for settings that have no value.
const notSet = "None"

// NewOptionsCmd creates the options command and its subcommands.
func NewOptionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "options",
		Short: "Show or change the stored settings",
		Long: `Options reads and writes the settings used by redact: the blocked phrase,
the API key, the blocked words and the on/off switch.

Examples:
  blockphrase options show
  blockphrase options set-phrase "discount offers"
  blockphrase options set-key sk-...
  blockphrase options set-key --from-env
  blockphrase options set-words coupon "limited time"
  blockphrase options toggle`,
	}

	cmd.AddCommand(
		newShowCmd(),
		newSetPhraseCmd(),
		newSetKeyCmd(),
		newSetWordsCmd(),
		newSwitchCmd("enable", "Turn redaction on", func(bool) bool { return true }),
		newSwitchCmd("disable", "Turn redaction off", func(bool) bool { return false }),
		newSwitchCmd("toggle", "Switch redaction on or off", func(enabled bool) bool { return !enabled }),
	)
	return cmd
}

// withStorage loads the configuration, opens the settings store and runs fn.
func withStorage(cmd *cobra.Command, fn func(ctx context.Context, s *store.Storage) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.ValidateSettings(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := newLogger(cmd, cfg)
	ctx := cmd.Context()

	storage, err := openStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStorage(storage, logger)

	return fn(ctx, storage)
}

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the current settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStorage(cmd, func(ctx context.Context, s *store.Storage) error {
				settings, err := s.Settings(ctx)
				if err != nil {
					return err
				}

				phrase := settings.BlockedPhrase
				if phrase == "" {
					phrase = notSet
				}
				words := notSet
				if len(settings.BlockedWords) > 0 {
					words = strings.Join(settings.BlockedWords, ", ")
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Blocked phrase: %s\n", phrase)
				fmt.Fprintf(out, "API key:        %s\n", log.MaskAPIKey(settings.APIKey))
				fmt.Fprintf(out, "Enabled:        %s\n", strconv.FormatBool(settings.ExtensionEnabled))
				fmt.Fprintf(out, "Blocked words:  %s\n", words)
				return nil
			})
		},
	}
}

func newSetPhraseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-phrase <phrase>",
		Short: "Store the blocked phrase",
		Long: `Store the blocked phrase. Several arguments are joined with spaces.
The cached phrase embedding is refreshed on the next redact run.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			phrase := strings.TrimSpace(strings.Join(args, " "))
			if phrase == "" {
				return fmt.Errorf("blocked phrase: %w", errEmptyValue)
			}
			return withStorage(cmd, func(ctx context.Context, s *store.Storage) error {
				if err := s.SetBlockedPhrase(ctx, phrase); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Blocked phrase: %s\n", phrase)
				return nil
			})
		},
	}
}

func newSetKeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set-key [key]",
		Short: "Store the embedding API key",
		Long: `Store the embedding API key. With --from-env the key is read from
OPENAI_API_KEY in the environment or in a .env file.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runSetKeyCmd,
	}
	cmd.Flags().Bool("from-env", false,
		"Read the key from "+config.APIKeyEnv+" in the environment or .env file")
	cmd.Flags().String("env-file", ".env",
		"The .env file read with --from-env")
	return cmd
}

func runSetKeyCmd(cmd *cobra.Command, args []string) error {
	fromEnv, err := cmd.Flags().GetBool("from-env")
	if err != nil {
		return err
	}

	var key string
	switch {
	case fromEnv && len(args) > 0:
		return errors.New("give either a key or --from-env, not both")
	case fromEnv:
		envFile, err := cmd.Flags().GetString("env-file")
		if err != nil {
			return err
		}
		if key, err = config.APIKeyFromEnv(envFile); err != nil {
			return err
		}
	case len(args) == 1:
		key = args[0]
	}

	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("api key: %w", errEmptyValue)
	}

	return withStorage(cmd, func(ctx context.Context, s *store.Storage) error {
		if err := s.SetAPIKey(ctx, key); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "API key: %s\n", log.MaskAPIKey(key))
		return nil
	})
}

func newSetWordsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-words <word>...",
		Short: "Store the blocked words used in literal mode",
		Long: `Store the blocked words used by "redact --mode literal". Each argument is
one word or phrase and replaces the previous list.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			words := make([]string, 0, len(args))
			for _, a := range args {
				if w := strings.TrimSpace(a); w != "" {
					words = append(words, w)
				}
			}
			if len(words) == 0 {
				return fmt.Errorf("blocked words: %w", errEmptyValue)
			}
			return withStorage(cmd, func(ctx context.Context, s *store.Storage) error {
				if err := s.SetBlockedWords(ctx, words); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Blocked words: %s\n", strings.Join(words, ", "))
				return nil
			})
		},
	}
}

// newSwitchCmd creates a command that sets the on/off switch to next(current).
func newSwitchCmd(use, short string, next func(enabled bool) bool) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStorage(cmd, func(ctx context.Context, s *store.Storage) error {
				settings, err := s.Settings(ctx)
				if err != nil {
					return err
				}
				enabled := next(settings.ExtensionEnabled)
				if err := s.SetExtensionEnabled(ctx, enabled); err != nil {
					return err
				}
				printSwitch(cmd.OutOrStdout(), enabled)
				return nil
			})
		},
	}
}

func printSwitch(w io.Writer, enabled bool) {
	if enabled {
		fmt.Fprintln(w, "Redaction enabled")
		return
	}
	fmt.Fprintln(w, "Redaction disabled")
}
