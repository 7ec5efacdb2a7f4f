package main

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nao1215/blockphrase/internal/config"
)

//go:embed templates/blockphrase.yaml
var configTemplate embed.FS

// configFileName is the default configuration file name.
const configFileName = config.DefaultConfigFile

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new blockphrase configuration file",
		Long: `Initialize creates a new .blockphrase configuration file in the current directory.

The generated file lists every setting with its default value and a short
explanation.

Examples:
  # Create .blockphrase in current directory
  blockphrase init

  # Create config file at a specific path
  blockphrase init -o myconfig.yaml

  # Force overwrite existing file
  blockphrase init -f`,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", configFileName,
		"Output file path for the configuration")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing configuration file")

	return cmd
}

// runInitCmd executes the init command.
func runInitCmd(cmd *cobra.Command, _ []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	if !force {
		if _, err := os.Stat(outputPath); err == nil {
			return fmt.Errorf("configuration file already exists: %s (use -f to overwrite)", outputPath)
		}
	}

	content, err := configTemplate.ReadFile("templates/blockphrase.yaml")
	if err != nil {
		return fmt.Errorf("failed to read config template: %w", err)
	}

	dir := filepath.Dir(outputPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	if err := os.WriteFile(outputPath, content, 0600); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created configuration file: %s\n", outputPath)
	fmt.Fprintln(out, "\nNext, store the blocked phrase and API key:")
	fmt.Fprintln(out, `  blockphrase options set-phrase "discount offers"`)
	fmt.Fprintln(out, "  blockphrase options set-key --from-env")

	return nil
}
