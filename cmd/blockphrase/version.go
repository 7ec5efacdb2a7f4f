package main

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Version information set at build time via ldflags.
var (
	version = ""
	commit  = ""
	date    = ""
)

// getVersion returns the version string.
// Priority: ldflags > debug.ReadBuildInfo > "(devel)"
func getVersion() string {
	if version != "" {
		return version
	}
	if buildInfo, ok := debug.ReadBuildInfo(); ok && buildInfo.Main.Version != "" {
		return buildInfo.Main.Version
	}
	return "(devel)"
}

// buildSetting returns a VCS setting recorded by the Go toolchain.
func buildSetting(key string) string {
	buildInfo, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, setting := range buildInfo.Settings {
		if setting.Key == key {
			return setting.Value
		}
	}
	return ""
}

// getCommit returns the short commit hash.
func getCommit() string {
	if commit != "" {
		return commit
	}
	if rev := buildSetting("vcs.revision"); rev != "" {
		if len(rev) > 7 {
			return rev[:7]
		}
		return rev
	}
	return "unknown"
}

// getDate returns the build date.
func getDate() string {
	if date != "" {
		return date
	}
	if t := buildSetting("vcs.time"); t != "" {
		return t
	}
	return "unknown"
}

// NewVersionCmd creates the version command.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  `Print the version, commit hash, and build date of blockphrase.`,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "blockphrase version %s\n", getVersion())
			fmt.Fprintf(cmd.OutOrStdout(), "  commit: %s\n", getCommit())
			fmt.Fprintf(cmd.OutOrStdout(), "  built:  %s\n", getDate())
		},
	}
}
