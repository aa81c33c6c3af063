// Package cmd implements the ncatool subcommands, laid out cobra-style
// after connesc-ctrsigcheck's internal/cmd package since this archive
// format supports several distinct operations (verify, dump, cat) rather
// than a single flag.String-driven entry point.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/jakcron/NXTools/logger"
)

var (
	globalFlags pflag.FlagSet
	keysPath    = globalFlags.String("keys", "", "path to prod.keys (defaults to ~/.switch/prod.keys)")
	debug       = globalFlags.Bool("debug", false, "enable debug logging")
)

var rootCmd = &cobra.Command{
	Use:   "ncatool",
	Short: "Decrypt, parse and verify Nintendo Switch NCA archives",
}

func init() {
	rootCmd.PersistentFlags().AddFlagSet(&globalFlags)
}

// Execute runs the CLI, exiting the process on error.
func Execute() {
	defer logger.Defer()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
