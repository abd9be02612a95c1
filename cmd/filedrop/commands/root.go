// Package commands implements the filedrop CLI: the HTTP service and the
// out-of-band user provisioning command.
package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information injected at build time.
var (
	Version = "dev"
	Commit  = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "filedrop",
	Short: "filedrop - authenticated single-node file drop service",
	Long: `filedrop lets authenticated users upload files, list them with
upload/expiration metadata, download them, and delete them individually
or in bulk once expired. Metadata lives in a single SQLite file; blobs
live on local disk.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Printf("filedrop %s (%s)\n", Version, Commit)
	},
}

// Execute runs the CLI. Called once from main.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	return err
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(adduserCmd)
	rootCmd.AddCommand(versionCmd)
}

// getenvDefault reads an environment variable with a fallback.
func getenvDefault(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}
