package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/boozedog/devserve/internal/web"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "devserve",
	Short: "Static file server with CORS headers for local development",
	Long: `Serves the files in a directory over HTTP and adds permissive CORS headers to every response,
so pages opened from another origin can fetch them. OPTIONS preflight requests are always answered 200.

By default files are served from the directory containing the devserve binary, on port 8000.`,
	Args:          cobra.NoArgs,
	RunE:          runServe,
	SilenceErrors: true,
	SilenceUsage:  true,
}

var configPath string

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default devserve.toml next to the binary)")
	addServeFlags(rootCmd)
}

// Execute runs the root command and exits on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		switch {
		case errors.Is(err, web.ErrPortInUse):
			fmt.Fprintln(os.Stderr, "Another process is using the port; stop it or pass --port.")
		case errors.Is(err, web.ErrPermissionDenied):
			fmt.Fprintln(os.Stderr, "Ports below 1024 need elevated privileges; pass --port.")
		}
		os.Exit(1)
	}
}
