package cmd

import (
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/boozedog/devserve/internal/config"
	"github.com/boozedog/devserve/internal/web"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve files (the default when no command is given)",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

var (
	servePort    int
	serveHost    string
	serveRoot    string
	serveVerbose bool
)

func init() {
	addServeFlags(serveCmd)
	rootCmd.AddCommand(serveCmd)
}

// addServeFlags registers the serve flags on c. Both the root command and
// serve share the same variables.
func addServeFlags(c *cobra.Command) {
	c.Flags().IntVar(&servePort, "port", 8000, "port to listen on")
	c.Flags().StringVar(&serveHost, "host", "", "interface to bind (default all)")
	c.Flags().StringVar(&serveRoot, "root", "", "directory to serve (default the binary's directory)")
	c.Flags().BoolVarP(&serveVerbose, "verbose", "v", false, "enable debug logging")
}

// loadConfig reads the config file and applies any flags set on c.
func loadConfig(c *cobra.Command) (*config.Config, string, error) {
	path := configPath
	if path == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return nil, "", err
		}
		path = p
	}

	cfg, err := config.LoadFrom(path)
	if err != nil {
		return nil, "", fmt.Errorf("load config: %w", err)
	}

	flags := c.Flags()
	if flags.Changed("port") {
		cfg.Server.Port = servePort
	}
	if flags.Changed("host") {
		cfg.Server.Host = serveHost
	}
	if flags.Changed("root") {
		cfg.Server.Root = serveRoot
	}
	if flags.Changed("verbose") && serveVerbose {
		cfg.Log.Level = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func runServe(c *cobra.Command, _ []string) error {
	cfg, path, err := loadConfig(c)
	if err != nil {
		return err
	}

	root, err := cfg.RootDir()
	if err != nil {
		return err
	}

	level := new(slog.LevelVar)
	level.Set(cfg.SlogLevel())
	logger := slog.New(slog.NewTextHandler(c.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(c.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := web.NewServer(cfg, web.Options{
		Root:       root,
		Out:        c.OutOrStdout(),
		ConfigPath: path,
		Level:      level,
		Logger:     logger,
	})
	return srv.ListenAndServe(ctx)
}
