package main

import (
	"context"
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/koustreak/multidatasource/internal/config"
	"github.com/koustreak/multidatasource/internal/datasource"
	"github.com/koustreak/multidatasource/internal/logger"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "multidatasource",
		Short: "Serve rows from two independent databases over HTTP",
		Long: `multidatasource opens one connection pool per configured datasource
("first" and "second") and serves GET /one and GET /two, each reading
test_table from its own database.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringP("config", "c", "config.yaml", "path to the YAML config file (empty for env only)")

	root.AddCommand(newServeCmd(), newCheckCmd(), newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "multidatasource %s\n", version)
			fmt.Fprintf(out, "Go version: %s\n", runtime.Version())
			fmt.Fprintf(out, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}

// setup loads the configuration named by --config and builds the logger.
func setup(cmd *cobra.Command) (*config.Config, *logger.Logger, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, nil, err
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}

	lc := cfg.Logger()
	lc.Output = cmd.ErrOrStderr()
	return cfg, logger.New(lc), nil
}

func openRegistry(ctx context.Context, cfg *config.Config, log *logger.Logger, opts ...datasource.Option) (*datasource.Registry, error) {
	opts = append([]datasource.Option{datasource.WithLogger(log)}, opts...)
	return datasource.Open(ctx, cfg.Settings(), opts...)
}
