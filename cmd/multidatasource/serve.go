package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/koustreak/multidatasource/internal/datasource"
	"github.com/koustreak/multidatasource/internal/metrics"
	"github.com/koustreak/multidatasource/internal/repository"
	"github.com/koustreak/multidatasource/internal/server"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Open both pools and serve HTTP until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg, log, err := setup(cmd)
			if err != nil {
				return err
			}

			promReg := prometheus.NewRegistry()
			promReg.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
			m := metrics.New(promReg)

			reg, err := openRegistry(ctx, cfg, log, datasource.WithObserver(m))
			if err != nil {
				log.ErrorWith("startup aborted", err, nil)
				return err
			}
			defer reg.Close()

			first, err := reg.Executor(datasource.First)
			if err != nil {
				return err
			}
			second, err := reg.Executor(datasource.Second)
			if err != nil {
				return err
			}

			router := server.NewRouter(server.Deps{
				Repo:     repository.New(first, second),
				Health:   reg,
				Metrics:  m,
				Gatherer: promReg,
				Log:      log,
			})

			srv := server.New(server.Config{
				Addr:            cfg.Server.Addr,
				ReadTimeout:     cfg.Server.ReadTimeout,
				WriteTimeout:    cfg.Server.WriteTimeout,
				ShutdownTimeout: cfg.Server.ShutdownTimeout,
			}, router, log)

			log.InfoWith("service started", map[string]any{
				"addr":    cfg.Server.Addr,
				"default": reg.DefaultName(),
				"version": version,
			})

			if err := srv.Run(ctx); err != nil {
				log.ErrorWith("http server failed", err, nil)
				return err
			}
			log.Info("service stopped")
			return nil
		},
	}
}
