package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/koustreak/multidatasource/internal/datasource"
	"github.com/koustreak/multidatasource/internal/repository"
	"github.com/koustreak/multidatasource/internal/schema"
)

func newCheckCmd() *cobra.Command {
	var skipSchema bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate the configuration, ping both datasources and verify test_table",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := setup(cmd)
			if err != nil {
				return err
			}

			reg, err := openRegistry(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer reg.Close()

			var (
				mu      sync.Mutex
				results = make(map[string]error)
			)
			// Plain group: one failing datasource must not cancel the other's check.
			var g errgroup.Group
			ctx := cmd.Context()
			for _, name := range reg.Names() {
				g.Go(func() error {
					err := checkDatasource(ctx, reg, name, skipSchema)
					mu.Lock()
					results[name] = err
					mu.Unlock()
					return err
				})
			}
			failed := g.Wait()

			out := cmd.OutOrStdout()
			for _, name := range reg.Names() {
				if err := results[name]; err != nil {
					fmt.Fprintf(out, "%s: FAIL %v\n", name, err)
					continue
				}
				fmt.Fprintf(out, "%s: ok\n", name)
			}
			return failed
		},
	}

	cmd.Flags().BoolVar(&skipSchema, "skip-schema", false, "only ping, do not inspect test_table")
	return cmd
}

func checkDatasource(ctx context.Context, reg *datasource.Registry, name string, skipSchema bool) error {
	db, err := reg.Pool(name)
	if err != nil {
		return err
	}
	if err := db.Ping(ctx); err != nil {
		return err
	}
	if skipSchema {
		return nil
	}

	exec, err := reg.Executor(name)
	if err != nil {
		return err
	}
	return schema.NewInspector(exec).RequireColumns(ctx, repository.Table, "id", "name")
}
