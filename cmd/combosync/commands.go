package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/combokiosk/internal/admin"
	"github.com/JonMunkholm/combokiosk/internal/application"
	"github.com/JonMunkholm/combokiosk/internal/core"
	"github.com/JonMunkholm/combokiosk/internal/schema"
)

func newSyncCmd(e *env) *cobra.Command {
	var (
		src    sourceFlags
		atomic bool
	)

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Reload the catalog tables from the combo and product exports",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := e.open(ctx)
			if err != nil {
				return err
			}
			defer closeApp(app)

			req, err := src.request(e.cfg.Sync, app.Source)
			if err != nil {
				return err
			}
			if atomic {
				app.Loader.Mode = core.LoadAtomic
			}

			result, err := app.Syncer.Run(core.ContextWithTrigger(ctx, core.TriggerCLI), req)
			printResult(cmd.OutOrStdout(), result)
			return err
		},
	}

	src.register(cmd)
	cmd.Flags().BoolVar(&atomic, "atomic", false, "Reload each table in one transaction (default: SYNC_ATOMIC)")
	return cmd
}

func newInspectCmd(e *env) *cobra.Command {
	var src sourceFlags

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Parse and transform the exports without loading anything",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			req, err := src.request(e.cfg.Sync, nil)
			if err != nil {
				return err
			}
			if needsDB(req) {
				app, err := e.open(ctx)
				if err != nil {
					return err
				}
				defer closeApp(app)
				if req, err = src.request(e.cfg.Sync, app.Source); err != nil {
					return err
				}
			}

			batch, warnings, err := core.NewSyncer(nil, nil).Prepare(ctx, req)
			if err != nil {
				msg := core.MapError(err)
				return fmt.Errorf("%w\n  %s", err, msg.Action)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "combos:   %d headers, %d groups, %d details\n",
				len(batch.Catalog.Headers), len(batch.Catalog.Groups), len(batch.Catalog.Details))
			if req.Products != nil {
				fmt.Fprintf(out, "products: %d\n", len(batch.Products))
			} else {
				fmt.Fprintln(out, "products: no source, table left unchanged")
			}
			printWarnings(out, warnings)
			return nil
		},
	}

	src.register(cmd)
	return cmd
}

func newMigrateCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the catalog tables and indexes if missing",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			pool, err := application.OpenPool(ctx, e.cfg.Database.URL, e.cfg.Database)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := schema.Apply(ctx, pool); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema applied (%d statements)\n", len(schema.Statements()))
			return nil
		},
	}
}

func newRunsCmd(e *env) *cobra.Command {
	var (
		filter core.RunFilter
		since  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent sync runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := e.open(ctx)
			if err != nil {
				return err
			}
			defer closeApp(app)

			if since > 0 {
				filter.Since = time.Now().Add(-since)
			}
			runs, err := app.Syncer.RecentRuns(ctx, filter)
			if err != nil {
				return err
			}
			printRuns(cmd.OutOrStdout(), runs)
			return nil
		},
	}

	cmd.Flags().StringVar(&filter.Trigger, "trigger", "", "Only runs started by http, cli or scheduler")
	cmd.Flags().BoolVar(&filter.FailedOnly, "failed", false, "Only failed runs")
	cmd.Flags().IntVar(&filter.Limit, "limit", core.DefaultHistoryLimit, "Maximum number of runs")
	cmd.Flags().DurationVar(&since, "since", 0, "Only runs started within this duration (e.g. 24h)")
	return cmd
}

func newResetCmd(e *env) *cobra.Command {
	var (
		yes     bool
		history bool
	)

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Empty every catalog table",
		Long: "Empty every catalog table in one transaction. The kiosk serves empty " +
			"combos until the next sync. Requires --yes.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("reset deletes the whole catalog; pass --yes to confirm")
			}

			ctx := cmd.Context()
			app, err := e.open(ctx)
			if err != nil {
				return err
			}
			defer closeApp(app)

			tables, err := admin.Reset(ctx, app.Pool, history)
			if err != nil {
				return err
			}
			if err := app.Catalog.Invalidate(ctx); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: cache not invalidated: %v\n", err)
			}
			for _, t := range tables {
				fmt.Fprintf(cmd.OutOrStdout(), "truncated %s\n", t)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm the reset")
	cmd.Flags().BoolVar(&history, "history", false, "Also clear the sync run history")
	return cmd
}
