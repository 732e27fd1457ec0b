// Command combosync runs and inspects catalog syncs from the command line.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/combokiosk/internal/application"
	"github.com/JonMunkholm/combokiosk/internal/config"
	"github.com/JonMunkholm/combokiosk/internal/core"
	"github.com/JonMunkholm/combokiosk/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// env is what every subcommand receives after the root pre-run.
type env struct {
	cfg *config.Config
}

// open connects to the databases and cache. Callers Close the App.
func (e *env) open(ctx context.Context) (*application.App, error) {
	return application.New(ctx, e.cfg)
}

func newRootCmd() *cobra.Command {
	e := &env{}

	root := &cobra.Command{
		Use:           "combosync",
		Short:         "Load POS combo exports into the catalog database",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// A missing .env is fine; the environment may already be set.
			_ = godotenv.Overload()

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
			e.cfg = cfg
			return nil
		},
	}

	root.AddCommand(
		newSyncCmd(e),
		newInspectCmd(e),
		newMigrateCmd(e),
		newRunsCmd(e),
		newResetCmd(e),
	)
	return root
}

// sourceFlags are the source overrides shared by sync and inspect.
type sourceFlags struct {
	combos   string
	products string
}

func (f *sourceFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.combos, "combos", "", "Combo export (.csv or .xlsx); default SYNC_SOURCE_PATH / SYNC_SOURCE_QUERY")
	cmd.Flags().StringVar(&f.products, "products", "", "Product export (.csv or .xlsx); default SYNC_PRODUCTS_PATH / SYNC_PRODUCTS_QUERY")
}

// request combines the flags with the configured sources. Flags win.
func (f *sourceFlags) request(cfg config.SyncConfig, db core.DBTX) (core.SyncRequest, error) {
	req := application.Sources(cfg, db)
	if f.combos != "" {
		req.Combos = core.OpenSource(f.combos)
	}
	if f.products != "" {
		req.Products = core.OpenSource(f.products)
	}
	if req.Combos == nil {
		return req, errors.New("no combo source: pass --combos or set SYNC_SOURCE_PATH / SYNC_SOURCE_QUERY")
	}
	return req, nil
}

// needsDB reports whether any source of req runs a query.
func needsDB(req core.SyncRequest) bool {
	for _, s := range []core.Source{req.Combos, req.Products} {
		if _, ok := s.(*core.QuerySource); ok {
			return true
		}
	}
	return false
}

func printResult(w io.Writer, r core.SyncResult) {
	fmt.Fprintf(w, "run %s (%s) from %s in %s\n", r.RunID, r.Trigger, r.Source, r.Duration.Round(time.Millisecond))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TABLE\tROWS\tDURATION\tERROR")
	for _, t := range r.Tables {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", t.Table, t.Rows, t.Duration.Round(time.Millisecond), t.Error)
	}
	tw.Flush()

	printWarnings(w, r.Warnings)
	if r.Error != "" {
		msg := core.MapError(errors.New(r.Error))
		fmt.Fprintf(w, "failed [%s]: %s\n  %s\n", r.Code, r.Error, msg.Action)
	}
}

func printWarnings(w io.Writer, warnings []string) {
	if len(warnings) == 0 {
		return
	}
	fmt.Fprintf(w, "%d warning(s):\n", len(warnings))
	for _, msg := range warnings {
		fmt.Fprintf(w, "  - %s\n", msg)
	}
}

func printRuns(w io.Writer, runs []core.SyncResult) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "no sync runs recorded")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tTRIGGER\tSOURCE\tROWS\tDURATION\tRESULT")
	for _, r := range runs {
		result := "ok"
		if r.Error != "" {
			result = strings.TrimSpace(r.Code + " " + r.Error)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
			r.StartedAt.Local().Format(time.DateTime), r.Trigger, r.Source, r.Total(),
			r.Duration.Round(time.Millisecond), result)
	}
	tw.Flush()
}

func closeApp(app *application.App) {
	app.Close()
	slog.Debug("connections closed")
}
