package app

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/specialistvlad/permodule/internal/history"
	"github.com/specialistvlad/permodule/internal/module"
	"github.com/specialistvlad/permodule/internal/workspace"
)

// printModules writes one tab-aligned row per module.
func (a *App) printModules(modules []*module.Module) error {
	tw := tabwriter.NewWriter(a.outW, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tPATH\tACTIVE\tTAGS")
	for _, m := range modules {
		rel, err := workspace.Rel(a.registry.Root(), m.Path())
		if err != nil {
			rel = m.Path()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%s\n", m.ID(), m.Name(), rel, m.Active(), strings.Join(m.Tags(), ","))
	}
	return tw.Flush()
}

// printRecent writes the newest recorded runs, newest first.
func (a *App) printRecent(ctx context.Context, limit int) error {
	store, err := history.Open(ctx, a.config.HistoryPath)
	if err != nil {
		return fmt.Errorf("failed to open run history: %w", err)
	}
	defer store.Close()

	runs, err := store.Recent(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to list run history: %w", err)
	}
	tw := tabwriter.NewWriter(a.outW, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tTASK\tSTARTED\tDURATION\tSTATUS\tBRANCHES")
	for _, run := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\n",
			run.ID,
			run.Task,
			run.StartedAt.Format(time.RFC3339),
			run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond),
			run.Status,
			len(run.Branches),
		)
	}
	return tw.Flush()
}
