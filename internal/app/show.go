package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"
)

// Rates prints the current feed directions, optionally filtered.
func (a *App) Rates(ctx context.Context, opts RatesOptions) error {
	rateSvc := a.newRates()

	filterFrom := ""
	if opts.FilterFrom != "" {
		filterFrom = rateSvc.NormalizeCode(opts.FilterFrom)
	}
	directions := rateSvc.ListDirections(ctx, filterFrom, strings.ToUpper(opts.FilterTo))
	if len(directions) == 0 {
		info := rateSvc.Info()
		if info.LastError != "" {
			return fmt.Errorf("no directions available (last fetch error: %s)", info.LastError)
		}
		fmt.Fprintln(os.Stdout, "no directions available")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "From\tTo\tRate\tMethod\tLocation")
	for _, d := range directions {
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%s\n",
			d.FromCode,
			d.ToCode,
			d.Rate().StringFixed(4),
			d.Method,
			d.Location,
		)
	}
	return writer.Flush()
}

// History prints a user's recent entries.
func (a *App) History(ctx context.Context, opts HistoryOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot show history")
	}
	defer closeStore()

	entries, err := store.ListHistory(ctx, opts.UserID, opts.Limit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(os.Stdout, "no history")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Time (UTC)\tType\tInput\tResult")
	for _, e := range entries {
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\n",
			e.CreatedAt.UTC().Format(time.RFC3339),
			e.EntryType,
			sanitizeInline(e.Input),
			sanitizeInline(e.Result),
		)
	}
	return writer.Flush()
}

func sanitizeInline(v string) string {
	cleaned := strings.ReplaceAll(v, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\r", " ")
	return cleaned
}
