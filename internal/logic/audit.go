package logic

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/idelchi/cloak/internal/config"
)

// RunAudit prints the most recent audit entries, oldest first.
func RunAudit(ctx context.Context, cfg *config.Config, streams Streams) error {
	app, err := NewApp(cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	entries, err := app.Store.ListAudit(ctx, cfg.Limit)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(streams.Out, 0, 0, 2, ' ', 0)

	fmt.Fprintln(w, "TIME\tACTION\tRESULT\tACTOR\tRESOURCE\tSOURCE")

	for _, e := range entries {
		result := "denied"
		if e.Success {
			result = "ok"
		}

		actor := e.Actor
		if actor == "" {
			actor = "-"
		}

		source := e.Source.UserAgent
		if e.Source.RemoteAddr != "" {
			source = e.Source.RemoteAddr + " " + source
		}

		fmt.Fprintf(w, "%s (%s)\t%s\t%s\t%s\t%s\t%s\n",
			e.Timestamp.Local().Format(time.DateTime), humanize.Time(e.Timestamp),
			e.Action, result, actor, e.Source.Resource, source)
	}

	return w.Flush()
}
