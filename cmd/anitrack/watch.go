package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/vmunix/anitrack/internal/app"
	"github.com/vmunix/anitrack/internal/library"
)

func newWatchCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Follow your library live until interrupted",
		Long:  "Prints status counts whenever the library changes, including changes made by other anitrack processes.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(cmd, func(ctx context.Context, a *app.App) error {
				p := g.printer(cmd)
				var last uint64
				onChange := func(st library.State) {
					if st.Version == last && st.Err == nil {
						return
					}
					last = st.Version
					if p.json {
						_ = p.printJSON(summarize(st))
						return
					}
					p.println(dashboardLine(st, time.Now()))
				}
				return app.NewRunner(a, app.DefaultRunnerConfig(), slog.Default()).Run(ctx, onChange)
			})
		},
	}
}

type stateSummary struct {
	User    string                 `json:"user,omitempty"`
	Loading bool                   `json:"loading"`
	Error   string                 `json:"error,omitempty"`
	Counts  map[library.Status]int `json:"counts"`
}

func summarize(st library.State) stateSummary {
	s := stateSummary{
		Loading: st.Loading,
		Counts:  library.PartitionByStatus(st.Titles).Counts(),
	}
	if st.User != nil {
		s.User = st.User.Email
	}
	if st.Err != nil {
		s.Error = st.Err.Error()
	}
	return s
}

func dashboardLine(st library.State, now time.Time) string {
	stamp := now.Format("15:04:05")
	switch {
	case st.User == nil:
		return stamp + "  signed out"
	case st.Loading:
		return stamp + "  loading " + st.User.Email + "..."
	}

	counts := library.PartitionByStatus(st.Titles).Counts()
	parts := make([]string, 0, len(library.Statuses))
	for _, s := range library.Statuses {
		parts = append(parts, fmt.Sprintf("%s %d", s.Label(), counts[s]))
	}
	line := fmt.Sprintf("%s  %s  %s", stamp, st.User.Email, strings.Join(parts, " · "))
	if st.Err != nil {
		line += "  (stale: " + st.Err.Error() + ")"
	}
	return line
}
