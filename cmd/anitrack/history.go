package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/vmunix/anitrack/internal/app"
	"github.com/vmunix/anitrack/internal/library"
)

type historyEntry struct {
	ID          int64  `json:"id"`
	Type        string `json:"type"`
	EntityID    string `json:"entity_id,omitempty"`
	Description string `json:"description"`
	OccurredAt  string `json:"occurred_at"`
}

func newHistoryCmd(g *globals) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent library changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withUser(cmd, func(ctx context.Context, a *app.App, user *library.User) error {
				raws, err := a.History.Recent(user.ID, limit)
				if err != nil {
					return err
				}

				entries := make([]historyEntry, 0, len(raws))
				for _, raw := range raws {
					desc := raw.EventType
					if e, err := a.Registry.Unmarshal(raw); err == nil {
						desc = describeEvent(e)
					}
					entries = append(entries, historyEntry{
						ID:          raw.ID,
						Type:        raw.EventType,
						EntityID:    raw.EntityID,
						Description: desc,
						OccurredAt:  formatTime(raw.OccurredAt),
					})
				}

				p := g.printer(cmd)
				if p.json {
					return p.printJSON(entries)
				}
				if len(entries) == 0 {
					p.println("No changes yet.")
					return nil
				}
				for _, e := range entries {
					p.printf("  %s  %s\n", e.OccurredAt, e.Description)
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of changes to show")
	return cmd
}
