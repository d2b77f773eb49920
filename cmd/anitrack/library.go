package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/vmunix/anitrack/internal/app"
	"github.com/vmunix/anitrack/internal/library"
)

func newListCmd(g *globals) *cobra.Command {
	var statusFlag string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List your library by status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var status library.Status
			if statusFlag != "" {
				s, err := library.ParseStatus(statusFlag)
				if err != nil {
					return err
				}
				status = s
			}

			return g.withUser(cmd, func(ctx context.Context, a *app.App, user *library.User) error {
				parts := a.Library.Partitions()
				p := g.printer(cmd)

				if status != "" {
					bucket := parts.Of(status)
					if p.json {
						return p.printJSON(nonNil(bucket))
					}
					if len(bucket) == 0 {
						p.printf("Nothing in %s.\n", status.Label())
						return nil
					}
					p.printf("%s (%d)\n", status.Label(), len(bucket))
					p.printTitles(bucket)
					return nil
				}

				if p.json {
					out := make(map[library.Status][]library.TrackedTitle, len(library.Statuses))
					for _, s := range library.Statuses {
						out[s] = nonNil(parts.Of(s))
					}
					return p.printJSON(out)
				}
				p.printPartitions(parts)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&statusFlag, "status", "s", "", "Only this status (watching, completed, on-hold, plan-to-watch, dropped)")
	return cmd
}

func nonNil(titles []library.TrackedTitle) []library.TrackedTitle {
	if titles == nil {
		return []library.TrackedTitle{}
	}
	return titles
}

func newAddCmd(g *globals) *cobra.Command {
	var statusFlag string
	cmd := &cobra.Command{
		Use:   "add <catalog-id>",
		Short: "Add a catalog title to your library",
		Long:  "Fetches the title from the catalog and adds it to your library, as plan-to-watch unless --status is given.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			malID, err := parseCatalogID(args[0])
			if err != nil {
				return err
			}
			var status library.Status
			if statusFlag != "" {
				if status, err = library.ParseStatus(statusFlag); err != nil {
					return err
				}
			}

			return g.withUser(cmd, func(ctx context.Context, a *app.App, user *library.User) error {
				if t, ok := a.Library.FindByCatalogID(malID); ok {
					return fmt.Errorf("%w: %q is already tracked as %s", library.ErrDuplicate, t.Title, t.Status.Label())
				}
				entry, err := a.Catalog.Anime(ctx, malID)
				if err != nil {
					return err
				}
				t, err := a.Gateway.Add(ctx, *entry, status)
				if err != nil {
					return err
				}
				p := g.printer(cmd)
				if p.json {
					return p.printJSON(t)
				}
				p.printf("Added %s to %s\n", t.Title, t.Status.Label())
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&statusFlag, "status", "s", "", "Initial status (default plan-to-watch)")
	return cmd
}

func parseCatalogID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q is not a catalog id", library.ErrValidation, s)
	}
	return id, nil
}

// mutate resolves ref against the library and hands the title to fn.
func (g *globals) mutate(cmd *cobra.Command, ref string, fn func(ctx context.Context, a *app.App, t library.TrackedTitle) error) error {
	return g.withUser(cmd, func(ctx context.Context, a *app.App, user *library.User) error {
		t, err := library.Resolve(a.Library.Titles(), ref)
		if err != nil {
			return err
		}
		return fn(ctx, a, t)
	})
}

func newProgressCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "progress <title> <episodes>",
		Short: "Set episodes watched",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := library.ParseProgress(args[1])
			if err != nil {
				return err
			}
			return g.mutate(cmd, args[0], func(ctx context.Context, a *app.App, t library.TrackedTitle) error {
				if err := a.Gateway.UpdateProgress(ctx, t.ID, n); err != nil {
					return err
				}
				t.Progress = n
				g.printer(cmd).printf("%s: %s\n", t.Title, t.ProgressText())
				return nil
			})
		},
	}
}

func newStepCmd(g *globals, use string, delta int) *cobra.Command {
	short := "Mark one more episode watched"
	if delta < 0 {
		short = "Take back one watched episode"
	}
	return &cobra.Command{
		Use:   use + " <title>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.mutate(cmd, args[0], func(ctx context.Context, a *app.App, t library.TrackedTitle) error {
				n, err := a.Gateway.StepProgress(ctx, t.ID, delta)
				if err != nil {
					return err
				}
				t.Progress = n
				g.printer(cmd).printf("%s: %s\n", t.Title, t.ProgressText())
				return nil
			})
		},
	}
}

func newStatusCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "status <title> <status>",
		Short: "Move a title to another status",
		Long:  "Moves a title. Completing sets progress to the episode total; starting to watch resets it to zero.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := library.ParseStatus(args[1])
			if err != nil {
				return err
			}
			return g.mutate(cmd, args[0], func(ctx context.Context, a *app.App, t library.TrackedTitle) error {
				if err := a.Gateway.UpdateStatus(ctx, t.ID, status); err != nil {
					return err
				}
				t = library.DeriveStatusUpdate(t, status).Apply(t)
				g.printer(cmd).printf("%s: %s (%s)\n", t.Title, t.Status.Label(), t.ProgressText())
				return nil
			})
		},
	}
}

func newRemoveCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <title>",
		Aliases: []string{"remove"},
		Short:   "Remove a title from your library",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.mutate(cmd, args[0], func(ctx context.Context, a *app.App, t library.TrackedTitle) error {
				if err := a.Gateway.Delete(ctx, t.ID); err != nil {
					return err
				}
				g.printer(cmd).printf("Removed %s\n", t.Title)
				return nil
			})
		},
	}
}
