package main

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/vmunix/anitrack/internal/app"
	"github.com/vmunix/anitrack/internal/catalog"
	"github.com/vmunix/anitrack/internal/library"
	"github.com/vmunix/anitrack/internal/ui"
)

// lookupFor marks catalog entries that are in the resumed session's
// library. Signed out, nothing is marked.
func lookupFor(ctx context.Context, a *app.App) (trackedLookup, error) {
	if err := a.Start(ctx); err != nil {
		return nil, err
	}
	return a.Library.FindByCatalogID, nil
}

func newSearchCmd(g *globals) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the catalog",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.TrimSpace(strings.Join(args, " "))
			return g.withApp(cmd, func(ctx context.Context, a *app.App) error {
				if minLen := a.Config.Search.MinQueryLength; utf8.RuneCountInString(query) < minLen {
					return fmt.Errorf("%w: query must be at least %d characters", library.ErrValidation, minLen)
				}
				if limit <= 0 {
					limit = a.Config.Search.Limit
				}
				tracked, err := lookupFor(ctx, a)
				if err != nil {
					return err
				}
				entries, err := a.Catalog.Search(ctx, query, limit)
				if err != nil {
					return err
				}
				p := g.printer(cmd)
				if p.json {
					return p.printJSON(entries)
				}
				p.printCatalog(entries, tracked)
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "l", 0, "Maximum results (default from config)")
	return cmd
}

func newFindCmd(g *globals) *cobra.Command {
	var statusFlag string
	cmd := &cobra.Command{
		Use:   "find",
		Short: "Interactive search-as-you-type; enter adds the selected title",
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
				searcher := a.NewSearcher()
				defer searcher.Close()

				model := ui.NewModel(ctx, searcher, a.Gateway, status)
				_, err := tea.NewProgram(model,
					tea.WithContext(ctx),
					tea.WithInput(cmd.InOrStdin()),
					tea.WithOutput(cmd.OutOrStdout()),
				).Run()
				return err
			})
		},
	}
	cmd.Flags().StringVarP(&statusFlag, "status", "s", "", "Status for added titles (default plan-to-watch)")
	return cmd
}

func newShowCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "show <catalog-id>",
		Short: "Show catalog details for a title",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			malID, err := parseCatalogID(args[0])
			if err != nil {
				return err
			}
			return g.withApp(cmd, func(ctx context.Context, a *app.App) error {
				tracked, err := lookupFor(ctx, a)
				if err != nil {
					return err
				}
				entry, err := a.Catalog.Anime(ctx, malID)
				if err != nil {
					return err
				}
				p := g.printer(cmd)
				if p.json {
					return p.printJSON(entry)
				}
				p.printAnime(entry, tracked)
				return nil
			})
		},
	}
}

func newDiscoverCmd(g *globals, use string) *cobra.Command {
	short := "Titles airing this season"
	fetch := (*catalog.Client).SeasonNow
	if use == "top" {
		short = "Top-ranked titles"
		fetch = (*catalog.Client).TopAnime
	}

	var page int
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(cmd, func(ctx context.Context, a *app.App) error {
				tracked, err := lookupFor(ctx, a)
				if err != nil {
					return err
				}
				entries, err := fetch(a.Catalog, ctx, page)
				if err != nil {
					return err
				}
				p := g.printer(cmd)
				if p.json {
					return p.printJSON(entries)
				}
				p.printCatalog(entries, tracked)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "Result page")
	return cmd
}
