package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vango-dev/terse/internal/watch"
	"github.com/vango-dev/terse/pkg/render"
	"github.com/vango-dev/terse/pkg/router"
	"github.com/vango-dev/terse/pkg/server"
)

func (a *app) serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve every spec file in pages.dir",
		Long: `Serve every spec file in pages.dir as /<name>, with index served at /.
Live sessions are served under live.path when live.enabled is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			pages, err := loadPages(a.cfg.Pages.Dir, a.logger)
			if err != nil {
				return err
			}
			a.logger.Info("pages loaded", "dir", a.cfg.Pages.Dir, "count", len(pages.names()))

			if a.cfg.Watch.Enabled {
				if err := a.watch(ctx, pages); err != nil {
					return err
				}
			}

			srv := a.newServer(pages)
			return srv.Run(ctx)
		},
	}

	flags := cmd.Flags()
	flags.String("host", "", "listen host (default: server.host)")
	flags.IntP("port", "p", 0, "listen port (default: server.port)")
	flags.Bool("watch", false, "reload pages when their files change")
	_ = a.v.BindPFlag("server.host", flags.Lookup("host"))
	_ = a.v.BindPFlag("server.port", flags.Lookup("port"))
	_ = a.v.BindPFlag("watch.enabled", flags.Lookup("watch"))
	return cmd
}

func (a *app) newServer(pages *pageSet) *server.Server {
	r := router.New(router.WithLogger(a.logger))
	page := func(name string) router.Result {
		tree, ok := pages.lookup(name)
		if !ok {
			return router.Error{Status: http.StatusNotFound, Err: fmt.Errorf("no page %q", name)}
		}
		title := a.cfg.Render.Title
		if title == "" {
			title = name
		}
		return router.Page{Page: render.Page{Title: title, Lang: a.cfg.Render.Lang, Tree: tree}}
	}
	r.Handle("/", func(*router.Context) router.Result { return page("index") })
	r.Handle("/:page", func(c *router.Context) router.Result { return page(c.Params.Get("page")) })

	opts := []server.Option{server.WithLogger(a.logger)}
	if a.cfg.Live.Enabled {
		opts = append(opts, server.WithLive(pages.lookup, nil))
	}
	return server.New(server.Config{
		Host:            a.cfg.Server.Host,
		Port:            a.cfg.Server.Port,
		ShutdownTimeout: a.cfg.Server.ShutdownTimeout,
		LivePath:        a.cfg.Live.Path,
		Render: render.Config{
			Lang:   a.cfg.Render.Lang,
			Pretty: a.cfg.Render.Pretty,
			Logger: a.logger,
		},
	}, r, opts...)
}

func (a *app) watch(ctx context.Context, pages *pageSet) error {
	w, err := watch.New(a.cfg.Watch.Debounce, watch.SpecFiles, a.logger)
	if err != nil {
		return err
	}
	if err := w.Add(pages.dir); err != nil {
		return err
	}
	go func() {
		if err := w.Run(ctx, pages.apply); err != nil {
			a.logger.Error("watcher stopped", "error", err)
		}
	}()
	a.logger.Info("watching pages", "dir", pages.dir)
	return nil
}
