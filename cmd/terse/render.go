package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/vango-dev/terse/pkg/render"
)

func (a *app) renderCmd() *cobra.Command {
	var (
		out    string
		stream bool
		title  string
	)

	cmd := &cobra.Command{
		Use:   "render <file>",
		Short: "Render a spec file to an HTML document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tree, err := loadSpecFile(args[0])
			if err != nil {
				return err
			}
			if title == "" {
				title = a.cfg.Render.Title
			}
			if title == "" {
				title = pageName(args[0])
			}
			page := &render.Page{Title: title, Lang: a.cfg.Render.Lang, Tree: tree}
			shell := render.NewShell(render.Config{
				Lang:   a.cfg.Render.Lang,
				Pretty: a.cfg.Render.Pretty,
				Logger: a.logger,
			})

			var w io.Writer = cmd.OutOrStdout()
			if out != "" {
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}

			if stream {
				return shell.Stream(cmd.Context(), page, render.NewWriterSink(w))
			}
			html, err := shell.RenderDocument(cmd.Context(), page)
			if err != nil {
				return err
			}
			_, err = io.WriteString(w, html)
			return err
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "write to a file instead of stdout")
	cmd.Flags().BoolVar(&stream, "stream", false, "write the document as a chunked stream")
	cmd.Flags().StringVar(&title, "title", "", "document title (default: render.title or the file name)")
	cmd.Flags().Bool("pretty", false, "break lines between block elements")
	_ = a.v.BindPFlag("render.pretty", cmd.Flags().Lookup("pretty"))
	return cmd
}
