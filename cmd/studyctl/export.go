package main

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"github.com/spf13/cobra"
	"golang.org/x/net/html"

	"github.com/p-n-ai/pai-study/internal/curriculum"
	"github.com/p-n-ai/pai-study/internal/render"
	"github.com/p-n-ai/pai-study/internal/tooltip"
)

func exportCmd(opts *options) *cobra.Command {
	var (
		out    string
		format string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every page as one study document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.load(cmd.Context())
			if err != nil {
				return err
			}

			if out == "" || out == "-" {
				return export(cmd.OutOrStdout(), c, format)
			}
			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("creating %s: %w", out, err)
			}
			if err := export(f, c, format); err != nil {
				f.Close()
				return err
			}
			return f.Close()
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (default stdout)")
	cmd.Flags().StringVarP(&format, "format", "f", "markdown", "Output format (markdown, html)")
	return cmd
}

func export(w io.Writer, c *curriculum.Curriculum, format string) error {
	doc := exportHTML(c)
	switch format {
	case "html":
		_, err := io.WriteString(w, doc)
		return err
	case "markdown", "md":
		conv := md.NewConverter("", true, nil)
		conv.Use(plugin.GitHubFlavored())
		markdown, err := conv.ConvertString(doc)
		if err != nil {
			return fmt.Errorf("converting to markdown: %w", err)
		}
		_, err = io.WriteString(w, strings.TrimSpace(markdown)+"\n")
		return err
	default:
		return fmt.Errorf("unknown export format %q", format)
	}
}

// exportHTML renders the curriculum as one document with glossary terms
// annotated and a glossary at the end.
func exportHTML(c *curriculum.Curriculum) string {
	ann := tooltip.New(c.Definitions)

	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\"><title>")
	b.WriteString(html.EscapeString(examName(c)))
	b.WriteString("</title></head><body>\n")

	fmt.Fprintf(&b, "<h1>%s</h1>\n", html.EscapeString(examName(c)))
	if c.Guideline.Description != "" {
		fmt.Fprintf(&b, "<p>%s</p>\n", html.EscapeString(c.Guideline.Description))
	}
	if len(c.Guideline.StudyTips) > 0 {
		b.WriteString("<ul>\n")
		for _, tip := range c.Guideline.StudyTips {
			fmt.Fprintf(&b, "<li>%s</li>\n", html.EscapeString(tip))
		}
		b.WriteString("</ul>\n")
	}

	for _, d := range c.Domains {
		fmt.Fprintf(&b, "<h2>%s</h2>\n", html.EscapeString(d.Title))
		for _, t := range d.Topics {
			fmt.Fprintf(&b, "<h3>%s</h3>\n", html.EscapeString(t.Title))
			for _, p := range t.Pages {
				fmt.Fprintf(&b, "<h4>%s</h4>\n", html.EscapeString(p.Title))
				b.WriteString(render.Blocks(p.Blocks, ann))
				b.WriteString("\n")
			}
		}
	}

	if c.Definitions != nil && c.Definitions.Len() > 0 {
		terms := c.Definitions.Terms()
		slices.Sort(terms)
		b.WriteString("<h2>Glossary</h2>\n<ul>\n")
		for _, term := range terms {
			def, _ := c.Definitions.Lookup(term)
			fmt.Fprintf(&b, "<li><strong>%s</strong>: %s</li>\n", html.EscapeString(term), html.EscapeString(def))
		}
		b.WriteString("</ul>\n")
	}

	b.WriteString("</body></html>\n")
	return b.String()
}
