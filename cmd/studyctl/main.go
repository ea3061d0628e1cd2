// Command studyctl checks and exports exam study content.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/p-n-ai/pai-study/internal/curriculum"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	content     string
	concurrency int
	logLevel    string
}

func rootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:           "studyctl",
		Short:         "Validate, outline and export exam study content",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelWarn
			switch strings.ToLower(opts.logLevel) {
			case "debug":
				level = slog.LevelDebug
			case "info":
				level = slog.LevelInfo
			case "error":
				level = slog.LevelError
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
		},
	}

	defaultContent := os.Getenv("STUDY_CONTENT_PATH")
	if defaultContent == "" {
		defaultContent = "./data"
	}
	cmd.PersistentFlags().StringVar(&opts.content, "content", defaultContent, "Content directory")
	cmd.PersistentFlags().IntVar(&opts.concurrency, "concurrency", 8, "Page resources fetched at once per topic")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	cmd.AddCommand(validateCmd(opts), outlineCmd(opts), exportCmd(opts))
	return cmd
}

func (o *options) load(ctx context.Context) (*curriculum.Curriculum, error) {
	store, err := curriculum.NewDirStore(o.content)
	if err != nil {
		return nil, err
	}
	return curriculum.Load(ctx, store, curriculum.WithConcurrency(o.concurrency))
}

func validateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Load the content and report what it contains",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.load(cmd.Context())
			if err != nil {
				return err
			}
			s := c.Stats()
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d domains, %d topics, %d pages, %d quizzes (%d questions), %d terms\n",
				examName(c), s.Domains, s.Topics, s.Pages, s.Quizzes, s.Questions, s.Terms)
			return nil
		},
	}
}

func examName(c *curriculum.Curriculum) string {
	if c.Guideline.Exam != "" {
		return c.Guideline.Exam
	}
	return "curriculum"
}

// Outline is the printable structure of a curriculum.
type Outline struct {
	Exam    string          `json:"exam" yaml:"exam"`
	Domains []OutlineDomain `json:"domains" yaml:"domains"`
}

// OutlineDomain lists a domain's topics.
type OutlineDomain struct {
	ID     string         `json:"id" yaml:"id"`
	Title  string         `json:"title" yaml:"title"`
	Topics []OutlineTopic `json:"topics" yaml:"topics"`
}

// OutlineTopic lists a topic's pages and the size of its quiz.
type OutlineTopic struct {
	ID        string   `json:"id" yaml:"id"`
	Title     string   `json:"title" yaml:"title"`
	Pages     []string `json:"pages" yaml:"pages"`
	Questions int      `json:"questions,omitempty" yaml:"questions,omitempty"`
}

// NewOutline summarises c.
func NewOutline(c *curriculum.Curriculum) Outline {
	out := Outline{Exam: c.Guideline.Exam, Domains: make([]OutlineDomain, 0, len(c.Domains))}
	for _, d := range c.Domains {
		od := OutlineDomain{ID: d.ID, Title: d.Title, Topics: make([]OutlineTopic, 0, len(d.Topics))}
		for _, t := range d.Topics {
			ot := OutlineTopic{ID: t.ID, Title: t.Title, Pages: make([]string, 0, len(t.Pages))}
			for _, p := range t.Pages {
				ot.Pages = append(ot.Pages, p.Title)
			}
			if t.Quiz != nil {
				ot.Questions = len(t.Quiz.Questions)
			}
			od.Topics = append(od.Topics, ot)
		}
		out.Domains = append(out.Domains, od)
	}
	return out
}

func outlineCmd(opts *options) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "outline",
		Short: "Print the domain, topic and page tree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.load(cmd.Context())
			if err != nil {
				return err
			}
			return writeOutline(cmd.OutOrStdout(), NewOutline(c), format)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "yaml", "Output format (yaml, json)")
	return cmd
}

func writeOutline(w io.Writer, o Outline, format string) error {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(o); err != nil {
			return fmt.Errorf("encoding outline: %w", err)
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(o)
	default:
		return fmt.Errorf("unknown outline format %q", format)
	}
}
