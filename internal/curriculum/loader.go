package curriculum

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
)

const defaultConcurrency = 8

// Loader assembles a Curriculum from a ResourceStore and keeps the most
// recent successful load.
type Loader struct {
	store       ResourceStore
	validator   *validator
	concurrency int

	mu      sync.RWMutex
	current *Curriculum
}

// Option configures a Loader.
type Option func(*Loader)

// WithConcurrency bounds how many page resources are fetched at once per topic.
func WithConcurrency(n int) Option {
	return func(l *Loader) {
		if n > 0 {
			l.concurrency = n
		}
	}
}

// NewLoader creates a loader over store without loading anything yet.
func NewLoader(store ResourceStore, opts ...Option) (*Loader, error) {
	if store == nil {
		return nil, errors.New("resource store is nil")
	}
	v, err := newValidator()
	if err != nil {
		return nil, err
	}
	l := &Loader{store: store, validator: v, concurrency: defaultConcurrency}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Load is a convenience wrapper that builds a Loader and runs one load.
func Load(ctx context.Context, store ResourceStore, opts ...Option) (*Curriculum, error) {
	l, err := NewLoader(store, opts...)
	if err != nil {
		return nil, err
	}
	return l.Reload(ctx)
}

// Current returns the last successfully loaded curriculum, if any.
func (l *Loader) Current() (*Curriculum, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.current, l.current != nil
}

// Reload loads the whole hierarchy. On failure the previous curriculum is kept
// and nothing partial is exposed.
func (l *Loader) Reload(ctx context.Context) (*Curriculum, error) {
	c, err := l.load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading curriculum: %w", err)
	}

	l.mu.Lock()
	l.current = c
	l.mu.Unlock()

	s := c.Stats()
	slog.Info("curriculum loaded",
		"domains", s.Domains,
		"topics", s.Topics,
		"pages", s.Pages,
		"quizzes", s.Quizzes,
		"terms", s.Terms,
	)
	return c, nil
}

func (l *Loader) load(ctx context.Context) (*Curriculum, error) {
	var defs struct {
		Definitions map[string]string `json:"definitions"`
	}
	if err := l.required(ctx, PathDefinitions, schemaDefinitions, &defs); err != nil {
		return nil, err
	}

	var guideline Guideline
	if err := l.required(ctx, PathGuideline, schemaGuideline, &guideline); err != nil {
		return nil, err
	}

	domains := make([]Domain, 0, len(guideline.Domains))
	for _, ref := range guideline.Domains {
		d, ok, err := l.loadDomain(ctx, ref)
		if err != nil {
			return nil, err
		}
		if !ok {
			slog.Debug("skipping domain without outline", "domain", ref.ID)
			continue
		}
		domains = append(domains, d)
	}

	sort.SliceStable(domains, func(i, j int) bool {
		return domains[i].Order < domains[j].Order
	})

	return &Curriculum{
		Guideline:   guideline,
		Domains:     domains,
		Definitions: NewGlossary(defs.Definitions),
	}, nil
}

func (l *Loader) loadDomain(ctx context.Context, ref GuidelineDomain) (Domain, bool, error) {
	var outline struct {
		Domain string `json:"domain"`
		Topics []struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"topics"`
	}
	found, err := l.optional(ctx, DomainOutlinePath(ref.ID), schemaDomainOutline, &outline)
	if err != nil || !found {
		return Domain{}, false, err
	}

	order := DefaultDomainOrder
	if ref.Order != nil {
		order = *ref.Order
	}
	d := Domain{
		ID:     ref.ID,
		Title:  ref.Title,
		Order:  order,
		Topics: make([]Topic, 0, len(outline.Topics)),
	}

	for _, info := range outline.Topics {
		t, ok, err := l.loadTopic(ctx, ref.ID, info.ID)
		if err != nil {
			return Domain{}, false, err
		}
		if !ok {
			slog.Debug("skipping topic without outline", "domain", ref.ID, "topic", info.ID)
			continue
		}
		t.Title = info.Title
		t.DomainTitle = outline.Domain
		d.Topics = append(d.Topics, t)
	}
	return d, true, nil
}

func (l *Loader) loadTopic(ctx context.Context, domainID, topicID string) (Topic, bool, error) {
	var outline struct {
		Pages []struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"pages"`
	}
	found, err := l.optional(ctx, TopicOutlinePath(domainID, topicID), schemaTopicOutline, &outline)
	if err != nil || !found {
		return Topic{}, false, err
	}

	// Pages are fetched concurrently but merged back in outline order.
	slots := make([]*Page, len(outline.Pages))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.concurrency)
	for i, info := range outline.Pages {
		g.Go(func() error {
			var content struct {
				Blocks []Block `json:"blocks"`
			}
			found, err := l.optional(gctx, PageContentPath(domainID, topicID, info.ID), schemaPageContent, &content)
			if err != nil || !found {
				return err
			}
			if content.Blocks == nil {
				content.Blocks = []Block{}
			}
			slots[i] = &Page{ID: info.ID, Title: info.Title, Blocks: content.Blocks}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Topic{}, false, err
	}

	t := Topic{ID: topicID, Pages: make([]Page, 0, len(slots))}
	for i, p := range slots {
		if p == nil {
			slog.Debug("skipping page without content",
				"domain", domainID, "topic", topicID, "page", outline.Pages[i].ID)
			continue
		}
		t.Pages = append(t.Pages, *p)
	}

	quiz, err := l.loadQuiz(ctx, domainID, topicID)
	if err != nil {
		return Topic{}, false, err
	}
	t.Quiz = quiz
	return t, true, nil
}

func (l *Loader) loadQuiz(ctx context.Context, domainID, topicID string) (*Quiz, error) {
	path := QuizPath(domainID, topicID)
	var quiz Quiz
	found, err := l.optional(ctx, path, schemaQuiz, &quiz)
	if err != nil || !found {
		return nil, err
	}
	for i, q := range quiz.Questions {
		if q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Options) {
			return nil, malformed(path, fmt.Errorf("question %d: correct index %d out of range for %d options",
				i, q.CorrectIndex, len(q.Options)))
		}
	}
	if quiz.Questions == nil {
		quiz.Questions = []Question{}
	}
	return &quiz, nil
}

// required fetches and decodes a resource that must exist.
func (l *Loader) required(ctx context.Context, path string, kind schemaKind, out any) error {
	data, err := l.store.Get(ctx, path)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return missing(path, err)
	}
	return l.validator.decode(kind, path, data, out)
}

// optional fetches and decodes a resource that may be absent. found is false
// when the store reports ErrNotFound.
func (l *Loader) optional(ctx context.Context, path string, kind schemaKind, out any) (bool, error) {
	data, err := l.store.Get(ctx, path)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return false, ctxErr
		}
		return false, fmt.Errorf("fetching %s: %w", path, err)
	}
	if err := l.validator.decode(kind, path, data, out); err != nil {
		return false, err
	}
	return true, nil
}
