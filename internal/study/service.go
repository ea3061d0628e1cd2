// Package study hosts learner sessions: each session owns a navigation state
// machine, records studied pages and pushes view updates.
package study

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/p-n-ai/pai-study/internal/curriculum"
	"github.com/p-n-ai/pai-study/internal/navigation"
	"github.com/p-n-ai/pai-study/internal/render"
	"github.com/p-n-ai/pai-study/internal/studied"
	"github.com/p-n-ai/pai-study/internal/tooltip"
)

// DefaultAdvanceDelay is the pause between finishing a quiz and moving on.
const DefaultAdvanceDelay = 2 * time.Second

var (
	// ErrSessionNotFound is returned for unknown or ended session ids.
	ErrSessionNotFound = errors.New("session not found")
	// ErrNoCurriculum is returned when no curriculum has been loaded yet.
	ErrNoCurriculum = errors.New("curriculum not loaded")
)

// CurriculumSource supplies the current curriculum snapshot.
type CurriculumSource interface {
	Current() *curriculum.Curriculum
}

// SourceFunc adapts a function to CurriculumSource.
type SourceFunc func() *curriculum.Curriculum

// Current calls f.
func (f SourceFunc) Current() *curriculum.Curriculum { return f() }

// Notifier receives a session's view after every state change.
type Notifier interface {
	Publish(sessionID string, view render.View)
}

// Config holds dependencies for the session service.
type Config struct {
	Source       CurriculumSource
	Tracker      *studied.Tracker
	Events       EventLogger
	Notifier     Notifier
	AdvanceDelay time.Duration // pause before leaving a finished quiz (default 2s)
}

// Service manages concurrent study sessions.
type Service struct {
	source   CurriculumSource
	tracker  *studied.Tracker
	events   EventLogger
	notifier Notifier
	delay    time.Duration

	mu       sync.RWMutex
	sessions map[string]*Session

	annMu  sync.Mutex
	annFor *curriculum.Curriculum
	ann    *tooltip.Annotator
}

// NewService creates a session service.
func NewService(cfg Config) *Service {
	tracker := cfg.Tracker
	if tracker == nil {
		tracker = studied.NewTracker(studied.NewMemoryKV(), 0)
	}
	events := cfg.Events
	if events == nil {
		events = NopEventLogger{}
	}
	delay := cfg.AdvanceDelay
	if delay <= 0 {
		delay = DefaultAdvanceDelay
	}
	return &Service{
		source:   cfg.Source,
		tracker:  tracker,
		events:   events,
		notifier: cfg.Notifier,
		delay:    delay,
		sessions: make(map[string]*Session),
	}
}

// SetNotifier replaces the notifier. It must be called before sessions are created.
func (s *Service) SetNotifier(n Notifier) {
	s.notifier = n
}

// Create starts a session for owner positioned by req. An empty owner makes
// the session its own owner.
func (s *Service) Create(ctx context.Context, owner string, req navigation.Request) (*Session, render.View, error) {
	var c *curriculum.Curriculum
	if s.source != nil {
		c = s.source.Current()
	}
	if c == nil {
		return nil, render.View{}, ErrNoCurriculum
	}

	id := uuid.NewString()
	if owner == "" {
		owner = id
	}
	sess := &Session{
		ID:        id,
		Owner:     owner,
		CreatedAt: time.Now(),
		svc:       s,
		machine:   navigation.New(c),
		ann:       s.annotator(c),
	}

	sess.mu.Lock()
	pos := sess.machine.Open(req)
	sess.arrived(ctx, pos)
	view := sess.view()
	sess.mu.Unlock()

	s.mu.Lock()
	s.sessions[id] = sess
	s.mu.Unlock()

	s.logEvent(sess, EventSessionStarted, map[string]any{"position": pos.String()})
	slog.Info("study session started", "session_id", id, "owner", owner, "position", pos.String())
	return sess, view, nil
}

// Get returns a live session.
func (s *Service) Get(id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return sess, nil
}

// End stops a session and discards its state.
func (s *Service) End(id string) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	sess.mu.Lock()
	sess.stopTimer()
	sess.ended = true
	sess.mu.Unlock()

	s.logEvent(sess, EventSessionEnded, nil)
	return nil
}

// Len returns the number of live sessions.
func (s *Service) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Close ends every session.
func (s *Service) Close() {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*Session)
	s.mu.Unlock()

	for _, sess := range sessions {
		sess.mu.Lock()
		sess.stopTimer()
		sess.ended = true
		sess.mu.Unlock()
	}
}

// View returns the current view of a session.
func (s *Service) View(id string) (render.View, error) {
	sess, err := s.Get(id)
	if err != nil {
		return render.View{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.view(), nil
}

// Next moves a session forward from its current page.
func (s *Service) Next(ctx context.Context, id string) (render.View, error) {
	return s.navigate(ctx, id, func(m *navigation.Machine) navigation.Position {
		return m.Next()
	})
}

// Previous moves a session back one page.
func (s *Service) Previous(ctx context.Context, id string) (render.View, error) {
	return s.navigate(ctx, id, func(m *navigation.Machine) navigation.Position {
		pos, _ := m.Previous()
		return pos
	})
}

// Jump moves a session to an addressed page or quiz.
func (s *Service) Jump(ctx context.Context, id string, req navigation.Request) (render.View, error) {
	return s.navigate(ctx, id, func(m *navigation.Machine) navigation.Position {
		return m.Open(req)
	})
}

// Answer submits an answer for the current question. ok is false when the
// answer was not accepted.
func (s *Service) Answer(ctx context.Context, id string, option int) (render.View, navigation.AnswerResult, bool, error) {
	sess, err := s.Get(id)
	if err != nil {
		return render.View{}, navigation.AnswerResult{}, false, err
	}

	sess.mu.Lock()
	pos := sess.machine.Position()
	res, ok := sess.machine.Answer(option)
	view := sess.view()
	sess.mu.Unlock()

	if ok {
		s.logEvent(sess, EventQuestionAnswered, map[string]any{
			"quiz":     pos.QuizKey(),
			"question": pos.Question,
			"selected": option,
			"correct":  res.Correct,
		})
		s.publish(sess.ID, view)
	}
	return view, res, ok, nil
}

// NextQuestion moves to the next question. Finishing a quiz schedules the
// move to the next topic after the configured delay.
func (s *Service) NextQuestion(ctx context.Context, id string) (render.View, error) {
	sess, err := s.Get(id)
	if err != nil {
		return render.View{}, err
	}

	sess.mu.Lock()
	wasFinished := sess.machine.Finished()
	pos, adv := sess.machine.NextQuestion()
	if adv != nil && adv != sess.pending {
		sess.schedule(adv, s.delay)
	}
	r, _ := sess.machine.Result(pos.Domain, pos.Topic)
	view := sess.view()
	sess.mu.Unlock()

	if adv != nil && !wasFinished {
		s.logEvent(sess, EventQuizCompleted, map[string]any{
			"quiz":    pos.QuizKey(),
			"correct": r.Correct,
			"total":   r.Total,
		})
	}
	s.publish(sess.ID, view)
	return view, nil
}

// Results returns a session's quiz results keyed by "domain-topic".
func (s *Service) Results(id string) (map[string]navigation.QuizResult, error) {
	sess, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.machine.Results(), nil
}

// Studied returns the pages the session's owner has seen.
func (s *Service) Studied(ctx context.Context, id string) (studied.Pages, error) {
	sess, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	return s.tracker.Studied(ctx, sess.Owner), nil
}

// Preferences returns the session owner's display preferences.
func (s *Service) Preferences(ctx context.Context, id string) (studied.Preferences, error) {
	sess, err := s.Get(id)
	if err != nil {
		return studied.Preferences{}, err
	}
	return s.tracker.Preferences(ctx, sess.Owner), nil
}

// SetPreferences stores the session owner's display preferences.
func (s *Service) SetPreferences(ctx context.Context, id string, p studied.Preferences) error {
	sess, err := s.Get(id)
	if err != nil {
		return err
	}
	s.tracker.SetPreferences(ctx, sess.Owner, p)
	return nil
}

func (s *Service) navigate(ctx context.Context, id string, move func(*navigation.Machine) navigation.Position) (render.View, error) {
	sess, err := s.Get(id)
	if err != nil {
		return render.View{}, err
	}

	sess.mu.Lock()
	from := sess.machine.Position()
	to := move(sess.machine)
	if !sess.machine.Finished() {
		sess.stopTimer()
	}
	if to != from {
		sess.arrived(ctx, to)
	}
	view := sess.view()
	sess.mu.Unlock()

	if to != from {
		s.logEvent(sess, EventNavigated, map[string]any{"from": from.String(), "to": to.String()})
	}
	s.publish(sess.ID, view)
	return view, nil
}

func (s *Service) annotator(c *curriculum.Curriculum) *tooltip.Annotator {
	s.annMu.Lock()
	defer s.annMu.Unlock()

	if s.annFor != c {
		s.ann = tooltip.New(c.Definitions)
		s.annFor = c
	}
	return s.ann
}

func (s *Service) publish(id string, view render.View) {
	if s.notifier != nil {
		s.notifier.Publish(id, view)
	}
}

func (s *Service) logEvent(sess *Session, eventType string, data map[string]any) {
	if err := s.events.LogEvent(Event{
		SessionID: sess.ID,
		Owner:     sess.Owner,
		EventType: eventType,
		Data:      data,
	}); err != nil {
		slog.Warn("failed to log study event", "type", eventType, "error", err)
	}
}
