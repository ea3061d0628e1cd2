package study

import (
	"context"
	"sync"
	"time"

	"github.com/p-n-ai/pai-study/internal/navigation"
	"github.com/p-n-ai/pai-study/internal/render"
	"github.com/p-n-ai/pai-study/internal/tooltip"
)

// Session is one learner's walk through a curriculum snapshot.
type Session struct {
	ID        string
	Owner     string
	CreatedAt time.Time

	svc *Service

	mu      sync.Mutex
	machine *navigation.Machine
	ann     *tooltip.Annotator
	timer   *time.Timer
	pending *navigation.Advance
	ended   bool
}

// Position returns the session's cursor.
func (s *Session) Position() navigation.Position {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.Position()
}

// AdvancePending reports whether an automatic move out of a finished quiz is
// scheduled.
func (s *Session) AdvancePending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timer != nil
}

// schedule arms the auto-advance timer. Caller holds s.mu.
func (s *Session) schedule(adv *navigation.Advance, delay time.Duration) {
	s.stopTimer()
	s.pending = adv
	s.timer = time.AfterFunc(delay, func() { s.fire(adv) })
}

// stopTimer cancels any pending auto-advance. Caller holds s.mu.
func (s *Session) stopTimer() {
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = nil
	s.pending = nil
}

func (s *Session) fire(adv *navigation.Advance) {
	s.mu.Lock()
	if s.ended || s.pending != adv {
		s.mu.Unlock()
		return
	}
	s.timer, s.pending = nil, nil

	from := s.machine.Position()
	to, ok := s.machine.Apply(adv)
	if !ok {
		s.mu.Unlock()
		return
	}
	s.arrived(context.Background(), to)
	view := s.view()
	s.mu.Unlock()

	s.svc.logEvent(s, EventAutoAdvanced, map[string]any{"from": from.String(), "to": to.String()})
	s.svc.publish(s.ID, view)
}

// arrived records a page visit. Caller holds s.mu.
func (s *Session) arrived(ctx context.Context, pos navigation.Position) {
	if pos.Kind == navigation.KindPage {
		s.svc.tracker.MarkStudied(ctx, s.Owner, pos.Domain, pos.Topic, pos.Page)
	}
}

// view builds the current view. Caller holds s.mu.
func (s *Session) view() render.View {
	return render.Render(s.machine, s.ann)
}
