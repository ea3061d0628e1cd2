package study_test

import (
	"bytes"
	"errors"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/p-n-ai/pai-study/internal/curriculum"
	"github.com/p-n-ai/pai-study/internal/navigation"
	"github.com/p-n-ai/pai-study/internal/render"
	"github.com/p-n-ai/pai-study/internal/studied"
	"github.com/p-n-ai/pai-study/internal/study"
)

type staticSource struct {
	c *curriculum.Curriculum
}

func (s staticSource) Current() *curriculum.Curriculum { return s.c }

type recorder struct {
	mu    sync.Mutex
	views []render.View
}

func (r *recorder) Publish(_ string, v render.View) {
	r.mu.Lock()
	r.views = append(r.views, v)
	r.mu.Unlock()
}

func (r *recorder) last() (render.View, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.views) == 0 {
		return render.View{}, false
	}
	return r.views[len(r.views)-1], true
}

func testCurriculum() *curriculum.Curriculum {
	page := func(id string) curriculum.Page {
		return curriculum.Page{ID: id, Title: id, Blocks: []curriculum.Block{
			{Type: curriculum.BlockParagraph, Text: "Learn about phishing."},
		}}
	}
	return &curriculum.Curriculum{
		Definitions: curriculum.NewGlossary(map[string]string{"phishing": "Deceptive email."}),
		Domains: []curriculum.Domain{
			{ID: "threats", Title: "Threats", Topics: []curriculum.Topic{
				{
					ID:    "social",
					Title: "Social Engineering",
					Pages: []curriculum.Page{page("p1"), page("p2")},
					Quiz: &curriculum.Quiz{Questions: []curriculum.Question{
						{Text: "Q1", Options: []string{"a", "b"}, CorrectIndex: 1},
					}},
				},
			}},
			{ID: "ops", Title: "Operations", Topics: []curriculum.Topic{
				{ID: "ir", Title: "Incident Response", Pages: []curriculum.Page{page("p3")}},
			}},
		},
	}
}

func newService(t *testing.T, delay time.Duration) (*study.Service, *study.MemoryEventLogger, *recorder) {
	t.Helper()
	events := study.NewMemoryEventLogger()
	rec := &recorder{}
	svc := study.NewService(study.Config{
		Source:       staticSource{c: testCurriculum()},
		Tracker:      studied.NewTracker(studied.NewMemoryKV(), 0),
		Events:       events,
		Notifier:     rec,
		AdvanceDelay: delay,
	})
	t.Cleanup(svc.Close)
	return svc, events, rec
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func finishQuiz(t *testing.T, svc *study.Service, id string) {
	t.Helper()
	ctx := t.Context()
	domain, topic := 0, 0
	if _, err := svc.Jump(ctx, id, navigation.Request{Domain: &domain, Topic: &topic, Quiz: true}); err != nil {
		t.Fatalf("Jump() error = %v", err)
	}
	if _, _, ok, err := svc.Answer(ctx, id, 1); err != nil || !ok {
		t.Fatalf("Answer() = %v, %v", ok, err)
	}
	if _, err := svc.NextQuestion(ctx, id); err != nil {
		t.Fatalf("NextQuestion() error = %v", err)
	}
}

func TestService_Create(t *testing.T) {
	svc, events, _ := newService(t, 0)
	ctx := t.Context()

	page := 1
	domain, topic := 0, 0
	sess, view, err := svc.Create(ctx, "alice", navigation.Request{Domain: &domain, Topic: &topic, Page: &page})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if sess.ID == "" || sess.Owner != "alice" {
		t.Errorf("session = %+v", sess)
	}
	if view.Position != navigation.PageAt(0, 0, 1) {
		t.Errorf("view position = %v, want Page(0,0,1)", view.Position)
	}
	if !strings.Contains(view.Page.Body, `data-term="phishing"`) {
		t.Errorf("Body = %q, want annotated glossary term", view.Page.Body)
	}

	pages, err := svc.Studied(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Studied() error = %v", err)
	}
	if !pages.Has(0, 0, 1) {
		t.Errorf("Studied() = %v, want starting page marked", pages)
	}
	if got := events.Types(); !slices.Equal(got, []string{study.EventSessionStarted}) {
		t.Errorf("events = %v", got)
	}
	if svc.Len() != 1 {
		t.Errorf("Len() = %d, want 1", svc.Len())
	}
}

func TestService_CreateWithoutOwner(t *testing.T) {
	svc, _, _ := newService(t, 0)
	sess, _, err := svc.Create(t.Context(), "", navigation.Request{})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if sess.Owner != sess.ID {
		t.Errorf("Owner = %q, want session id %q", sess.Owner, sess.ID)
	}
}

func TestService_CreateWithoutCurriculum(t *testing.T) {
	svc := study.NewService(study.Config{Source: staticSource{}})
	if _, _, err := svc.Create(t.Context(), "alice", navigation.Request{}); !errors.Is(err, study.ErrNoCurriculum) {
		t.Errorf("Create() error = %v, want ErrNoCurriculum", err)
	}
}

func TestService_UnknownSession(t *testing.T) {
	svc, _, _ := newService(t, 0)
	ctx := t.Context()

	calls := map[string]func() error{
		"View":   func() error { _, err := svc.View("nope"); return err },
		"Next":   func() error { _, err := svc.Next(ctx, "nope"); return err },
		"Answer": func() error { _, _, _, err := svc.Answer(ctx, "nope", 0); return err },
		"End":    func() error { return svc.End("nope") },
		"Export": func() error { return svc.ExportResults("nope", &bytes.Buffer{}) },
	}
	for name, call := range calls {
		t.Run(name, func(t *testing.T) {
			if err := call(); !errors.Is(err, study.ErrSessionNotFound) {
				t.Errorf("error = %v, want ErrSessionNotFound", err)
			}
		})
	}
}

func TestService_NavigationMarksStudiedPages(t *testing.T) {
	svc, events, rec := newService(t, 0)
	ctx := t.Context()

	sess, _, _ := svc.Create(ctx, "bob", navigation.Request{})
	view, err := svc.Next(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if view.Position != navigation.PageAt(0, 0, 1) {
		t.Errorf("Next() position = %v", view.Position)
	}
	if last, ok := rec.last(); !ok || last.Position != view.Position {
		t.Errorf("published view = %+v, want latest view", last.Position)
	}

	view, _ = svc.Previous(ctx, sess.ID)
	if view.Position != navigation.PageAt(0, 0, 0) {
		t.Errorf("Previous() position = %v", view.Position)
	}

	pages, _ := svc.Studied(ctx, sess.ID)
	if !pages.Has(0, 0, 0) || !pages.Has(0, 0, 1) {
		t.Errorf("Studied() = %v", pages)
	}

	want := []string{study.EventSessionStarted, study.EventNavigated, study.EventNavigated}
	if got := events.Types(); !slices.Equal(got, want) {
		t.Errorf("events = %v, want %v", got, want)
	}
}

func TestService_AutoAdvance(t *testing.T) {
	svc, events, rec := newService(t, 10*time.Millisecond)
	sess, _, _ := svc.Create(t.Context(), "carol", navigation.Request{})

	finishQuiz(t, svc, sess.ID)

	waitFor(t, "auto-advance", func() bool {
		return sess.Position() == navigation.PageAt(1, 0, 0)
	})
	waitFor(t, "published view", func() bool {
		v, ok := rec.last()
		return ok && v.Position == navigation.PageAt(1, 0, 0)
	})
	if sess.AdvancePending() {
		t.Error("AdvancePending() = true after advancing")
	}
	if !slices.Contains(events.Types(), study.EventAutoAdvanced) {
		t.Errorf("events = %v, want auto_advanced", events.Types())
	}

	pages, _ := svc.Studied(t.Context(), sess.ID)
	if !pages.Has(1, 0, 0) {
		t.Errorf("Studied() = %v, want auto-advanced page marked", pages)
	}
}

func TestService_NavigationCancelsAutoAdvance(t *testing.T) {
	svc, events, _ := newService(t, 200*time.Millisecond)
	ctx := t.Context()
	sess, _, _ := svc.Create(ctx, "dave", navigation.Request{})

	finishQuiz(t, svc, sess.ID)
	if !sess.AdvancePending() {
		t.Fatal("AdvancePending() = false after finishing quiz")
	}

	domain, topic := 0, 0
	if _, err := svc.Jump(ctx, sess.ID, navigation.Request{Domain: &domain, Topic: &topic}); err != nil {
		t.Fatalf("Jump() error = %v", err)
	}
	if sess.AdvancePending() {
		t.Error("AdvancePending() = true after navigating away")
	}

	time.Sleep(400 * time.Millisecond)
	if got := sess.Position(); got != navigation.PageAt(0, 0, 0) {
		t.Errorf("position = %v, stale advance must not move the learner", got)
	}
	if slices.Contains(events.Types(), study.EventAutoAdvanced) {
		t.Error("auto_advanced logged after cancellation")
	}
}

func TestService_NoOpKeepsAutoAdvance(t *testing.T) {
	svc, _, _ := newService(t, 100*time.Millisecond)
	ctx := t.Context()
	sess, _, _ := svc.Create(ctx, "erin", navigation.Request{})

	finishQuiz(t, svc, sess.ID)
	// Neither a repeated next-question nor a rejected answer moves the cursor.
	svc.NextQuestion(ctx, sess.ID)
	if _, _, ok, _ := svc.Answer(ctx, sess.ID, 0); ok {
		t.Error("Answer() accepted on a finished quiz")
	}
	svc.Previous(ctx, sess.ID)

	waitFor(t, "auto-advance", func() bool {
		return sess.Position() == navigation.PageAt(1, 0, 0)
	})
}

func TestService_EndStopsAutoAdvance(t *testing.T) {
	svc, events, _ := newService(t, 200*time.Millisecond)
	sess, _, _ := svc.Create(t.Context(), "frank", navigation.Request{})

	finishQuiz(t, svc, sess.ID)
	if err := svc.End(sess.ID); err != nil {
		t.Fatalf("End() error = %v", err)
	}
	time.Sleep(400 * time.Millisecond)

	if got := sess.Position(); got.Kind != navigation.KindQuiz {
		t.Errorf("position = %v, ended session must not advance", got)
	}
	if slices.Contains(events.Types(), study.EventAutoAdvanced) {
		t.Error("auto_advanced logged after End()")
	}
	if _, err := svc.View(sess.ID); !errors.Is(err, study.ErrSessionNotFound) {
		t.Errorf("View() after End() error = %v", err)
	}
}

func TestService_Answer(t *testing.T) {
	svc, events, _ := newService(t, 0)
	ctx := t.Context()
	domain, topic := 0, 0
	sess, _, _ := svc.Create(ctx, "gina", navigation.Request{Domain: &domain, Topic: &topic, Quiz: true})

	view, res, ok, err := svc.Answer(ctx, sess.ID, 0)
	if err != nil || !ok {
		t.Fatalf("Answer() = %v, %v", ok, err)
	}
	if res.Correct || res.CorrectIndex != 1 {
		t.Errorf("result = %+v, want incorrect with correct index 1", res)
	}
	if view.Quiz == nil || view.Quiz.Explanation != "The correct answer is: b" {
		t.Errorf("quiz view = %+v", view.Quiz)
	}

	results, _ := svc.Results(sess.ID)
	if r := results["0-0"]; r.Total != 1 || r.Correct != 0 {
		t.Errorf("Results()[0-0] = %+v", r)
	}
	if !slices.Contains(events.Types(), study.EventQuestionAnswered) {
		t.Errorf("events = %v", events.Types())
	}
}

func TestService_Preferences(t *testing.T) {
	svc, _, _ := newService(t, 0)
	ctx := t.Context()
	a, _, _ := svc.Create(ctx, "hana", navigation.Request{})
	b, _, _ := svc.Create(ctx, "hana", navigation.Request{})

	want := studied.Preferences{DarkMode: true}
	if err := svc.SetPreferences(ctx, a.ID, want); err != nil {
		t.Fatalf("SetPreferences() error = %v", err)
	}
	got, err := svc.Preferences(ctx, b.ID)
	if err != nil {
		t.Fatalf("Preferences() error = %v", err)
	}
	if got != want {
		t.Errorf("Preferences() via second session = %+v, want %+v", got, want)
	}
}

func TestService_ExportResults(t *testing.T) {
	svc, _, _ := newService(t, time.Hour)
	sess, _, _ := svc.Create(t.Context(), "ivan", navigation.Request{})
	finishQuiz(t, svc, sess.ID)

	var buf bytes.Buffer
	if err := svc.ExportResults(sess.ID, &buf); err != nil {
		t.Fatalf("ExportResults() error = %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(study.ResultsSheet)
	if err != nil {
		t.Fatalf("GetRows() error = %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %v, want header, one quiz, progress", rows)
	}
	if got := rows[0]; !slices.Equal(got, []string{"Domain", "Topic", "Correct", "Answered", "Percent", "Completed"}) {
		t.Errorf("header = %v", got)
	}
	if got := rows[1]; !slices.Equal(got, []string{"Threats", "Social Engineering", "1", "1", "100", "yes"}) {
		t.Errorf("row = %v", got)
	}
	if got := rows[2]; len(got) == 0 || got[0] != "Progress: 4 of 4 sections" {
		t.Errorf("progress row = %v", got)
	}
}
