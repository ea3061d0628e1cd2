package navigation

import (
	"github.com/p-n-ai/pai-study/internal/curriculum"
)

// Advance is a pending move out of a finished quiz. It is only honoured while
// the cursor has not moved since the advance was issued.
type Advance struct {
	Target Position
	gen    uint64
}

// Machine is the navigation state of one study session. It is not safe for
// concurrent use; callers own one Machine per session.
type Machine struct {
	c   *curriculum.Curriculum
	pos Position

	answered bool
	selected int
	finished bool
	pending  *Advance
	gen      uint64

	results map[string]*QuizResult
}

// New creates a machine positioned at the first available page.
func New(c *curriculum.Curriculum) *Machine {
	if c == nil {
		c = &curriculum.Curriculum{}
	}
	m := &Machine{c: c, selected: -1, results: make(map[string]*QuizResult)}
	m.Jump(0, 0, 0)
	return m
}

// Curriculum returns the curriculum being navigated.
func (m *Machine) Curriculum() *curriculum.Curriculum {
	return m.c
}

// Position returns the current cursor.
func (m *Machine) Position() Position {
	return m.pos
}

// Answered returns the option chosen for the current question, if any.
func (m *Machine) Answered() (int, bool) {
	return m.selected, m.answered
}

// Finished reports whether the current quiz is complete and waiting to advance.
func (m *Machine) Finished() bool {
	return m.finished
}

// Open positions the machine from an external request. A quiz request needs
// both domain and topic; a request naming a domain or topic that does not
// exist starts from the beginning.
func (m *Machine) Open(r Request) Position {
	if r.Domain == nil || r.Topic == nil {
		return m.Jump(0, 0, 0)
	}
	d, t := *r.Domain, *r.Topic
	if _, ok := m.c.Topic(d, t); !ok {
		return m.Jump(0, 0, 0)
	}
	if r.Quiz {
		return m.JumpQuiz(d, t)
	}
	p := 0
	if r.Page != nil {
		p = *r.Page
	}
	return m.Jump(d, t, p)
}

// Jump moves to a page. Out-of-range indices fall forward to the next
// available page, or Completion when none is left.
func (m *Machine) Jump(domain, topic, page int) Position {
	m.set(m.resolvePage(domain, topic, page))
	return m.pos
}

// JumpQuiz moves to the first question of a topic's quiz. Topics without a
// quiz fall forward to the next topic.
func (m *Machine) JumpQuiz(domain, topic int) Position {
	domain, topic = max(domain, 0), max(topic, 0)
	if domain >= len(m.c.Domains) {
		m.set(Completion())
		return m.pos
	}
	t, ok := m.c.Topic(domain, topic)
	if !ok {
		return m.Jump(domain, topic, 0)
	}
	if t.Quiz == nil {
		return m.Jump(domain, topic+1, 0)
	}
	m.enterQuiz(domain, topic, t)
	return m.pos
}

// Next moves forward from a page: the next page, the topic quiz, or the next
// topic. It does nothing on quiz and completion screens.
func (m *Machine) Next() Position {
	if m.pos.Kind != KindPage {
		return m.pos
	}
	d, ti, p := m.pos.Domain, m.pos.Topic, m.pos.Page
	t, _ := m.c.Topic(d, ti)

	switch {
	case p+1 < len(t.Pages):
		m.set(PageAt(d, ti, p+1))
	case t.Quiz != nil:
		m.enterQuiz(d, ti, t)
	default:
		m.set(m.resolvePage(d, ti+1, 0))
	}
	return m.pos
}

// Previous moves back one page within the current topic. It reports false
// when there is no previous page.
func (m *Machine) Previous() (Position, bool) {
	if m.pos.Kind != KindPage || m.pos.Page == 0 {
		return m.pos, false
	}
	m.set(PageAt(m.pos.Domain, m.pos.Topic, m.pos.Page-1))
	return m.pos, true
}

// Answer records an answer for the current question. Only the first answer
// per question counts; later calls and invalid options report false.
func (m *Machine) Answer(selected int) (AnswerResult, bool) {
	if m.pos.Kind != KindQuiz || m.answered || m.finished {
		return AnswerResult{}, false
	}
	q, ok := m.currentQuestion()
	if !ok || selected < 0 || selected >= len(q.Options) {
		return AnswerResult{}, false
	}

	m.answered = true
	m.selected = selected

	res := m.result(m.pos.Domain, m.pos.Topic)
	res.Total++
	correct := q.IsCorrect(selected)
	if correct {
		res.Correct++
	}

	return AnswerResult{
		Selected:     selected,
		CorrectIndex: q.CorrectIndex,
		Correct:      correct,
		Explanation:  q.Explanation,
	}, true
}

// NextQuestion moves to the following question. After the last question the
// quiz is marked complete and an Advance to the next topic is returned; the
// caller applies it, usually after a short delay.
func (m *Machine) NextQuestion() (Position, *Advance) {
	if m.pos.Kind != KindQuiz {
		return m.pos, nil
	}
	if m.finished {
		return m.pos, m.pending
	}

	t, _ := m.c.Topic(m.pos.Domain, m.pos.Topic)
	if next := m.pos.Question + 1; next < len(t.Quiz.Questions) {
		m.set(QuizAt(m.pos.Domain, m.pos.Topic, next))
		return m.pos, nil
	}

	m.result(m.pos.Domain, m.pos.Topic).Completed = true
	m.gen++
	m.finished = true
	m.pending = &Advance{Target: m.resolvePage(m.pos.Domain, m.pos.Topic+1, 0), gen: m.gen}
	return m.pos, m.pending
}

// Apply performs a pending advance. It reports false if the cursor has moved
// since the advance was issued.
func (m *Machine) Apply(a *Advance) (Position, bool) {
	if a == nil || !m.finished || a.gen != m.gen {
		return m.pos, false
	}
	m.set(a.Target)
	return m.pos, true
}

// Result returns the quiz result for a topic, if the quiz was started.
func (m *Machine) Result(domain, topic int) (QuizResult, bool) {
	r, ok := m.results[QuizKey(domain, topic)]
	if !ok {
		return QuizResult{}, false
	}
	return *r, true
}

// Results returns a copy of all quiz results keyed by "domain-topic".
func (m *Machine) Results() map[string]QuizResult {
	out := make(map[string]QuizResult, len(m.results))
	for k, r := range m.results {
		out[k] = *r
	}
	return out
}

// Progress computes completion for the current cursor.
func (m *Machine) Progress() Progress {
	return Compute(m.c, m.pos, m.Results())
}

func (m *Machine) set(p Position) {
	m.pos = p
	m.answered = false
	m.selected = -1
	m.finished = false
	m.pending = nil
	m.gen++
}

func (m *Machine) enterQuiz(domain, topic int, t *curriculum.Topic) {
	res := m.result(domain, topic)
	if len(t.Quiz.Questions) == 0 {
		res.Completed = true
		m.set(m.resolvePage(domain, topic+1, 0))
		return
	}
	m.set(QuizAt(domain, topic, 0))
}

// result returns the result for a topic, creating it on first use.
func (m *Machine) result(domain, topic int) *QuizResult {
	key := QuizKey(domain, topic)
	r, ok := m.results[key]
	if !ok {
		r = &QuizResult{Key: key}
		m.results[key] = r
	}
	return r
}

func (m *Machine) currentQuestion() (curriculum.Question, bool) {
	t, ok := m.c.Topic(m.pos.Domain, m.pos.Topic)
	if !ok || t.Quiz == nil {
		return curriculum.Question{}, false
	}
	qs := t.Quiz.Questions
	if m.pos.Question < 0 || m.pos.Question >= len(qs) {
		return curriculum.Question{}, false
	}
	return qs[m.pos.Question], true
}

// resolvePage finds the first existing page at or after (domain, topic, page).
// Every iteration moves to a later topic, so the loop runs at most once per
// remaining topic and domain.
func (m *Machine) resolvePage(domain, topic, page int) Position {
	d, t, p := max(domain, 0), max(topic, 0), max(page, 0)
	for remaining := m.span(); remaining >= 0; remaining-- {
		if d >= len(m.c.Domains) {
			return Completion()
		}
		topics := m.c.Domains[d].Topics
		switch {
		case t >= len(topics):
			d, t, p = d+1, 0, 0
		case p >= len(topics[t].Pages):
			t, p = t+1, 0
		default:
			return PageAt(d, t, p)
		}
	}
	return Completion()
}

// span bounds resolvePage: one step per topic plus one per domain.
func (m *Machine) span() int {
	n := len(m.c.Domains)
	for _, d := range m.c.Domains {
		n += len(d.Topics)
	}
	return n
}
