package render

import (
	"fmt"
	"strings"

	"github.com/p-n-ai/pai-study/internal/curriculum"
	"github.com/p-n-ai/pai-study/internal/navigation"
	"github.com/p-n-ai/pai-study/internal/tooltip"
)

// Feedback shown when a question has no explanation.
const (
	feedbackCorrect   = "Correct! Well done."
	feedbackIncorrect = "The correct answer is: %s"
)

// Render builds the view for the machine's current state. A nil annotator
// leaves page text unannotated.
func Render(m *navigation.Machine, a *tooltip.Annotator) View {
	c := m.Curriculum()
	pos := m.Position()
	results := m.Results()
	progress := navigation.Compute(c, pos, results)

	v := View{
		Kind:     pos.Kind,
		Position: pos,
		Sidebar:  sidebar(c, pos, results),
		Progress: ProgressView{
			Completed: progress.Completed,
			Total:     progress.Total,
			Percent:   progress.Percent(),
			Label:     progress.Label(),
		},
	}

	switch pos.Kind {
	case navigation.KindPage:
		v.Page = pageView(c, pos, a)
	case navigation.KindQuiz:
		v.Quiz = quizView(c, m)
	default:
		v.Completion = completionView(c, results)
	}
	return v
}

func pageView(c *curriculum.Curriculum, pos navigation.Position, a *tooltip.Annotator) *PageView {
	d := c.Domains[pos.Domain]
	t := d.Topics[pos.Topic]
	page := t.Pages[pos.Page]

	pv := &PageView{
		Title:        d.Title + " - " + t.Title,
		PageTitle:    page.Title,
		Body:         Blocks(page.Blocks, a),
		PageNumber:   pos.Page + 1,
		TotalPages:   len(t.Pages),
		ShowPrevious: pos.Page > 0,
	}
	switch {
	case pos.Page < len(t.Pages)-1:
		pv.NextLabel, pv.NextAction = LabelNext, ActionNextPage
	case t.HasQuiz():
		pv.NextLabel, pv.NextAction = LabelQuiz, ActionQuiz
	default:
		pv.NextLabel, pv.NextAction = LabelNextTopic, ActionNextTopic
	}
	return pv
}

// Blocks renders page content as HTML. Paragraphs and list items receive
// tooltip annotations; headings and code are emitted as written.
func Blocks(blocks []curriculum.Block, a *tooltip.Annotator) string {
	var b strings.Builder
	for _, block := range blocks {
		switch block.Type {
		case curriculum.BlockHeading:
			fmt.Fprintf(&b, "<h3>%s</h3>", block.Text)
		case curriculum.BlockParagraph:
			fmt.Fprintf(&b, "<p>%s</p>", a.Annotate(block.Text))
		case curriculum.BlockList:
			tag := "ul"
			if block.Ordered {
				tag = "ol"
			}
			fmt.Fprintf(&b, "<%s>", tag)
			for _, item := range block.Items {
				fmt.Fprintf(&b, "<li>%s</li>", a.Annotate(item))
			}
			fmt.Fprintf(&b, "</%s>", tag)
		case curriculum.BlockCode:
			fmt.Fprintf(&b, "<code>%s</code>", block.Text)
		default:
			fmt.Fprintf(&b, "<p>%s</p>", block.Text)
		}
	}
	return b.String()
}

func quizView(c *curriculum.Curriculum, m *navigation.Machine) *QuizView {
	pos := m.Position()
	t := c.Domains[pos.Domain].Topics[pos.Topic]
	q := t.Quiz.Questions[pos.Question]
	selected, answered := m.Answered()

	qv := &QuizView{
		Topic:    t.Title,
		Question: q.Text,
		Number:   pos.Question + 1,
		Total:    len(t.Quiz.Questions),
		Options:  make([]Option, len(q.Options)),
		Answered: answered,
		Finished: m.Finished(),
	}
	for i, text := range q.Options {
		opt := Option{Index: i, Text: text}
		if answered {
			opt.Selected = i == selected
			opt.Correct = i == q.CorrectIndex
			opt.Incorrect = opt.Selected && !opt.Correct
		}
		qv.Options[i] = opt
	}

	if answered {
		switch {
		case q.Explanation != "":
			qv.Explanation = q.Explanation
		case q.IsCorrect(selected):
			qv.Explanation = feedbackCorrect
		default:
			qv.Explanation = fmt.Sprintf(feedbackIncorrect, q.Options[q.CorrectIndex])
		}
	}
	return qv
}

func completionView(c *curriculum.Curriculum, results map[string]navigation.QuizResult) *CompletionView {
	cv := &CompletionView{Results: []ResultLine{}}
	for di, d := range c.Domains {
		for ti, t := range d.Topics {
			r, ok := results[navigation.QuizKey(di, ti)]
			if !ok || r.Total == 0 {
				continue
			}
			cv.Results = append(cv.Results, ResultLine{
				Domain:  d.Title,
				Topic:   t.Title,
				Correct: r.Correct,
				Total:   r.Total,
				Percent: r.Percent(),
				Summary: fmt.Sprintf("%s - %s: %d/%d correct (%d%%)", d.Title, t.Title, r.Correct, r.Total, r.Percent()),
			})
		}
	}
	return cv
}

func sidebar(c *curriculum.Curriculum, pos navigation.Position, results map[string]navigation.QuizResult) []SidebarDomain {
	out := make([]SidebarDomain, len(c.Domains))
	for di, d := range c.Domains {
		sd := SidebarDomain{Index: di, Title: d.Title, Topics: make([]SidebarTopic, len(d.Topics))}
		for ti, t := range d.Topics {
			sd.Topics[ti] = SidebarTopic{
				Domain:    di,
				Topic:     ti,
				Title:     t.Title,
				Active:    pos.Kind == navigation.KindPage && pos.Domain == di && pos.Topic == ti,
				Completed: results[navigation.QuizKey(di, ti)].Completed,
			}
		}
		out[di] = sd
	}
	return out
}
