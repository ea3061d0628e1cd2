package navigation

import (
	"fmt"
	"math"

	"github.com/p-n-ai/pai-study/internal/curriculum"
)

// Progress is the learner's completion measured in units: one per page and
// one per quiz.
type Progress struct {
	Completed float64 `json:"completed"`
	Total     int     `json:"total"`
}

// Compute derives progress from the cursor and quiz results.
//
// Topics before the cursor count in full. The topic being paged through
// counts the pages before the current one. On a quiz screen the topic's pages
// count in full and the quiz counts half until it is completed. Completion
// counts every page; quizzes count only when completed.
func Compute(c *curriculum.Curriculum, pos Position, results map[string]QuizResult) Progress {
	var p Progress
	if c == nil {
		return p
	}

	for di, d := range c.Domains {
		for ti, t := range d.Topics {
			pages := len(t.Pages)
			p.Total += pages

			current := di == pos.Domain && ti == pos.Topic
			switch {
			case pos.Kind == KindCompletion || di < pos.Domain || (di == pos.Domain && ti < pos.Topic):
				p.Completed += float64(pages)
			case current && pos.Kind == KindQuiz:
				p.Completed += float64(pages)
			case current:
				p.Completed += float64(min(pos.Page, pages))
			}

			if t.Quiz == nil {
				continue
			}
			p.Total++
			switch r := results[QuizKey(di, ti)]; {
			case r.Completed:
				p.Completed++
			case current && pos.Kind == KindQuiz:
				p.Completed += 0.5
			}
		}
	}
	return p
}

// Percent returns completion as a percentage, 0 for an empty curriculum.
func (p Progress) Percent() float64 {
	if p.Total == 0 {
		return 0
	}
	return p.Completed / float64(p.Total) * 100
}

// Ordinal is the 1-based number of the section being worked on.
func (p Progress) Ordinal() int {
	return int(math.Floor(p.Completed)) + 1
}

// Label renders the progress counter shown to the learner.
func (p Progress) Label() string {
	return fmt.Sprintf("Progress: %d of %d sections", p.Ordinal(), p.Total)
}
