// Package render turns navigation state into a view model that a client can
// draw without knowing the curriculum layout.
package render

import (
	"github.com/p-n-ai/pai-study/internal/navigation"
)

// Next button labels.
const (
	LabelNext      = "Next →"
	LabelQuiz      = "Proceed to Quiz →"
	LabelNextTopic = "Next Topic →"
)

// NextAction is what the page's next button does.
type NextAction string

const (
	ActionNextPage  NextAction = "page"
	ActionQuiz      NextAction = "quiz"
	ActionNextTopic NextAction = "topic"
)

// View is everything a client needs to draw the current screen. Exactly one
// of Page, Quiz and Completion is set, matching Kind.
type View struct {
	Kind       navigation.Kind     `json:"kind"`
	Position   navigation.Position `json:"position"`
	Page       *PageView           `json:"page,omitempty"`
	Quiz       *QuizView           `json:"quiz,omitempty"`
	Completion *CompletionView     `json:"completion,omitempty"`
	Sidebar    []SidebarDomain     `json:"sidebar"`
	Progress   ProgressView        `json:"progress"`
}

// PageView is a content page.
type PageView struct {
	Title        string     `json:"title"`
	PageTitle    string     `json:"pageTitle"`
	Body         string     `json:"body"`
	PageNumber   int        `json:"pageNumber"`
	TotalPages   int        `json:"totalPages"`
	ShowPrevious bool       `json:"showPrevious"`
	NextLabel    string     `json:"nextLabel"`
	NextAction   NextAction `json:"nextAction"`
}

// QuizView is the current quiz question.
type QuizView struct {
	Topic       string   `json:"topic"`
	Question    string   `json:"question"`
	Number      int      `json:"number"`
	Total       int      `json:"total"`
	Options     []Option `json:"options"`
	Answered    bool     `json:"answered"`
	Explanation string   `json:"explanation,omitempty"`
	Finished    bool     `json:"finished"`
}

// Option is one answer choice. Selected, Correct and Incorrect are only set
// once the question has been answered.
type Option struct {
	Index     int    `json:"index"`
	Text      string `json:"text"`
	Selected  bool   `json:"selected"`
	Correct   bool   `json:"correct"`
	Incorrect bool   `json:"incorrect"`
}

// CompletionView summarises quiz results at the end of the course.
type CompletionView struct {
	Results []ResultLine `json:"results"`
}

// ResultLine is one answered quiz.
type ResultLine struct {
	Domain  string `json:"domain"`
	Topic   string `json:"topic"`
	Correct int    `json:"correct"`
	Total   int    `json:"total"`
	Percent int    `json:"percent"`
	Summary string `json:"summary"`
}

// SidebarDomain is a domain heading in the outline.
type SidebarDomain struct {
	Index  int            `json:"index"`
	Title  string         `json:"title"`
	Topics []SidebarTopic `json:"topics"`
}

// SidebarTopic is a topic link in the outline.
type SidebarTopic struct {
	Domain    int    `json:"domain"`
	Topic     int    `json:"topic"`
	Title     string `json:"title"`
	Active    bool   `json:"active"`
	Completed bool   `json:"completed"`
}

// ProgressView is the progress bar.
type ProgressView struct {
	Completed float64 `json:"completed"`
	Total     int     `json:"total"`
	Percent   float64 `json:"percent"`
	Label     string  `json:"label"`
}
