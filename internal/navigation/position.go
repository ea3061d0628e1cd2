// Package navigation sequences a learner through a curriculum: pages, topic
// quizzes and the final completion screen.
package navigation

import (
	"fmt"
	"math"
)

// Kind is the kind of screen the cursor points at.
type Kind int

const (
	KindPage Kind = iota
	KindQuiz
	KindCompletion
)

func (k Kind) String() string {
	switch k {
	case KindPage:
		return "page"
	case KindQuiz:
		return "quiz"
	case KindCompletion:
		return "completion"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// MarshalText encodes the kind as its name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind name.
func (k *Kind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "page":
		*k = KindPage
	case "quiz":
		*k = KindQuiz
	case "completion":
		*k = KindCompletion
	default:
		return fmt.Errorf("unknown position kind %q", text)
	}
	return nil
}

// Position is the cursor within a curriculum. Page is meaningful for
// KindPage, Question for KindQuiz.
type Position struct {
	Kind     Kind `json:"kind"`
	Domain   int  `json:"domain"`
	Topic    int  `json:"topic"`
	Page     int  `json:"page"`
	Question int  `json:"question"`
}

// PageAt returns a page position.
func PageAt(domain, topic, page int) Position {
	return Position{Kind: KindPage, Domain: domain, Topic: topic, Page: page}
}

// QuizAt returns a quiz position.
func QuizAt(domain, topic, question int) Position {
	return Position{Kind: KindQuiz, Domain: domain, Topic: topic, Question: question}
}

// Completion returns the terminal position.
func Completion() Position {
	return Position{Kind: KindCompletion}
}

// QuizKey returns the results key of the position's topic.
func (p Position) QuizKey() string {
	return QuizKey(p.Domain, p.Topic)
}

func (p Position) String() string {
	switch p.Kind {
	case KindPage:
		return fmt.Sprintf("Page(%d,%d,%d)", p.Domain, p.Topic, p.Page)
	case KindQuiz:
		return fmt.Sprintf("Quiz(%d,%d,%d)", p.Domain, p.Topic, p.Question)
	default:
		return "Completion"
	}
}

// QuizKey formats the "domain-topic" key used for quiz results.
func QuizKey(domain, topic int) string {
	return fmt.Sprintf("%d-%d", domain, topic)
}

// QuizResult accumulates answers for one topic quiz.
type QuizResult struct {
	Key       string `json:"key"`
	Correct   int    `json:"correctCount"`
	Total     int    `json:"totalAnswered"`
	Completed bool   `json:"completed"`
}

// Percent returns the rounded share of correct answers, 0 when nothing was answered.
func (r QuizResult) Percent() int {
	if r.Total == 0 {
		return 0
	}
	return int(math.Round(float64(r.Correct) / float64(r.Total) * 100))
}

// AnswerResult describes the outcome of answering the current question.
type AnswerResult struct {
	Selected     int    `json:"selected"`
	CorrectIndex int    `json:"correctIndex"`
	Correct      bool   `json:"correct"`
	Explanation  string `json:"explanation,omitempty"`
}

// Request is an external navigation address. Nil fields are absent.
type Request struct {
	Domain *int
	Topic  *int
	Page   *int
	Quiz   bool
}
