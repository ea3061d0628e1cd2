package curriculum

import (
	"encoding/json"
	"fmt"
)

// DefaultDomainOrder is used for guideline domains without an explicit order.
const DefaultDomainOrder = 999

// Curriculum is the fully loaded exam content. It is built once by Load and
// must be treated as read-only afterwards.
type Curriculum struct {
	Guideline   Guideline `json:"guideline"`
	Domains     []Domain  `json:"domains"`
	Definitions *Glossary `json:"definitions"`
}

// Guideline describes the exam and declares which domains make it up.
type Guideline struct {
	Exam        string            `json:"exam"`
	Description string            `json:"description"`
	StudyTips   []string          `json:"studyTips"`
	Domains     []GuidelineDomain `json:"domains"`
}

// GuidelineDomain is a domain reference inside the guideline.
type GuidelineDomain struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Order *int   `json:"order,omitempty"`
}

// Domain is an exam domain with its topics in study order.
type Domain struct {
	ID     string  `json:"id"`
	Title  string  `json:"title"`
	Order  int     `json:"order"`
	Topics []Topic `json:"topics"`
}

// Topic is a unit of study inside a domain.
type Topic struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	DomainTitle string `json:"domain"`
	Pages       []Page `json:"pages"`
	Quiz        *Quiz  `json:"quiz"`
}

// HasQuiz reports whether the topic ends with a quiz.
func (t Topic) HasQuiz() bool {
	return t.Quiz != nil
}

// Page is a single screen of study content.
type Page struct {
	ID     string  `json:"id"`
	Title  string  `json:"title"`
	Blocks []Block `json:"blocks"`
}

// Quiz is the multiple-choice check at the end of a topic.
type Quiz struct {
	Questions []Question `json:"questions"`
}

// Question is a single multiple-choice question.
type Question struct {
	Text         string   `json:"question"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correct"`
	Explanation  string   `json:"explanation,omitempty"`
}

// IsCorrect reports whether the selected option is the right answer.
func (q Question) IsCorrect(selected int) bool {
	return selected == q.CorrectIndex
}

// BlockType identifies a content block variant.
type BlockType string

const (
	BlockHeading   BlockType = "heading"
	BlockParagraph BlockType = "paragraph"
	BlockList      BlockType = "list"
	BlockCode      BlockType = "code"
	BlockFallback  BlockType = "fallback"
)

// Block is one piece of page content. Only the fields relevant to Type are set.
// Blocks of an unknown type keep their original JSON in Raw.
type Block struct {
	Type    BlockType
	Text    string
	Ordered bool
	Items   []string
	Raw     json.RawMessage
}

type blockJSON struct {
	Type    string   `json:"type"`
	Text    string   `json:"text,omitempty"`
	Ordered bool     `json:"ordered,omitempty"`
	Items   []string `json:"items,omitempty"`
}

// UnmarshalJSON decodes a block, falling back to BlockFallback for unknown
// types and bare strings.
func (b *Block) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*b = Block{Type: BlockFallback, Text: s, Raw: append(json.RawMessage(nil), data...)}
		return nil
	}

	var aux struct {
		Type    string          `json:"type"`
		Text    json.RawMessage `json:"text"`
		Ordered bool            `json:"ordered"`
		Items   []string        `json:"items"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return fmt.Errorf("decode block: %w", err)
	}

	var text string
	if len(aux.Text) > 0 {
		// Non-string text is tolerated; the block becomes a fallback.
		if err := json.Unmarshal(aux.Text, &text); err != nil {
			*b = Block{Type: BlockFallback, Raw: append(json.RawMessage(nil), data...)}
			return nil
		}
	}

	switch BlockType(aux.Type) {
	case BlockHeading, BlockParagraph, BlockCode:
		*b = Block{Type: BlockType(aux.Type), Text: text}
	case BlockList:
		*b = Block{Type: BlockList, Ordered: aux.Ordered, Items: aux.Items}
	default:
		*b = Block{Type: BlockFallback, Text: text, Raw: append(json.RawMessage(nil), data...)}
	}
	return nil
}

// MarshalJSON encodes the block in the content resource shape.
func (b Block) MarshalJSON() ([]byte, error) {
	if b.Type == BlockFallback && len(b.Raw) > 0 {
		return b.Raw, nil
	}
	out := blockJSON{Type: string(b.Type), Text: b.Text}
	if b.Type == BlockList {
		out = blockJSON{Type: string(b.Type), Ordered: b.Ordered, Items: b.Items}
		if out.Items == nil {
			out.Items = []string{}
		}
	}
	return json.Marshal(out)
}

// Stats summarises the size of a curriculum.
type Stats struct {
	Domains   int `json:"domains"`
	Topics    int `json:"topics"`
	Pages     int `json:"pages"`
	Quizzes   int `json:"quizzes"`
	Questions int `json:"questions"`
	Terms     int `json:"terms"`
}

// Stats counts the loaded content.
func (c *Curriculum) Stats() Stats {
	var s Stats
	s.Domains = len(c.Domains)
	for _, d := range c.Domains {
		s.Topics += len(d.Topics)
		for _, t := range d.Topics {
			s.Pages += len(t.Pages)
			if t.Quiz != nil {
				s.Quizzes++
				s.Questions += len(t.Quiz.Questions)
			}
		}
	}
	if c.Definitions != nil {
		s.Terms = c.Definitions.Len()
	}
	return s
}

// Topic returns the topic at the given indices.
func (c *Curriculum) Topic(domain, topic int) (*Topic, bool) {
	if domain < 0 || domain >= len(c.Domains) {
		return nil, false
	}
	d := &c.Domains[domain]
	if topic < 0 || topic >= len(d.Topics) {
		return nil, false
	}
	return &d.Topics[topic], true
}
