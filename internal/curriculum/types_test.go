package curriculum_test

import (
	"encoding/json"
	"testing"

	"github.com/p-n-ai/pai-study/internal/curriculum"
)

func TestBlock_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantType curriculum.BlockType
		wantText string
	}{
		{"heading", `{"type":"heading","text":"Intro"}`, curriculum.BlockHeading, "Intro"},
		{"paragraph", `{"type":"paragraph","text":"Body"}`, curriculum.BlockParagraph, "Body"},
		{"code", `{"type":"code","text":"ls -la"}`, curriculum.BlockCode, "ls -la"},
		{"unknown type", `{"type":"callout","text":"Note"}`, curriculum.BlockFallback, "Note"},
		{"bare string", `"just text"`, curriculum.BlockFallback, "just text"},
		{"non-string text", `{"type":"paragraph","text":42}`, curriculum.BlockFallback, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var b curriculum.Block
			if err := json.Unmarshal([]byte(tt.input), &b); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			if b.Type != tt.wantType {
				t.Errorf("Type = %q, want %q", b.Type, tt.wantType)
			}
			if b.Text != tt.wantText {
				t.Errorf("Text = %q, want %q", b.Text, tt.wantText)
			}
		})
	}
}

func TestBlock_List(t *testing.T) {
	var b curriculum.Block
	if err := json.Unmarshal([]byte(`{"type":"list","ordered":true,"items":["a","b"]}`), &b); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if b.Type != curriculum.BlockList || !b.Ordered || len(b.Items) != 2 {
		t.Errorf("list block = %+v", b)
	}

	out, err := json.Marshal(b)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(out) != `{"type":"list","ordered":true,"items":["a","b"]}` {
		t.Errorf("Marshal() = %s", out)
	}
}

func TestBlock_FallbackKeepsRawJSON(t *testing.T) {
	raw := `{"type":"callout","text":"Note","level":2}`
	var b curriculum.Block
	if err := json.Unmarshal([]byte(raw), &b); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	out, err := json.Marshal(b)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(out) != raw {
		t.Errorf("Marshal() = %s, want %s", out, raw)
	}
}

func TestCurriculum_Topic(t *testing.T) {
	c := &curriculum.Curriculum{Domains: []curriculum.Domain{
		{ID: "d", Topics: []curriculum.Topic{{ID: "t"}}},
	}}

	if topic, ok := c.Topic(0, 0); !ok || topic.ID != "t" {
		t.Errorf("Topic(0,0) = %v, %v", topic, ok)
	}
	for _, idx := range [][2]int{{1, 0}, {0, 1}, {-1, 0}, {0, -1}} {
		if _, ok := c.Topic(idx[0], idx[1]); ok {
			t.Errorf("Topic(%d,%d) should not be found", idx[0], idx[1])
		}
	}
}
