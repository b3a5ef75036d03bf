package extract

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"
)

// CharInterval is a half-open [Start, End) range of character (rune)
// positions in the source text.
type CharInterval struct {
	Start int `json:"start_pos"`
	End   int `json:"end_pos"`
}

func (c *CharInterval) String() string {
	if c == nil {
		return "not found in source text"
	}
	return fmt.Sprintf("%d-%d", c.Start, c.End)
}

type Extraction struct {
	Class      string                 `json:"extraction_class"`
	Text       string                 `json:"extraction_text"`
	Attributes map[string]interface{} `json:"attributes,omitempty"`
	Interval   *CharInterval          `json:"char_interval,omitempty"`
}

// Example is a few-shot demonstration: a text and the extractions expected
// from it.
type Example struct {
	Text        string
	Extractions []Extraction
}

type Result struct {
	Text        string
	Extractions []Extraction
}

// Extractor pulls structured entities out of free text.
type Extractor interface {
	Extract(ctx context.Context, text, prompt string, examples []Example) (*Result, error)
}

// Align sets each extraction's Interval to the first exact occurrence of its
// text after the end of the previous match. Extractions that cannot be found
// keep a nil Interval and do not move the cursor.
func Align(text string, extractions []Extraction) {
	cursor := 0
	for i := range extractions {
		extractions[i].Interval = nil
		needle := extractions[i].Text
		if needle == "" {
			continue
		}
		idx := strings.Index(text[cursor:], needle)
		if idx < 0 {
			continue
		}
		start := cursor + idx
		end := start + len(needle)
		runeStart := utf8.RuneCountInString(text[:start])
		extractions[i].Interval = &CharInterval{
			Start: runeStart,
			End:   runeStart + utf8.RuneCountInString(needle),
		}
		cursor = end
	}
}

// Group is every extraction of one class, in source order.
type Group struct {
	Class       string
	Extractions []Extraction
}

// GroupByClass buckets extractions by class, ordering groups by the first
// time each class appears.
func GroupByClass(extractions []Extraction) []Group {
	var groups []Group
	index := map[string]int{}
	for _, e := range extractions {
		i, ok := index[e.Class]
		if !ok {
			i = len(groups)
			index[e.Class] = i
			groups = append(groups, Group{Class: e.Class})
		}
		groups[i].Extractions = append(groups[i].Extractions, e)
	}
	return groups
}
