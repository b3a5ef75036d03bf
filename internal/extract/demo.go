package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"unicode/utf8"
)

const systemInstruction = `You extract structured entities from text. Respond with a single JSON object of the form {"extractions": [{"extraction_class": string, "extraction_text": string, "attributes": object}]} and nothing else.`

// DemoPrompt is the task description of the bundled demo.
const DemoPrompt = `Extract people's names, AI models, products, and company names in order of appearance.
Use exact text for extractions. Do not paraphrase or overlap entities.
Provide meaningful related entities for each entity to add context.`

// SampleText is the paragraph the demo extracts from.
const SampleText = `Shortly after Hunter Lightman joined OpenAI as a researcher in 2022, he watched his
colleagues launch ChatGPT, one of the fastest-growing products ever. The breakthrough
came from the GPT-4 model that Sam Altman's team had been developing. Meanwhile,
Demis Hassabis at DeepMind was working on Gemini, Google's answer to ChatGPT.
Elon Musk, who had previously co-founded OpenAI, launched his own AI company called xAI
with their Grok model. Meta's Mark Zuckerberg recruited five of the o1 researchers
to work on Meta's new superintelligence-focused unit developing the Llama models.
`

func DemoExamples() []Example {
	return []Example{{
		Text: "David Ha from Sakana AI labs has trained many models" +
			" including the early 'WM1' and his company makes a product called 'AI Scientist'.",
		Extractions: []Extraction{
			{Class: "person_name", Text: "David Ha", Attributes: map[string]interface{}{"company": "Sakana AI"}},
			{Class: "company_name", Text: "Sakana AI", Attributes: map[string]interface{}{"employee": "David Ha"}},
			{Class: "ai_model", Text: "WM1", Attributes: map[string]interface{}{"company": "Sakana AI"}},
			{Class: "product", Text: "'AI Scientist'", Attributes: map[string]interface{}{"company": "Sakana AI"}},
		},
	}}
}

// BuildPrompt renders the task description, the few-shot examples as Q/A
// pairs and finally the question for text.
func BuildPrompt(description string, examples []Example, text string) string {
	var sb strings.Builder
	sb.WriteString(strings.TrimSpace(description))
	sb.WriteString("\n\n")

	if len(examples) > 0 {
		sb.WriteString("Examples\n")
		for _, ex := range examples {
			answer := extractionPayload{Extractions: make([]Extraction, len(ex.Extractions))}
			for i, e := range ex.Extractions {
				answer.Extractions[i] = Extraction{Class: e.Class, Text: e.Text, Attributes: e.Attributes}
			}
			encoded, _ := json.Marshal(answer)
			fmt.Fprintf(&sb, "Q: %s\nA: %s\n\n", ex.Text, encoded)
		}
	}

	fmt.Fprintf(&sb, "Q: %s\nA: ", text)
	return sb.String()
}

// RunDemo extracts entities from SampleText with the demo prompt and prints
// them grouped by class. An extraction failure is reported on w and
// returned.
func RunDemo(ctx context.Context, ex Extractor, model string, w io.Writer) error {
	fmt.Fprintln(w, "CodeScribe Extraction Demo")
	fmt.Fprintln(w, strings.Repeat("=", 50))
	fmt.Fprintf(w, "Running extraction with model: %s\n", model)
	fmt.Fprintf(w, "Text length: %d characters\n", utf8.RuneCountInString(SampleText))
	fmt.Fprintln(w, strings.Repeat("-", 50))

	result, err := ex.Extract(ctx, SampleText, DemoPrompt, DemoExamples())
	if err != nil {
		fmt.Fprintf(w, "Error during extraction: %v\n", err)
		fmt.Fprintln(w, "Extraction failed")
		return err
	}

	fmt.Fprintln(w, "Extraction completed successfully!")
	Display(w, result)
	return nil
}

// Display prints extractions grouped by class, with attributes and position.
func Display(w io.Writer, result *Result) {
	if result == nil || len(result.Extractions) == 0 {
		fmt.Fprintln(w, "No results to display")
		return
	}

	for _, g := range GroupByClass(result.Extractions) {
		fmt.Fprintf(w, "\n%ss Found: %d\n", title(g.Class), len(g.Extractions))
		fmt.Fprintln(w, strings.Repeat("=", 40))
		for i, e := range g.Extractions {
			fmt.Fprintf(w, "%d. %s\n", i+1, e.Text)
			if len(e.Attributes) > 0 {
				fmt.Fprintf(w, "   Attributes: %s\n", formatAttributes(e.Attributes))
			}
			fmt.Fprintf(w, "   Position: %s\n", e.Interval)
			fmt.Fprintln(w, strings.Repeat("-", 20))
		}
	}
}

// title turns "person_name" into "Person Name".
func title(class string) string {
	words := strings.Fields(strings.ReplaceAll(class, "_", " "))
	for i, word := range words {
		r, size := utf8.DecodeRuneInString(word)
		words[i] = strings.ToUpper(string(r)) + strings.ToLower(word[size:])
	}
	return strings.Join(words, " ")
}

func formatAttributes(attrs map[string]interface{}) string {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s: %v", k, attrs[k])
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
