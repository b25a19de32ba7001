// Package answer composes chat answers from retrieved context, using an
// LLM when one is configured and an extractive summary otherwise.
package answer

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Ensure Generator implements the interface.
var _ driven.AnswerGenerator = (*Generator)(nil)

// Canned answers used when nothing better can be produced.
const (
	NoContextAnswer = "I couldn't find relevant information in your documents to answer this question."
	NoMatchAnswer   = "I found some information in your documents, but I need more specific details to answer your question accurately."
)

// DefaultTimeout bounds a single LLM call.
const DefaultTimeout = 120 * time.Second

const (
	maxExtractSentences = 2
	minSentenceLen      = 15
	minQuestionWordLen  = 2
	answerMaxTokens     = 1024
	answerTemperature   = 0.2
)

const (
	defaultSystemPrompt = `You answer questions about the user's uploaded documents.
Use only the provided context. If the context does not contain the answer, say so plainly.`

	defaultAnswerPrompt = "Context:\n%s\n\nQuestion: %s\n\nAnswer:"
)

// sourceLabel matches the "From '<title>':" prefix of each context block.
var sourceLabel = regexp.MustCompile(`From '[^']*':\s*`)

// Generator implements driven.AnswerGenerator.
type Generator struct {
	llm     driven.LLMService
	prompts driven.PromptStore
	timeout time.Duration
	log     *logger.Logger
}

// Option configures a Generator.
type Option func(*Generator)

// WithLLM routes answers through an LLM. A nil service keeps the extractive path.
func WithLLM(llm driven.LLMService) Option {
	return func(g *Generator) { g.llm = llm }
}

// WithPromptStore supplies user-editable prompt templates.
func WithPromptStore(store driven.PromptStore) Option {
	return func(g *Generator) { g.prompts = store }
}

// WithTimeout bounds each LLM call. Non-positive values keep the default.
func WithTimeout(d time.Duration) Option {
	return func(g *Generator) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log *logger.Logger) Option {
	return func(g *Generator) { g.log = logger.OrNop(log) }
}

// NewGenerator creates an answer generator.
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{
		timeout: DefaultTimeout,
		log:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.log = g.log.With("component", "answer")
	return g
}

// SetPromptStore implements driven.PromptStoreAware.
func (g *Generator) SetPromptStore(store driven.PromptStore) {
	g.prompts = store
}

// Generate returns an answer for question grounded in contextText.
// LLM failures are logged and answered extractively instead.
func (g *Generator) Generate(ctx context.Context, question, contextText string) string {
	if strings.TrimSpace(contextText) == "" {
		return NoContextAnswer
	}

	if g.llm != nil {
		text, err := g.generateLLM(ctx, question, contextText)
		if err == nil {
			return text
		}
		g.log.Warn("LLM answer failed, using extractive answer",
			"model", g.llm.ModelName(),
			"error", err,
		)
	}

	return Extract(question, contextText)
}

func (g *Generator) generateLLM(ctx context.Context, question, contextText string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	messages := []driven.ChatMessage{
		{Role: "system", Content: g.systemPrompt()},
		{Role: "user", Content: fmt.Sprintf(g.answerPrompt(), contextText, question)},
	}

	start := time.Now()
	text, err := g.llm.Chat(ctx, messages, driven.ChatOptions{
		MaxTokens:   answerMaxTokens,
		Temperature: answerTemperature,
	})
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("empty completion")
	}

	g.log.Debug("LLM answer generated",
		"model", g.llm.ModelName(),
		"duration", time.Since(start),
		"chars", len(text),
	)
	return text, nil
}

func (g *Generator) systemPrompt() string {
	if p := g.loadPrompt(driven.PromptAnswerSystem); p != "" {
		return p
	}
	return defaultSystemPrompt
}

// answerPrompt returns the user template, rejecting edits that broke the
// two %s placeholders.
func (g *Generator) answerPrompt() string {
	p := g.loadPrompt(driven.PromptAnswer)
	if strings.Count(p, "%s") != 2 || strings.Count(p, "%") != 2 {
		if p != "" {
			g.log.Warn("ignoring answer prompt without exactly two %s placeholders")
		}
		return defaultAnswerPrompt
	}
	return p
}

func (g *Generator) loadPrompt(name string) string {
	if g.prompts == nil {
		return ""
	}
	p, err := g.prompts.Load(name)
	if err != nil {
		g.log.Debug("prompt unavailable", "name", name, "error", err)
		return ""
	}
	return strings.TrimSpace(p)
}

// Extract builds an answer from the context sentences that share the most
// words with the question. Source labels are dropped, sentences shorter
// than 15 characters are ignored, and at most two sentences are returned.
// With no overlap the first sentence is used.
func Extract(question, contextText string) string {
	clean := sourceLabel.ReplaceAllString(contextText, "")

	var sentences []string
	for _, s := range strings.Split(clean, ".") {
		s = strings.Join(strings.Fields(s), " ")
		if len(s) > minSentenceLen {
			sentences = append(sentences, s)
		}
	}
	if len(sentences) == 0 {
		return NoMatchAnswer
	}

	words := questionWords(question)
	type scored struct {
		text    string
		overlap int
	}
	var ranked []scored
	for _, s := range sentences {
		if n := overlap(words, s); n > 0 {
			ranked = append(ranked, scored{s, n})
		}
	}
	if len(ranked) == 0 {
		return sentences[0] + "."
	}

	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].overlap > ranked[j].overlap })
	top := make([]string, 0, maxExtractSentences)
	for i := 0; i < len(ranked) && i < maxExtractSentences; i++ {
		top = append(top, ranked[i].text)
	}
	return strings.Join(top, ". ") + "."
}

func questionWords(question string) map[string]struct{} {
	words := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(question)) {
		w = strings.Trim(w, "?!.,;:\"'()")
		if len(w) > minQuestionWordLen {
			words[w] = struct{}{}
		}
	}
	return words
}

func overlap(words map[string]struct{}, sentence string) int {
	seen := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(sentence)) {
		w = strings.Trim(w, "?!.,;:\"'()")
		if _, ok := words[w]; ok {
			seen[w] = struct{}{}
		}
	}
	return len(seen)
}
