package answer

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/logger"
)

type stubLLM struct {
	reply    string
	err      error
	block    bool
	messages []driven.ChatMessage
}

func (s *stubLLM) Generate(context.Context, string, driven.GenerateOptions) (string, error) {
	return s.reply, s.err
}

func (s *stubLLM) Chat(ctx context.Context, messages []driven.ChatMessage, _ driven.ChatOptions) (string, error) {
	s.messages = messages
	if s.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return s.reply, s.err
}

func (s *stubLLM) ModelName() string           { return "stub" }
func (s *stubLLM) Ping(context.Context) error { return nil }
func (s *stubLLM) Close() error               { return nil }

type stubPrompts map[string]string

func (p stubPrompts) Load(name string) (string, error) {
	v, ok := p[name]
	if !ok {
		return "", errors.New("missing")
	}
	return v, nil
}

func (p stubPrompts) Reload() {}

const sampleContext = "From 'Notes':\nMachine learning models learn patterns from data. " +
	"Cats sleep for most of the afternoon. Short one.\n\n" +
	"From 'Guide':\nSupervised learning requires labelled training data."

func TestGenerate_EmptyContext(t *testing.T) {
	g := NewGenerator()
	assert.Equal(t, NoContextAnswer, g.Generate(context.Background(), "anything", "  \n"))
}

func TestGenerate_ExtractiveWithoutLLM(t *testing.T) {
	g := NewGenerator()
	got := g.Generate(context.Background(), "What data do learning models need?", sampleContext)

	assert.Equal(t,
		"Machine learning models learn patterns from data. Supervised learning requires labelled training data.",
		got)
	assert.NotContains(t, got, "From '")
}

func TestGenerate_UsesLLMReply(t *testing.T) {
	llm := &stubLLM{reply: "  Models learn from data.  "}
	g := NewGenerator(WithLLM(llm))

	got := g.Generate(context.Background(), "What do models learn from?", sampleContext)

	assert.Equal(t, "Models learn from data.", got)
	require.Len(t, llm.messages, 2)
	assert.Equal(t, "system", llm.messages[0].Role)
	assert.Equal(t, "user", llm.messages[1].Role)
	assert.Contains(t, llm.messages[1].Content, "Context:\n"+sampleContext)
	assert.Contains(t, llm.messages[1].Content, "Question: What do models learn from?")
}

func TestGenerate_CustomPrompts(t *testing.T) {
	llm := &stubLLM{reply: "ok"}
	g := NewGenerator(WithLLM(llm), WithPromptStore(stubPrompts{
		driven.PromptAnswerSystem: "Be brief.",
		driven.PromptAnswer:       "Q=%[2]s C=%[1]s",
	}))
	// Indexed verbs are rejected; the default template is used.
	g.Generate(context.Background(), "why", "some context here")
	require.Len(t, llm.messages, 2)
	assert.Equal(t, "Be brief.", llm.messages[0].Content)
	assert.Equal(t, "Context:\nsome context here\n\nQuestion: why\n\nAnswer:", llm.messages[1].Content)

	g.SetPromptStore(stubPrompts{driven.PromptAnswer: "CTX %s / Q %s"})
	g.Generate(context.Background(), "why", "some context here")
	assert.Equal(t, defaultSystemPrompt, llm.messages[0].Content)
	assert.Equal(t, "CTX some context here / Q why", llm.messages[1].Content)
}

func TestGenerate_FallsBackOnLLMError(t *testing.T) {
	var buf bytes.Buffer
	llm := &stubLLM{err: errors.New("connection refused")}
	g := NewGenerator(WithLLM(llm), WithLogger(logger.NewWithWriter(&buf, false)))

	got := g.Generate(context.Background(), "What data do learning models need?", sampleContext)

	assert.Contains(t, got, "Machine learning models learn patterns from data")
	assert.Contains(t, buf.String(), "LLM answer failed")
}

func TestGenerate_FallsBackOnEmptyReply(t *testing.T) {
	g := NewGenerator(WithLLM(&stubLLM{reply: "   "}))
	got := g.Generate(context.Background(), "cats afternoon", sampleContext)
	assert.Equal(t, "Cats sleep for most of the afternoon.", got)
}

func TestGenerate_TimesOut(t *testing.T) {
	g := NewGenerator(WithLLM(&stubLLM{block: true}), WithTimeout(20*time.Millisecond))

	start := time.Now()
	got := g.Generate(context.Background(), "cats afternoon", sampleContext)

	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, "Cats sleep for most of the afternoon.", got)
}

func TestExtract(t *testing.T) {
	tests := []struct {
		name     string
		question string
		context  string
		want     string
	}{
		{
			name:     "no overlap returns first sentence",
			question: "zebra?",
			context:  "The quick brown fox jumps. Another long sentence follows here.",
			want:     "The quick brown fox jumps.",
		},
		{
			name:     "only short fragments",
			question: "what",
			context:  "Too short. Tiny. Nope.",
			want:     NoMatchAnswer,
		},
		{
			name:     "highest overlap first",
			question: "How do neural networks train on data?",
			context:  "Data is stored in tables on disk. Neural networks train on data with gradients.",
			want:     "Neural networks train on data with gradients. Data is stored in tables on disk.",
		},
		{
			name:     "question words of two letters ignored",
			question: "is it on",
			context:  "It is on the table today. Something else entirely here.",
			want:     "It is on the table today.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Extract(tt.question, tt.context))
		})
	}
}
