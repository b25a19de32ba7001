package driven

import "context"

// AnswerGenerator composes a natural-language answer from a question and
// the assembled retrieval context. It never fails outward: implementations
// degrade to a canned or extractive answer instead of returning an error.
type AnswerGenerator interface {
	Generate(ctx context.Context, question, contextText string) string
}
