package biz_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kart-io/providentia/internal/chatbot/biz"
	"github.com/kart-io/providentia/internal/chatbot/store"
)

func passages(texts ...string) []*store.Passage {
	out := make([]*store.Passage, len(texts))
	for i, text := range texts {
		out[i] = &store.Passage{Text: text, Score: float32(len(texts) - i)}
	}
	return out
}

func TestBuildPromptGrounded(t *testing.T) {
	question := "How do I withdraw my EPF balance?"
	bundle := biz.BuildPrompt(question, passages(
		"EPF withdrawal requires Form 19.",
		"Partial withdrawal is allowed for housing.",
	))

	assert.Contains(t, bundle.FinalPrompt, question)
	assert.Contains(t, bundle.FinalPrompt, "EPF withdrawal requires Form 19.")
	assert.Contains(t, bundle.FinalPrompt, "Partial withdrawal is allowed for housing.")
	assert.Contains(t, bundle.FinalPrompt, "Context:")
	assert.Contains(t, bundle.FinalPrompt, "Answer ONLY based on the provided context")
	assert.True(t, strings.HasSuffix(bundle.FinalPrompt, "Answer:"))

	// Passages joined by the visual delimiter inside the prompt, but the
	// source context is a plain newline join in input order.
	assert.Contains(t, bundle.FinalPrompt, "Form 19.\n\n---\n\nPartial withdrawal")
	assert.Equal(t, "EPF withdrawal requires Form 19.\n\nPartial withdrawal is allowed for housing.", bundle.SourceContext)
}

func TestBuildPromptPreservesOrder(t *testing.T) {
	bundle := biz.BuildPrompt("q", passages("first", "second", "third"))

	assert.Equal(t, "first\n\nsecond\n\nthird", bundle.SourceContext)
	assert.Less(t,
		strings.Index(bundle.FinalPrompt, "first"),
		strings.Index(bundle.FinalPrompt, "second"))
	assert.Less(t,
		strings.Index(bundle.FinalPrompt, "second"),
		strings.Index(bundle.FinalPrompt, "third"))
}

func TestBuildPromptFallback(t *testing.T) {
	question := "What is the EPF interest rate?"

	for _, ps := range [][]*store.Passage{nil, {}, {{Text: ""}, nil}} {
		bundle := biz.BuildPrompt(question, ps)

		assert.Contains(t, bundle.FinalPrompt, question)
		assert.NotContains(t, bundle.FinalPrompt, "Context:")
		assert.Contains(t, bundle.FinalPrompt, "what additional details would be helpful")
		assert.True(t, strings.HasSuffix(bundle.FinalPrompt, "Answer:"))
		assert.Equal(t, "", bundle.SourceContext)
	}
}

func TestBuildPromptSkipsEmptyPassages(t *testing.T) {
	bundle := biz.BuildPrompt("q", []*store.Passage{
		{Text: "usable"},
		{Text: ""},
		nil,
		{Text: "also usable"},
	})

	assert.Equal(t, "usable\n\nalso usable", bundle.SourceContext)
}

func TestBuildPromptDeterministic(t *testing.T) {
	ps := passages("a", "b")
	first := biz.BuildPrompt("q", ps)
	second := biz.BuildPrompt("q", ps)

	assert.Equal(t, first, second)
}
