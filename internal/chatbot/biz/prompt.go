// Package biz provides business logic for the chatbot service.
package biz

import (
	"fmt"
	"strings"

	"github.com/kart-io/providentia/internal/chatbot/store"
)

const groundedPromptTemplate = `You are Providentia, an expert EPFO (Employees' Provident Fund Organisation) assistant. Your role is to provide accurate, helpful, and comprehensive answers about EPF-related matters based on the provided context.

Instructions:
1. Answer ONLY based on the provided context
2. Be precise, concise, and professional
3. If the context doesn't contain enough information, clearly state what information is missing
4. Always cite relevant sections or rules when possible
5. Provide step-by-step guidance for complex procedures
6. Use simple language that's easy to understand

Context:
%s

Question: %s

Answer:`

const fallbackPromptTemplate = `You are Providentia, an expert EPFO (Employees' Provident Fund Organisation) assistant.

Question: %s

Please provide a helpful response about EPF-related matters. If you need more specific information to give a complete answer, please let the user know what additional details would be helpful.

Answer:`

// contextDelimiter separates individual passages inside the prompt so the
// model can tell where one source ends and the next begins.
const contextDelimiter = "\n\n---\n\n"

// PromptBundle carries the prompt sent to the model together with the raw
// passages it was grounded on. SourceContext is empty for fallback prompts.
type PromptBundle struct {
	FinalPrompt   string
	SourceContext string
}

// BuildPrompt assembles the model prompt from a question and its retrieved
// passages. With no usable passages it falls back to an ungrounded prompt.
func BuildPrompt(question string, passages []*store.Passage) *PromptBundle {
	contextParts := make([]string, 0, len(passages))
	for _, p := range passages {
		if p == nil || p.Text == "" {
			continue
		}
		contextParts = append(contextParts, p.Text)
	}

	if len(contextParts) == 0 {
		return &PromptBundle{
			FinalPrompt:   fmt.Sprintf(fallbackPromptTemplate, question),
			SourceContext: "",
		}
	}

	return &PromptBundle{
		FinalPrompt:   fmt.Sprintf(groundedPromptTemplate, strings.Join(contextParts, contextDelimiter), question),
		SourceContext: strings.Join(contextParts, "\n\n"),
	}
}
