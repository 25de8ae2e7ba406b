package biz

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kart-io/logger"
	"github.com/kart-io/providentia/internal/chatbot/store"
	"github.com/kart-io/providentia/internal/model"
	"github.com/kart-io/providentia/pkg/llm"
)

// ErrInvalidQuestion rejects empty, whitespace-only or oversized questions
// before the pipeline runs.
var ErrInvalidQuestion = errors.New("invalid question")

// MaxQuestionLength bounds accepted questions, in runes.
const MaxQuestionLength = 1000

const (
	// generationApology replaces the answer when the model call fails.
	generationApology = "I apologize, but I'm currently experiencing technical difficulties. Please try again later."

	// orchestrationApology is returned when the whole turn fails unexpectedly.
	orchestrationApology = "I apologize, but I encountered an error while processing your request. Please try again."

	// errorInteractionMarker is stored in place of an answer for failed turns.
	errorInteractionMarker = "System Error: Unable to process request"
)

// ChatResult is the outcome of one chat turn.
type ChatResult struct {
	Answer        string `json:"answer"`
	SourceContext string `json:"source_context"`
	Success       bool   `json:"success"`
	ErrorMessage  string `json:"error_message,omitempty"`
}

// ChatService orchestrates one chat turn: retrieve, prompt, generate,
// persist. Stage failures degrade the turn instead of aborting it.
type ChatService struct {
	retriever    *Retriever
	generator    llm.GenerationProvider
	interactions store.InteractionStore
}

// NewChatService creates a new ChatService.
func NewChatService(retriever *Retriever, generator llm.GenerationProvider, interactions store.InteractionStore) *ChatService {
	return &ChatService{
		retriever:    retriever,
		generator:    generator,
		interactions: interactions,
	}
}

// ValidateQuestion trims the question and rejects empty or oversized input.
func ValidateQuestion(question string) (string, error) {
	trimmed := strings.TrimSpace(question)
	if trimmed == "" {
		return "", fmt.Errorf("%w: question is empty or whitespace-only", ErrInvalidQuestion)
	}
	if len([]rune(trimmed)) > MaxQuestionLength {
		return "", fmt.Errorf("%w: question exceeds %d characters", ErrInvalidQuestion, MaxQuestionLength)
	}
	return trimmed, nil
}

// Chat runs the full pipeline for one user turn. Every accepted question
// results in exactly one persistence attempt, whichever stages degrade.
// Only a panic escaping the guarded stages yields Success == false.
func (s *ChatService) Chat(ctx context.Context, userID, question string) (result *ChatResult, err error) {
	query, err := ValidateQuestion(question)
	if err != nil {
		return nil, err
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Errorw("unexpected failure in chat turn", "user_id", userID, "panic", r)
			s.appendErrorInteraction(userID, query)
			result = &ChatResult{
				Answer:        orchestrationApology,
				SourceContext: "",
				Success:       false,
				ErrorMessage:  fmt.Sprintf("%v", r),
			}
			err = nil
		}
	}()

	logger.Infow("processing chat request", "user_id", userID, "question", truncateForLog(query))

	// Retrieval. A failed or empty retrieval degrades to the raw question
	// as the prompt; prompt building is skipped entirely.
	finalPrompt := query
	sourceContext := ""
	passages, retrieveErr := s.retriever.Retrieve(ctx, query)
	if retrieveErr != nil {
		logger.Errorw("retrieval failed, continuing without context", "user_id", userID, "error", retrieveErr.Error())
	} else if len(passages) > 0 {
		bundle := BuildPrompt(query, passages)
		finalPrompt = bundle.FinalPrompt
		sourceContext = bundle.SourceContext
	}

	// Generation. Any model error degrades to a fixed apology.
	answer := generationApology
	generated, genErr := s.generator.Generate(ctx, finalPrompt)
	if genErr != nil {
		logger.Errorw("generation failed, substituting apology", "user_id", userID, "error", genErr.Error())
	} else {
		answer = generated.CleanedText
	}

	// Persistence. Failures are logged and never affect the response.
	interaction := &model.Interaction{
		UserID:   userID,
		Question: query,
		Answer:   answer,
		Context:  nullableContext(sourceContext),
	}
	if saveErr := s.interactions.Create(ctx, interaction); saveErr != nil {
		logger.Errorw("failed to persist interaction", "user_id", userID, "error", saveErr.Error())
	}

	return &ChatResult{
		Answer:        answer,
		SourceContext: sourceContext,
		Success:       true,
	}, nil
}

// History returns a page of the user's interactions, newest first.
func (s *ChatService) History(ctx context.Context, userID string, limit, offset int) (*model.InteractionList, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.interactions.List(ctx, userID, limit, offset)
}

// Statistics returns aggregate usage figures scoped to the user.
func (s *ChatService) Statistics(ctx context.Context, userID string) (*model.InteractionStats, error) {
	return s.interactions.Stats(ctx, userID)
}

// appendErrorInteraction records a failed turn so it shows up in history.
// Best effort; runs outside the caller's context, which may already be dead.
func (s *ChatService) appendErrorInteraction(userID, question string) {
	interaction := &model.Interaction{
		UserID:   userID,
		Question: question,
		Answer:   errorInteractionMarker,
		Context:  nil,
	}
	if err := s.interactions.Create(context.Background(), interaction); err != nil {
		logger.Errorw("failed to persist error interaction", "user_id", userID, "error", err.Error())
	}
}

func nullableContext(sourceContext string) *string {
	if sourceContext == "" {
		return nil
	}
	return &sourceContext
}
