package biz_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/providentia/internal/chatbot/biz"
	"github.com/kart-io/providentia/internal/chatbot/store"
	"github.com/kart-io/providentia/internal/model"
	"github.com/kart-io/providentia/pkg/llm"
)

const (
	generationApology    = "I apologize, but I'm currently experiencing technical difficulties. Please try again later."
	orchestrationApology = "I apologize, but I encountered an error while processing your request. Please try again."
)

type fakeEmbedder struct {
	err error
}

func (f *fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{0.1, 0.2}
	}
	return out, nil
}

func (f *fakeEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []float32{0.1, 0.2}, nil
}

func (f *fakeEmbedder) Name() string { return "fake" }

type fakeVectorStore struct {
	passages []*store.Passage
	err      error
}

func (f *fakeVectorStore) Search(ctx context.Context, collection string, embedding []float32, topK int) ([]*store.Passage, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.passages, nil
}

func (f *fakeVectorStore) Count(ctx context.Context, collection string) (int64, error) {
	return int64(len(f.passages)), nil
}

type fakeGenerator struct {
	result    *llm.GenerationResult
	err       error
	panicWith any
	prompts   []string
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string, opts ...llm.GenerateOption) (*llm.GenerationResult, error) {
	f.prompts = append(f.prompts, prompt)
	if f.panicWith != nil {
		panic(f.panicWith)
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeGenerator) Name() string { return "fake" }

type fakeInteractionStore struct {
	created   []*model.Interaction
	createErr error
	list      *model.InteractionList
	listErr   error
	stats     *model.InteractionStats

	gotLimit  int
	gotOffset int
}

func (f *fakeInteractionStore) Create(ctx context.Context, interaction *model.Interaction) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, interaction)
	return nil
}

func (f *fakeInteractionStore) List(ctx context.Context, userID string, limit, offset int) (*model.InteractionList, error) {
	f.gotLimit, f.gotOffset = limit, offset
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.list, nil
}

func (f *fakeInteractionStore) Stats(ctx context.Context, userID string) (*model.InteractionStats, error) {
	return f.stats, nil
}

func newService(embedder *fakeEmbedder, vectors *fakeVectorStore, generator *fakeGenerator, interactions *fakeInteractionStore) *biz.ChatService {
	retriever := biz.NewRetriever(embedder, vectors, &biz.RetrieverConfig{Collection: "epfo_knowledge", TopK: 8})
	return biz.NewChatService(retriever, generator, interactions)
}

func TestChatGroundedSuccess(t *testing.T) {
	vectors := &fakeVectorStore{passages: passages(
		"EPF is a retirement savings scheme.",
		"Contributions are 12% of basic salary.",
	)}
	generator := &fakeGenerator{result: &llm.GenerationResult{
		RawText:     "Answer: EPF is a provident fund.",
		CleanedText: "EPF is a provident fund.",
	}}
	interactions := &fakeInteractionStore{}

	svc := newService(&fakeEmbedder{}, vectors, generator, interactions)
	result, err := svc.Chat(context.Background(), "user-1", "What is EPF?")
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, "EPF is a provident fund.", result.Answer)
	assert.NotEmpty(t, result.SourceContext)
	assert.Empty(t, result.ErrorMessage)

	// Generation saw the grounded prompt, not the raw question.
	require.Len(t, generator.prompts, 1)
	assert.Contains(t, generator.prompts[0], "Context:")
	assert.Contains(t, generator.prompts[0], "What is EPF?")

	require.Len(t, interactions.created, 1)
	saved := interactions.created[0]
	assert.Equal(t, "user-1", saved.UserID)
	assert.Equal(t, "What is EPF?", saved.Question)
	assert.Equal(t, "EPF is a provident fund.", saved.Answer)
	require.NotNil(t, saved.Context)
	assert.Equal(t, result.SourceContext, *saved.Context)
}

func TestChatRetrievalErrorDegrades(t *testing.T) {
	vectors := &fakeVectorStore{err: errors.New("index unreachable")}
	generator := &fakeGenerator{result: &llm.GenerationResult{CleanedText: "General answer."}}
	interactions := &fakeInteractionStore{}

	svc := newService(&fakeEmbedder{}, vectors, generator, interactions)
	result, err := svc.Chat(context.Background(), "user-1", "What is EPF?")
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, "", result.SourceContext)
	assert.Equal(t, "General answer.", result.Answer)

	// Generation is still invoked, with the raw question as the prompt.
	require.Len(t, generator.prompts, 1)
	assert.Equal(t, "What is EPF?", generator.prompts[0])

	require.Len(t, interactions.created, 1)
	assert.Nil(t, interactions.created[0].Context)
}

func TestChatEmbeddingErrorDegrades(t *testing.T) {
	generator := &fakeGenerator{result: &llm.GenerationResult{CleanedText: "ok."}}
	interactions := &fakeInteractionStore{}

	svc := newService(&fakeEmbedder{err: errors.New("quota exceeded")}, &fakeVectorStore{}, generator, interactions)
	result, err := svc.Chat(context.Background(), "user-1", "What is EPF?")
	require.NoError(t, err)

	assert.True(t, result.Success)
	require.Len(t, generator.prompts, 1)
	assert.Equal(t, "What is EPF?", generator.prompts[0])
}

func TestChatEmptyRetrievalUsesRawQuestion(t *testing.T) {
	generator := &fakeGenerator{result: &llm.GenerationResult{CleanedText: "ok."}}
	interactions := &fakeInteractionStore{}

	svc := newService(&fakeEmbedder{}, &fakeVectorStore{}, generator, interactions)
	result, err := svc.Chat(context.Background(), "user-1", "What is EPF?")
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, "", result.SourceContext)
	require.Len(t, generator.prompts, 1)
	assert.Equal(t, "What is EPF?", generator.prompts[0])
}

func TestChatGenerationErrorSubstitutesApology(t *testing.T) {
	vectors := &fakeVectorStore{passages: passages("Some context.")}
	generator := &fakeGenerator{err: llm.ErrTimeout}
	interactions := &fakeInteractionStore{}

	svc := newService(&fakeEmbedder{}, vectors, generator, interactions)
	result, err := svc.Chat(context.Background(), "user-1", "What is EPF?")
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, generationApology, result.Answer)

	// The apology is persisted like a real answer.
	require.Len(t, interactions.created, 1)
	assert.Equal(t, generationApology, interactions.created[0].Answer)
}

func TestChatPersistenceErrorIgnored(t *testing.T) {
	generator := &fakeGenerator{result: &llm.GenerationResult{CleanedText: "ok."}}
	interactions := &fakeInteractionStore{createErr: store.ErrPersistence}

	svc := newService(&fakeEmbedder{}, &fakeVectorStore{}, generator, interactions)
	result, err := svc.Chat(context.Background(), "user-1", "What is EPF?")
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, "ok.", result.Answer)
}

func TestChatRejectsInvalidQuestions(t *testing.T) {
	generator := &fakeGenerator{}
	interactions := &fakeInteractionStore{}
	svc := newService(&fakeEmbedder{}, &fakeVectorStore{}, generator, interactions)

	for _, question := range []string{"", "   ", "\n\t", strings.Repeat("x", biz.MaxQuestionLength+1)} {
		_, err := svc.Chat(context.Background(), "user-1", question)
		assert.ErrorIs(t, err, biz.ErrInvalidQuestion, "question %q", question)
	}

	// Rejected questions never reach the pipeline.
	assert.Empty(t, generator.prompts)
	assert.Empty(t, interactions.created)
}

func TestChatTrimsQuestion(t *testing.T) {
	generator := &fakeGenerator{result: &llm.GenerationResult{CleanedText: "ok."}}
	interactions := &fakeInteractionStore{}

	svc := newService(&fakeEmbedder{}, &fakeVectorStore{}, generator, interactions)
	_, err := svc.Chat(context.Background(), "user-1", "  What is EPF?  ")
	require.NoError(t, err)

	require.Len(t, interactions.created, 1)
	assert.Equal(t, "What is EPF?", interactions.created[0].Question)
}

func TestChatPanicYieldsFailureResponse(t *testing.T) {
	generator := &fakeGenerator{panicWith: "generator exploded"}
	interactions := &fakeInteractionStore{}

	svc := newService(&fakeEmbedder{}, &fakeVectorStore{}, generator, interactions)
	result, err := svc.Chat(context.Background(), "user-1", "What is EPF?")
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.Equal(t, orchestrationApology, result.Answer)
	assert.Equal(t, "", result.SourceContext)
	assert.Contains(t, result.ErrorMessage, "generator exploded")

	// A best-effort error record lands in the store.
	require.Len(t, interactions.created, 1)
	assert.Equal(t, "System Error: Unable to process request", interactions.created[0].Answer)
	assert.Nil(t, interactions.created[0].Context)
}

func TestHistoryDefaults(t *testing.T) {
	interactions := &fakeInteractionStore{list: &model.InteractionList{TotalCount: 0, Items: []*model.Interaction{}}}
	svc := newService(&fakeEmbedder{}, &fakeVectorStore{}, &fakeGenerator{}, interactions)

	list, err := svc.History(context.Background(), "user-1", 0, -5)
	require.NoError(t, err)

	assert.Equal(t, 50, interactions.gotLimit)
	assert.Equal(t, 0, interactions.gotOffset)
	assert.Empty(t, list.Items)
}

func TestStatistics(t *testing.T) {
	interactions := &fakeInteractionStore{stats: &model.InteractionStats{
		TotalChats:      3,
		TotalUsers:      1,
		ChatsToday:      2,
		AvgAnswerLength: 42.5,
	}}
	svc := newService(&fakeEmbedder{}, &fakeVectorStore{}, &fakeGenerator{}, interactions)

	stats, err := svc.Statistics(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalChats)
	assert.InDelta(t, 42.5, stats.AvgAnswerLength, 0.001)
}
