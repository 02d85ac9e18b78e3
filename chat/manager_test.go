package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Abhijeet14d/KrishiBandhu/aggregator"
	llmsdk "github.com/hoangvvo/llm-sdk/sdk-go"
	"github.com/hoangvvo/llm-sdk/sdk-go/llmsdktest"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func quotaErr() error {
	return llmsdk.NewStatusCodeError(429, "Too Many Requests")
}

func textResponse(text string) llmsdktest.MockGenerateResult {
	return llmsdktest.NewMockGenerateResultResponse(llmsdk.ModelResponse{
		Content: []llmsdk.Part{llmsdk.NewTextPart(text)},
	})
}

// newTestManager wires a manager around one shared mock model so
// results are consumed sequentially across rotations. The sleep func
// records backoffs instead of waiting.
func newTestManager(t *testing.T) (*Manager, *llmsdktest.MockLanguageModel, *[]time.Duration, *[]string) {
	t.Helper()

	mock := llmsdktest.NewMockLanguageModel()
	var built []string
	factory := func(modelID string) LanguageModel {
		built = append(built, modelID)
		return mock
	}

	agg := aggregator.NewService(nil, aggregator.DefaultLimits(), zap.NewNop())
	m := NewManager(agg, factory)

	var slept []time.Duration
	m.sleep = func(d time.Duration) { slept = append(slept, d) }

	return m, mock, &slept, &built
}

func TestSendMessage_EmptyMessage(t *testing.T) {
	m, _, _, _ := newTestManager(t)

	_, err := m.SendMessage(context.Background(), "conv-1", "   ", nil)
	require.ErrorIs(t, err, ErrEmptyMessage)
}

func TestSendMessage_Success(t *testing.T) {
	m, mock, _, _ := newTestManager(t)
	mock.EnqueueGenerateResult(textResponse("Sow wheat in November."))

	resp, err := m.SendMessage(context.Background(), "conv-1", "When should I sow wheat?", nil)
	require.NoError(t, err)
	require.Equal(t, "Sow wheat in November.", resp)

	inputs := mock.TrackedGenerateInputs()
	require.Len(t, inputs, 1)
	// Two-turn priming history plus the new user message.
	require.Len(t, inputs[0].Messages, 3)
	require.NotNil(t, inputs[0].SystemPrompt)
	require.Equal(t, uint32(500), *inputs[0].MaxTokens)
	require.InDelta(t, 0.7, *inputs[0].Temperature, 0.001)
}

func TestSendMessage_HistoryAccumulates(t *testing.T) {
	m, mock, _, _ := newTestManager(t)
	mock.EnqueueGenerateResult(textResponse("first"), textResponse("second"))

	_, err := m.SendMessage(context.Background(), "conv-1", "one", nil)
	require.NoError(t, err)
	_, err = m.SendMessage(context.Background(), "conv-1", "two", nil)
	require.NoError(t, err)

	inputs := mock.TrackedGenerateInputs()
	require.Len(t, inputs, 2)
	// Priming (2) + first turn (2) + new user message.
	require.Len(t, inputs[1].Messages, 5)
}

func TestSendMessage_RotatesOnQuota(t *testing.T) {
	m, mock, slept, built := newTestManager(t)
	mock.EnqueueGenerateResult(
		llmsdktest.NewMockGenerateResultError(quotaErr()),
		llmsdktest.NewMockGenerateResultError(quotaErr()),
		textResponse("answer from third model"),
	)

	resp, err := m.SendMessage(context.Background(), "conv-1", "wheat price?", nil)
	require.NoError(t, err)
	require.Equal(t, "answer from third model", resp)

	require.Empty(t, *slept, "rotation must not back off while models remain")
	require.Equal(t, []string{"gemini-2.0-flash", "gemini-2.5-flash", "gemini-2.0-flash-001"}, *built)
	require.Equal(t, "gemini-2.0-flash-001", m.CurrentModel())
}

func TestSendMessage_BackoffRetrySucceeds(t *testing.T) {
	m, mock, slept, _ := newTestManager(t)
	mock.EnqueueGenerateResult(
		llmsdktest.NewMockGenerateResultError(quotaErr()),
		llmsdktest.NewMockGenerateResultError(quotaErr()),
		llmsdktest.NewMockGenerateResultError(quotaErr()),
		textResponse("recovered"),
	)

	resp, err := m.SendMessage(context.Background(), "conv-1", "wheat price?", nil)
	require.NoError(t, err)
	require.Equal(t, "recovered", resp)

	require.Equal(t, []time.Duration{40 * time.Second}, *slept)
	// Rotation reset to the first model for the post-backoff attempt.
	require.Equal(t, "gemini-2.0-flash", m.CurrentModel())
}

func TestSendMessage_TerminalQuota(t *testing.T) {
	m, mock, slept, _ := newTestManager(t)
	mock.EnqueueGenerateResult(
		llmsdktest.NewMockGenerateResultError(quotaErr()),
		llmsdktest.NewMockGenerateResultError(quotaErr()),
		llmsdktest.NewMockGenerateResultError(quotaErr()),
		llmsdktest.NewMockGenerateResultError(quotaErr()),
	)

	_, err := m.SendMessage(context.Background(), "conv-1", "wheat price?", nil)
	require.ErrorIs(t, err, ErrQuota)

	require.Equal(t, []time.Duration{40 * time.Second}, *slept, "exactly one backoff, no indefinite retry")
	require.Len(t, mock.TrackedGenerateInputs(), 4, "3 rotation attempts plus 1 post-backoff attempt")
}

func TestSendMessage_NonQuotaErrorSurfacesImmediately(t *testing.T) {
	m, mock, slept, _ := newTestManager(t)
	mock.EnqueueGenerateResult(llmsdktest.NewMockGenerateResultError(errors.New("connection reset")))

	_, err := m.SendMessage(context.Background(), "conv-1", "wheat price?", nil)
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrQuota)

	require.Len(t, mock.TrackedGenerateInputs(), 1, "non-quota errors are never retried")
	require.Empty(t, *slept)
	require.Equal(t, "gemini-2.0-flash", m.CurrentModel())
}

func TestEndSession_NextMessageStartsFresh(t *testing.T) {
	m, mock, _, _ := newTestManager(t)
	mock.EnqueueGenerateResult(textResponse("first"), textResponse("fresh"))

	_, err := m.SendMessage(context.Background(), "conv-1", "one", nil)
	require.NoError(t, err)

	m.EndSession("conv-1")

	_, err = m.SendMessage(context.Background(), "conv-1", "two", nil)
	require.NoError(t, err)

	inputs := mock.TrackedGenerateInputs()
	require.Len(t, inputs, 2)
	// Seed history reset: priming (2) + new user message only.
	require.Len(t, inputs[1].Messages, 3)
}

func TestRotation_ClearsAllSessions(t *testing.T) {
	m, mock, _, _ := newTestManager(t)
	mock.EnqueueGenerateResult(textResponse("conv-1 reply"))

	_, err := m.SendMessage(context.Background(), "conv-1", "hello", nil)
	require.NoError(t, err)

	// A quota turn on another conversation rotates the model and
	// discards every session, conv-1's included.
	mock.EnqueueGenerateResult(
		llmsdktest.NewMockGenerateResultError(quotaErr()),
		textResponse("conv-2 reply"),
	)
	_, err = m.SendMessage(context.Background(), "conv-2", "hi", nil)
	require.NoError(t, err)

	mock.EnqueueGenerateResult(textResponse("conv-1 again"))
	_, err = m.SendMessage(context.Background(), "conv-1", "still there?", nil)
	require.NoError(t, err)

	inputs := mock.TrackedGenerateInputs()
	last := inputs[len(inputs)-1]
	require.Len(t, last.Messages, 3, "conv-1 must restart from the priming history")
}
