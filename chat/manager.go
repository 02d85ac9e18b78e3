package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Abhijeet14d/KrishiBandhu/aggregator"
	"github.com/Abhijeet14d/KrishiBandhu/logger"
	"github.com/Abhijeet14d/KrishiBandhu/models"
	llmsdk "github.com/hoangvvo/llm-sdk/sdk-go"
	"github.com/hoangvvo/llm-sdk/sdk-go/google"
	"go.uber.org/zap"
)

// DefaultModels is the rotation list, in order of preference.
var DefaultModels = []string{"gemini-2.0-flash", "gemini-2.5-flash", "gemini-2.0-flash-001"}

const (
	maxOutputTokens = uint32(500)
	temperature     = 0.7
	quotaCooldown   = 40 * time.Second
)

const systemPrompt = `You are an expert Agricultural Assistant designed to help Indian farmers. Your role is to:

1. Provide accurate, practical farming advice
2. Answer questions about crops, soil, weather, pests, and diseases
3. Suggest modern and traditional farming techniques
4. Help with crop selection based on season and region
5. Provide market information and pricing guidance when asked
6. Explain government schemes and subsidies for farmers
7. Give advice in simple, easy-to-understand language

Guidelines:
- Keep responses concise (2-3 paragraphs max) since this is a voice conversation
- Be respectful and patient
- If you don't know something, say so honestly
- Provide region-specific advice when the farmer mentions their location
- Consider seasonal factors in your advice
- Prioritize sustainable and cost-effective solutions

Remember: Farmers may ask questions in simple language. Interpret their queries with context and provide helpful responses.`

var (
	ErrEmptyMessage = errors.New("message is empty")
	ErrQuota        = errors.New("API quota exceeded. Please try again in a few minutes")
)

// LanguageModel is the slice of the model provider the manager uses.
type LanguageModel interface {
	Generate(ctx context.Context, input *llmsdk.LanguageModelInput) (*llmsdk.ModelResponse, error)
}

// ModelFactory builds a provider client for a model id in the
// rotation list.
type ModelFactory func(modelID string) LanguageModel

// GoogleModelFactory returns a factory backed by the Gemini API.
func GoogleModelFactory(apiKey string) ModelFactory {
	return func(modelID string) LanguageModel {
		return google.NewGoogleModel(modelID, google.GoogleModelOptions{APIKey: apiKey})
	}
}

type session struct {
	history []llmsdk.Message
}

func newSession() *session {
	return &session{history: []llmsdk.Message{
		llmsdk.NewUserMessage(llmsdk.NewTextPart("You are my agricultural assistant. Please help me with farming queries.")),
		llmsdk.NewAssistantMessage(llmsdk.NewTextPart("Namaste! I am your assistant. How can I assist you today?")),
	}}
}

// Manager owns one conversational context per conversation id. Model
// rotation state is process-wide; rotating away from a model discards
// every session, since a different model cannot continue another
// model's conversation.
type Manager struct {
	agg     *aggregator.Service
	factory ModelFactory
	models  []string
	log     *zap.Logger
	sleep   func(time.Duration)

	mu        sync.Mutex
	model     LanguageModel
	modelIdx  int
	sessions  map[string]*session
	locations map[string]models.Location
	turnLocks map[string]*sync.Mutex
}

func NewManager(agg *aggregator.Service, factory ModelFactory) *Manager {
	m := &Manager{
		agg:       agg,
		factory:   factory,
		models:    DefaultModels,
		log:       logger.Get(),
		sleep:     time.Sleep,
		sessions:  make(map[string]*session),
		locations: make(map[string]models.Location),
		turnLocks: make(map[string]*sync.Mutex),
	}
	m.model = factory(m.models[0])
	return m
}

// WelcomeMessage is the canned greeting persisted when a conversation
// is created.
func WelcomeMessage() string {
	return "Namaste! I am your Assistant. Please speak your question, and I'll do my best to help you!"
}

// StartSession creates the session for a conversation if one does not
// exist yet. SendMessage does this lazily too.
func (m *Manager) StartSession(conversationID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[conversationID]; !ok {
		m.sessions[conversationID] = newSession()
	}
}

// EndSession discards the session and the stored location association
// for a conversation. A later SendMessage starts fresh.
func (m *Manager) EndSession(conversationID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, conversationID)
	delete(m.locations, conversationID)
	delete(m.turnLocks, conversationID)
}

// SendMessage runs one conversational turn. When a location with at
// least a state is known for the conversation, the message is enriched
// with real-time data before it reaches the model; the enrichment is
// model-visible only and never part of the stored transcript.
func (m *Manager) SendMessage(ctx context.Context, conversationID, message string, loc *models.Location) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", ErrEmptyMessage
	}

	// Turns within one conversation must not race; the provider
	// serializes per-session state.
	lock := m.turnLock(conversationID)
	lock.Lock()
	defer lock.Unlock()

	effective := m.resolveLocation(conversationID, loc)

	outgoing := message
	if effective.State != "" {
		data := m.agg.FetchRelevantData(ctx, message, effective)
		if data.Context != "" {
			outgoing = message + data.Context
			m.log.Debug("message enriched with real-time data",
				zap.String("conversation_id", conversationID),
				zap.Int("context_bytes", len(data.Context)))
		}
	}

	return m.generate(ctx, conversationID, outgoing)
}

// generate submits the message against the conversation's session,
// rotating models and backing off once on quota errors.
func (m *Manager) generate(ctx context.Context, conversationID, outgoing string) (string, error) {
	backoffDone := false
	for {
		model, input := m.prepareTurn(conversationID, outgoing)

		resp, err := model.Generate(ctx, input)
		if err == nil {
			text := responseText(resp)
			m.commitTurn(conversationID, outgoing, text)
			return text, nil
		}

		if !isQuotaError(err) {
			return "", fmt.Errorf("failed to get AI response: %v", err)
		}

		if m.rotateModel() {
			m.log.Warn("model quota exceeded, switched model",
				zap.String("model", m.CurrentModel()))
			continue
		}

		if !backoffDone {
			backoffDone = true
			m.log.Warn("all models quota exceeded, backing off",
				zap.Duration("cooldown", quotaCooldown))
			m.sleep(quotaCooldown)
			m.resetRotation()
			continue
		}

		return "", ErrQuota
	}
}

// prepareTurn snapshots the session history plus the new user message
// into a model input, under the manager lock.
func (m *Manager) prepareTurn(conversationID, outgoing string) (LanguageModel, *llmsdk.LanguageModelInput) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[conversationID]
	if !ok {
		sess = newSession()
		m.sessions[conversationID] = sess
	}

	messages := make([]llmsdk.Message, 0, len(sess.history)+1)
	messages = append(messages, sess.history...)
	messages = append(messages, llmsdk.NewUserMessage(llmsdk.NewTextPart(outgoing)))

	sys := systemPrompt
	maxTokens := maxOutputTokens
	temp := temperature
	return m.model, &llmsdk.LanguageModelInput{
		SystemPrompt: &sys,
		Messages:     messages,
		MaxTokens:    &maxTokens,
		Temperature:  &temp,
	}
}

// commitTurn appends the exchanged turn to the session history. The
// session may have been discarded by a concurrent model rotation; the
// turn is then recorded into a fresh one.
func (m *Manager) commitTurn(conversationID, outgoing, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[conversationID]
	if !ok {
		sess = newSession()
		m.sessions[conversationID] = sess
	}
	sess.history = append(sess.history,
		llmsdk.NewUserMessage(llmsdk.NewTextPart(outgoing)),
		llmsdk.NewAssistantMessage(llmsdk.NewTextPart(response)))
}

// rotateModel advances to the next model in the list, discarding all
// sessions. Returns false when the list is exhausted.
func (m *Manager) rotateModel() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.modelIdx >= len(m.models)-1 {
		return false
	}
	m.modelIdx++
	m.model = m.factory(m.models[m.modelIdx])
	m.sessions = make(map[string]*session)
	return true
}

// resetRotation goes back to the first model after the cool-down.
func (m *Manager) resetRotation() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.modelIdx = 0
	m.model = m.factory(m.models[0])
	m.sessions = make(map[string]*session)
}

// CurrentModel reports the model id currently in rotation.
func (m *Manager) CurrentModel() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.models[m.modelIdx]
}

func (m *Manager) resolveLocation(conversationID string, loc *models.Location) models.Location {
	m.mu.Lock()
	defer m.mu.Unlock()
	if loc != nil {
		m.locations[conversationID] = *loc
		return *loc
	}
	return m.locations[conversationID]
}

func (m *Manager) turnLock(conversationID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.turnLocks[conversationID]
	if !ok {
		lock = &sync.Mutex{}
		m.turnLocks[conversationID] = lock
	}
	return lock
}

func responseText(resp *llmsdk.ModelResponse) string {
	var b strings.Builder
	for _, part := range resp.Content {
		if part.TextPart != nil {
			b.WriteString(part.TextPart.Text)
		}
	}
	return b.String()
}

// isQuotaError reports whether the provider signaled a quota or rate
// limit condition.
func isQuotaError(err error) bool {
	var lmErr *llmsdk.LanguageModelError
	if errors.As(err, &lmErr) {
		if lmErr.Kind == llmsdk.StatusCode && lmErr.Status == 429 {
			return true
		}
	}
	msg := err.Error()
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "quota") ||
		strings.Contains(msg, "Too Many Requests")
}
