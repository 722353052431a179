// Package bot is the in-app support assistant. With an API key configured it
// answers through a chat completion endpoint; without one, or when the
// endpoint fails, it falls back to canned supportive replies so the chat
// never goes silent.
package bot

import (
	"context"
	"math/rand"
	gosync "sync"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"JevanRaksha/pkg/logger"
)

// Role values for conversation history.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of the assistant conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const greeting = "Hello! I'm here to help you. How can I assist you today?"

const systemPrompt = "You are the Jevan Raksha assistant supporting people affected by disasters. " +
	"Be calm, practical and brief. Encourage contacting emergency services when a situation sounds life-threatening."

var fallbackReplies = []string{
	"I understand you're going through a difficult time. Can you tell me more about what's happening?",
	"Thank you for sharing that with me. It sounds challenging. What kind of support would be most helpful right now?",
	"I'm here to listen and help. Have you been able to talk to anyone else about this situation?",
	"That sounds really tough. Remember that reaching out for help is a sign of strength, not weakness.",
	"I appreciate you trusting me with this. What are some things that usually help you feel better or cope?",
	"It's completely normal to feel overwhelmed sometimes. Let's think about some steps we can take together.",
}

const connectionTrouble = "I apologize, but I'm having trouble connecting right now. " +
	"Please try again in a moment, or consider reaching out to a mental health professional if this is urgent."

// Config for the assistant backend. An empty APIKey selects canned replies.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
}

type Assistant struct {
	mu      gosync.Mutex
	client  *openai.Client
	model   string
	history []Message
}

func New(cfg Config) *Assistant {
	a := &Assistant{model: cfg.Model}
	if a.model == "" {
		a.model = openai.GPT3Dot5Turbo
	}
	if cfg.APIKey != "" {
		clientCfg := openai.DefaultConfig(cfg.APIKey)
		if cfg.BaseURL != "" {
			clientCfg.BaseURL = cfg.BaseURL
		}
		a.client = openai.NewClientWithConfig(clientCfg)
	}
	a.history = []Message{{Role: RoleAssistant, Content: greeting}}
	return a
}

// Send appends the user's message to the conversation and returns the
// assistant's reply. It never fails; a backend error degrades to a canned
// reply.
func (a *Assistant) Send(ctx context.Context, input string) string {
	a.mu.Lock()
	a.history = append(a.history, Message{Role: RoleUser, Content: input})
	turns := make([]Message, len(a.history))
	copy(turns, a.history)
	a.mu.Unlock()

	reply := a.respond(ctx, turns)

	a.mu.Lock()
	a.history = append(a.history, Message{Role: RoleAssistant, Content: reply})
	a.mu.Unlock()
	return reply
}

func (a *Assistant) respond(ctx context.Context, turns []Message) string {
	if a.client == nil {
		return fallbackReplies[rand.Intn(len(fallbackReplies))]
	}

	msgs := make([]openai.ChatCompletionMessage, 0, len(turns)+1)
	msgs = append(msgs, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: systemPrompt,
	})
	for _, t := range turns {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: t.Role, Content: t.Content})
	}

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    a.model,
		Messages: msgs,
	})
	if err != nil {
		logger.Warn("assistant completion failed", zap.Error(err))
		return connectionTrouble
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return connectionTrouble
	}
	return resp.Choices[0].Message.Content
}

// History returns a copy of the conversation so far, greeting included.
func (a *Assistant) History() []Message {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Message, len(a.history))
	copy(out, a.history)
	return out
}

// Reset clears the conversation back to the opening greeting.
func (a *Assistant) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.history = []Message{{Role: RoleAssistant, Content: greeting}}
}
