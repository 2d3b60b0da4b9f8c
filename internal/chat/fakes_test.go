package chat

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/LuckySilver0021/atom/internal/conversation"
	"github.com/LuckySilver0021/atom/internal/gateway"
)

// memRepo is an in-memory conversation.Repository with a stepping clock.
type memRepo struct {
	mu            sync.Mutex
	now           time.Time
	seq           int
	conversations map[string]*conversation.Conversation
	messages      map[string][]conversation.Message

	failAddRole conversation.Role
	listCalls   int
}

func newMemRepo() *memRepo {
	return &memRepo{
		now:           time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
		conversations: make(map[string]*conversation.Conversation),
		messages:      make(map[string][]conversation.Message),
	}
}

func (r *memRepo) tick() time.Time {
	r.now = r.now.Add(time.Second)
	return r.now
}

func (r *memRepo) CreateConversation(_ context.Context, userID string, mode conversation.Mode, title string) (*conversation.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	now := r.tick()
	conv := &conversation.Conversation{
		ID:        fmt.Sprintf("conv-%d", r.seq),
		UserID:    userID,
		Mode:      mode,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.conversations[conv.ID] = conv
	c := *conv
	return &c, nil
}

func (r *memRepo) GetConversation(_ context.Context, userID, id string) (*conversation.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conv, ok := r.conversations[id]
	if !ok || conv.UserID != userID {
		return nil, nil
	}
	c := *conv
	return &c, nil
}

func (r *memRepo) ListUserConversations(_ context.Context, userID string) ([]conversation.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listCalls++
	var out []conversation.Conversation
	for _, c := range r.conversations {
		if c.UserID == userID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (r *memRepo) AddMessage(_ context.Context, conversationID string, role conversation.Role, content string) (*conversation.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if role == r.failAddRole {
		return nil, fmt.Errorf("disk full")
	}
	conv, ok := r.conversations[conversationID]
	if !ok {
		return nil, conversation.ErrNotFound
	}
	r.seq++
	now := r.tick()
	msg := conversation.Message{
		ID:             fmt.Sprintf("msg-%d", r.seq),
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		CreatedAt:      now,
	}
	r.messages[conversationID] = append(r.messages[conversationID], msg)
	conv.UpdatedAt = now
	return &msg, nil
}

func (r *memRepo) GetMessages(_ context.Context, conversationID string) ([]conversation.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]conversation.Message(nil), r.messages[conversationID]...), nil
}

func (r *memRepo) UpdateTitle(_ context.Context, conversationID, title string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	conv, ok := r.conversations[conversationID]
	if !ok {
		return conversation.ErrNotFound
	}
	conv.Title = title
	return nil
}

func (r *memRepo) DeleteConversation(_ context.Context, userID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	conv, ok := r.conversations[id]
	if !ok || conv.UserID != userID {
		return conversation.ErrNotFound
	}
	delete(r.conversations, id)
	delete(r.messages, id)
	return nil
}

func (r *memRepo) title(id string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.conversations[id].Title
}

// seed creates a conversation and appends alternating user/assistant messages.
func (r *memRepo) seed(userID, title string, contents ...string) *conversation.Conversation {
	ctx := context.Background()
	conv, _ := r.CreateConversation(ctx, userID, conversation.ModeChat, title)
	for i, c := range contents {
		role := conversation.RoleUser
		if i%2 == 1 {
			role = conversation.RoleAssistant
		}
		_, _ = r.AddMessage(ctx, conv.ID, role, c)
	}
	return conv
}

// scriptedGateway replays chunks and then returns err.
type scriptedGateway struct {
	mu     sync.Mutex
	chunks []string
	finish gateway.FinishReason
	err    error
	block  chan struct{}
	calls  [][]gateway.Message
}

func (g *scriptedGateway) Provider() string { return "fake" }
func (g *scriptedGateway) Model() string    { return "fake-model" }

func (g *scriptedGateway) SendMessage(ctx context.Context, messages []gateway.Message, onChunk gateway.ChunkFunc) (*gateway.Result, error) {
	g.mu.Lock()
	g.calls = append(g.calls, messages)
	g.mu.Unlock()

	if g.block != nil {
		select {
		case <-g.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	var content string
	for _, c := range g.chunks {
		content += c
		if onChunk != nil {
			onChunk(c)
		}
	}

	finish := g.finish
	if finish == "" {
		finish = gateway.FinishStop
	}
	if g.err != nil {
		return &gateway.Result{Content: content, FinishReason: gateway.FinishError}, g.err
	}
	return &gateway.Result{Content: content, FinishReason: finish, Usage: gateway.Usage{TotalTokens: len(g.chunks)}}, nil
}

func (g *scriptedGateway) lastCall() []gateway.Message {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.calls) == 0 {
		return nil
	}
	return g.calls[len(g.calls)-1]
}
