package chat

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/LuckySilver0021/atom/internal/conversation"
	"github.com/LuckySilver0021/atom/internal/gateway"
	"github.com/LuckySilver0021/atom/pkg/logging"
	pkgstrings "github.com/LuckySilver0021/atom/pkg/strings"
)

// DefaultTitleLength is the number of characters kept from the first
// message when titling a conversation.
const DefaultTitleLength = 50

// State is the controller's position in a turn.
type State int

const (
	StateAwaitingInput State = iota
	StateValidating
	StatePersistingUserMessage
	StateStreaming
	StatePersistingAssistantMessage
	StateExit
)

func (s State) String() string {
	switch s {
	case StateAwaitingInput:
		return "AWAITING_INPUT"
	case StateValidating:
		return "VALIDATING"
	case StatePersistingUserMessage:
		return "PERSISTING_USER_MSG"
	case StateStreaming:
		return "STREAMING"
	case StatePersistingAssistantMessage:
		return "PERSISTING_ASSISTANT_MSG"
	case StateExit:
		return "EXIT"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// TurnResult describes a completed (or partially completed) turn.
type TurnResult struct {
	UserMessage *conversation.Message
	// AssistantMessage is nil when the reply was not persisted.
	AssistantMessage *conversation.Message
	Content          string
	FinishReason     gateway.FinishReason
	Usage            gateway.Usage
	// Titled is true when this turn set the conversation title.
	Titled bool
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithTitleLength sets how many characters of the first message become the title.
func WithTitleLength(n int) ControllerOption {
	return func(c *Controller) {
		if n > 0 {
			c.titleLength = n
		}
	}
}

// WithPersistPartial stores the text received before a stream failure as
// the assistant message.
func WithPersistPartial(enabled bool) ControllerOption {
	return func(c *Controller) {
		c.persistPartial = enabled
	}
}

// WithStateObserver is called on every state change.
func WithStateObserver(fn func(from, to State)) ControllerOption {
	return func(c *Controller) {
		c.observer = fn
	}
}

// Controller runs chat turns for one session.
type Controller struct {
	repo      conversation.Repository
	assembler ContextAssembler
	gateway   gateway.Gateway

	titleLength    int
	persistPartial bool
	observer       func(from, to State)

	turn  sync.Mutex
	mu    sync.Mutex
	state State
}

// NewController returns a Controller in the AWAITING_INPUT state.
func NewController(repo conversation.Repository, assembler ContextAssembler, gw gateway.Gateway, opts ...ControllerOption) *Controller {
	c := &Controller{
		repo:        repo,
		assembler:   assembler,
		gateway:     gw,
		titleLength: DefaultTitleLength,
		state:       StateAwaitingInput,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) setState(to State) {
	c.mu.Lock()
	from := c.state
	if from == StateExit {
		c.mu.Unlock()
		return
	}
	c.state = to
	c.mu.Unlock()

	if from != to {
		logging.Debug("Chat", "State %s -> %s", from, to)
		if c.observer != nil {
			c.observer(from, to)
		}
	}
}

// End moves the session to EXIT. Later turns fail with ErrSessionEnded.
func (c *Controller) End() {
	c.mu.Lock()
	from := c.state
	c.state = StateExit
	c.mu.Unlock()

	if from != StateExit && c.observer != nil {
		c.observer(from, StateExit)
	}
}

// OpenConversation returns the user's conversation id, or a new conversation
// in mode when id is empty or not owned by the user.
func (c *Controller) OpenConversation(ctx context.Context, userID string, mode conversation.Mode, id string) (*conversation.Conversation, error) {
	if id != "" {
		conv, err := c.repo.GetConversation(ctx, userID, id)
		if err != nil {
			return nil, &StorageError{Op: "load conversation", Err: err}
		}
		if conv != nil {
			return conv, nil
		}
		logging.Info("Chat", "Conversation %s not found, starting a new one", id)
	}

	conv, err := c.repo.CreateConversation(ctx, userID, mode, conversation.DefaultTitle(mode))
	if err != nil {
		return nil, &StorageError{Op: "create conversation", Err: err}
	}
	logging.Info("Chat", "Created %s conversation %s", mode, conv.ID)
	return conv, nil
}

// RunTurn sends input to the model within conv and streams the reply to
// onChunk. The user message is persisted before the model is called; the
// assistant message only after the stream completes.
//
// conv.Title is updated in place when this is the conversation's first message.
func (c *Controller) RunTurn(ctx context.Context, conv *conversation.Conversation, input string, onChunk gateway.ChunkFunc) (*TurnResult, error) {
	if c.State() == StateExit {
		return nil, ErrSessionEnded
	}
	if !c.turn.TryLock() {
		return nil, ErrTurnInProgress
	}
	defer c.turn.Unlock()
	defer c.setState(StateAwaitingInput)

	c.setState(StateValidating)
	text := strings.TrimSpace(input)
	if text == "" {
		return nil, &ValidationError{Field: "input", Err: ErrEmptyInput}
	}

	c.setState(StatePersistingUserMessage)
	userMsg, err := c.repo.AddMessage(ctx, conv.ID, conversation.RoleUser, text)
	if err != nil {
		return nil, &StorageError{Op: "save message", Err: err}
	}
	result := &TurnResult{UserMessage: userMsg}

	first, err := c.isFirstMessage(ctx, conv.ID)
	if err != nil {
		return result, &StorageError{Op: "count messages", Err: err}
	}
	if first {
		title := pkgstrings.Title(text, c.titleLength)
		if err := c.repo.UpdateTitle(ctx, conv.ID, title); err != nil {
			return result, &StorageError{Op: "update title", Err: err}
		}
		conv.Title = title
		result.Titled = true
	}

	prompt, err := c.assembler.AssembleContext(ctx, conv.UserID, conv.ID)
	if err != nil {
		return result, fmt.Errorf("failed to assemble context: %w", err)
	}

	c.setState(StateStreaming)
	reply, err := c.gateway.SendMessage(ctx, toGatewayMessages(prompt), onChunk)
	if reply != nil {
		result.Content = reply.Content
		result.FinishReason = reply.FinishReason
		result.Usage = reply.Usage
	}
	if err != nil {
		if c.persistPartial && result.Content != "" {
			c.setState(StatePersistingAssistantMessage)
			// The turn's context may be canceled; the partial reply is still saved.
			msg, saveErr := c.repo.AddMessage(context.WithoutCancel(ctx), conv.ID, conversation.RoleAssistant, result.Content)
			if saveErr != nil {
				logging.Error("Chat", saveErr, "Failed to persist partial reply")
			} else {
				result.AssistantMessage = msg
			}
		}
		return result, err
	}

	c.setState(StatePersistingAssistantMessage)
	assistantMsg, err := c.repo.AddMessage(ctx, conv.ID, conversation.RoleAssistant, result.Content)
	if err != nil {
		return result, &StorageError{Op: "save reply", Err: err}
	}
	result.AssistantMessage = assistantMsg

	logging.Debug("Chat", "Turn finished (%s, %d tokens)", result.FinishReason, result.Usage.TotalTokens)
	return result, nil
}

func (c *Controller) isFirstMessage(ctx context.Context, conversationID string) (bool, error) {
	if counter, ok := c.repo.(conversation.MessageCounter); ok {
		n, err := counter.CountMessages(ctx, conversationID)
		return n == 1, err
	}
	msgs, err := c.repo.GetMessages(ctx, conversationID)
	return len(msgs) == 1, err
}

func toGatewayMessages(msgs []conversation.Message) []gateway.Message {
	out := make([]gateway.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, gateway.Message{Role: gateway.Role(m.Role), Content: m.Content})
	}
	return out
}
