package chat

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LuckySilver0021/atom/internal/auth/session"
	"github.com/LuckySilver0021/atom/internal/config"
	"github.com/LuckySilver0021/atom/internal/conversation"
	"github.com/LuckySilver0021/atom/internal/gateway"
	"github.com/LuckySilver0021/atom/internal/store/sqlite"
	"github.com/LuckySilver0021/atom/internal/testing/mock"
)

func TestSessionAgainstSQLiteAndModelServer(t *testing.T) {
	ctx := context.Background()

	db, err := sqlite.NewDB(filepath.Join(t.TempDir(), "atom.db"))
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, sqlite.NewUserRepo(db).SaveSession(ctx, session.User{ID: "u1", Name: "Ada"}, session.Session{}))

	server := mock.NewModelServer(mock.ModelScenario{
		Format: mock.FormatOpenAI,
		Responses: []mock.ModelResponse{
			{Chunks: []string{"Paris ", "is lovely."}, FinishReason: "stop"},
			{Chunks: []string{"You asked ", "about Paris."}, FinishReason: "stop"},
		},
	})
	defer server.Close()

	gw, err := gateway.New(config.ModelConfig{Provider: config.ProviderGroq, GroqAPIKey: "k", BaseURL: server.URL})
	require.NoError(t, err)

	repo := sqlite.NewConversationRepo(db)
	a, err := NewAssembler(repo)
	require.NoError(t, err)
	c := NewController(repo, a, gw)

	first, err := c.OpenConversation(ctx, "u1", conversation.ModeChat, "")
	require.NoError(t, err)
	res, err := c.RunTurn(ctx, first, "Tell me about Paris", nil)
	require.NoError(t, err)
	assert.Equal(t, "Paris is lovely.", res.Content)
	assert.Equal(t, "Tell me about Paris", first.Title)

	second, err := c.OpenConversation(ctx, "u1", conversation.ModeChat, "")
	require.NoError(t, err)
	res, err = c.RunTurn(ctx, second, "What did I ask before?", nil)
	require.NoError(t, err)
	assert.Equal(t, "You asked about Paris.", res.Content)

	// The second request carried the first conversation over as a system message.
	req, ok := server.LastRequest()
	require.True(t, ok)
	body := string(req.Body)
	assert.Contains(t, body, `"role":"system"`)
	assert.Contains(t, body, "Conversation: \\\"Tell me about Paris\\\"")
	assert.True(t, strings.Contains(body, "Assistant: Paris is lovely."))

	stored, err := repo.GetMessages(ctx, second.ID)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, "What did I ask before?", stored[0].Content)
	assert.Equal(t, "You asked about Paris.", stored[1].Content)
}

func TestTruncatedStreamDoesNotPersistReply(t *testing.T) {
	ctx := context.Background()

	db, err := sqlite.NewDB(filepath.Join(t.TempDir(), "atom.db"))
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, sqlite.NewUserRepo(db).SaveSession(ctx, session.User{ID: "u1", Name: "Ada"}, session.Session{}))

	server := mock.NewModelServer(mock.ModelScenario{
		Format:    mock.FormatOpenAI,
		Responses: []mock.ModelResponse{{Chunks: []string{"The answer is"}, Truncated: true}},
	})
	defer server.Close()

	gw, err := gateway.New(config.ModelConfig{Provider: config.ProviderGroq, GroqAPIKey: "k", BaseURL: server.URL})
	require.NoError(t, err)

	repo := sqlite.NewConversationRepo(db)
	a, err := NewAssembler(repo)
	require.NoError(t, err)
	c := NewController(repo, a, gw)

	conv, err := c.OpenConversation(ctx, "u1", conversation.ModeChat, "")
	require.NoError(t, err)

	res, err := c.RunTurn(ctx, conv, "What is the answer?", nil)
	require.Error(t, err)
	assert.Equal(t, gateway.KindStream, gateway.KindOf(err))
	assert.Equal(t, "The answer is", res.Content)
	assert.Nil(t, res.AssistantMessage)

	stored, err := repo.GetMessages(ctx, conv.ID)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, conversation.RoleUser, stored[0].Role)
}
