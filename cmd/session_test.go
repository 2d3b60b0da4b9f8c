package cmd

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LuckySilver0021/atom/internal/conversation"
	"github.com/LuckySilver0021/atom/internal/formatting"
	"github.com/LuckySilver0021/atom/internal/testing/mock"
)

// chatFixture is a logged-in user with a groq-compatible model server.
type chatFixture struct {
	idp   *mock.IdPServer
	model *mock.ModelServer
	dir   string
}

func newChatFixture(t *testing.T, responses ...mock.ModelResponse) *chatFixture {
	t.Helper()

	idp := mock.NewIdPServer(mock.IdPConfig{})
	t.Cleanup(idp.Close)
	idp.AddSession("tok-1", "s1", mock.IdPUser{ID: "u1", Name: "Ada"})

	model := mock.NewModelServer(mock.ModelScenario{Format: mock.FormatOpenAI, Responses: responses})
	t.Cleanup(model.Close)

	dir := testConfigDir(t, fmt.Sprintf(`server:
  url: %s
model:
  provider: groq
  name: llama
  groqApiKey: key
  baseURL: %s
`, idp.URL, model.URL))
	storeCredential(t, dir, "tok-1", time.Now())

	return &chatFixture{idp: idp, model: model, dir: dir}
}

func withSessionInput(t *testing.T, lines ...string) {
	t.Helper()
	orig := sessionReader
	sessionReader = &lineReader{lines: lines}
	t.Cleanup(func() { sessionReader = orig })
}

func TestPickMode(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    conversation.Mode
		wantErr bool
	}{
		{name: "default", input: "\n", want: conversation.ModeChat},
		{name: "end of input", input: "", want: conversation.ModeChat},
		{name: "number", input: "3\n", want: conversation.ModeAgent},
		{name: "name", input: "Tool\n", want: conversation.ModeTool},
		{name: "retry after invalid", input: "9\n2\n", want: conversation.ModeTool},
		{name: "invalid at end of input", input: "nope", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			got, err := pickMode(bufio.NewReader(strings.NewReader(tt.input)), &out)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Contains(t, out.String(), "1) chat")
		})
	}
}

func TestWakeup_UnavailableMode(t *testing.T) {
	f := newChatFixture(t)

	out, err := executeCommand(t, "2\n", "wakeup", "--config-path", f.dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Hello, Ada!")
	assert.Contains(t, out, "The tool mode is not available yet.")
	assert.Empty(t, f.model.Requests())
}

func TestWakeup_RequiresLogin(t *testing.T) {
	dir := testConfigDir(t, serverConfig("http://127.0.0.1:1"))

	_, err := executeCommand(t, "1\n", "wakeup", "--config-path", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not logged in")
}

func TestChat(t *testing.T) {
	f := newChatFixture(t,
		mock.ModelResponse{Chunks: []string{"Hel", "lo, ", "world"}, FinishReason: "stop"},
	)
	withSessionInput(t, "Greet me", "exit")

	out, err := executeCommand(t, "", "chat", "--config-path", f.dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Hello, world")
	assert.Contains(t, out, "Goodbye!")

	// The conversation is listed afterwards.
	out, err = executeCommand(t, "", "conversations", "list", "--config-path", f.dir, "-o", "json")
	require.NoError(t, err)

	var views []formatting.ConversationView
	require.NoError(t, json.Unmarshal([]byte(out), &views))
	require.Len(t, views, 1)
	assert.Equal(t, "Greet me", views[0].Title)
	assert.Equal(t, 2, views[0].Messages)

	// Resuming by id replays the history.
	withSessionInput(t, "exit")
	out, err = executeCommand(t, "", "chat", "--config-path", f.dir, "--conversation", views[0].ID)
	require.NoError(t, err)
	assert.Contains(t, out, "Greet me")
	assert.Contains(t, out, "Hello, world")
	assert.Len(t, f.model.Requests(), 1)
}

func TestChat_InvalidMode(t *testing.T) {
	dir := testConfigDir(t, serverConfig("http://127.0.0.1:1"))

	_, err := executeCommand(t, "", "chat", "--config-path", dir, "--mode", "poetry")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestChat_MissingAPIKey(t *testing.T) {
	idp := mock.NewIdPServer(mock.IdPConfig{})
	defer idp.Close()
	idp.AddSession("tok-1", "s1", mock.IdPUser{ID: "u1", Name: "Ada"})

	dir := testConfigDir(t, serverConfig(idp.URL)+"model:\n  provider: groq\n")
	storeCredential(t, dir, "tok-1", time.Now())
	withSessionInput(t, "exit")

	_, err := executeCommand(t, "", "chat", "--config-path", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model.groqApiKey")
}
