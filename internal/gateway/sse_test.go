package gateway

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collectEvents(t *testing.T, body string) ([]string, error) {
	t.Helper()
	var events []string
	err := readEvents(strings.NewReader(body), func(data []byte) error {
		events = append(events, string(data))
		return nil
	})
	return events, err
}

func TestReadEvents(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []string
	}{
		{
			name: "single events",
			body: "data: one\n\ndata: two\n\n",
			want: []string{"one", "two"},
		},
		{
			name: "multi-line data is joined",
			body: "data: first\ndata: second\n\n",
			want: []string{"first\nsecond"},
		},
		{
			name: "comments and other fields are ignored",
			body: ": keep-alive\nevent: message\nid: 7\ndata: payload\n\n",
			want: []string{"payload"},
		},
		{
			name: "CRLF line endings",
			body: "data: a\r\n\r\ndata: b\r\n\r\n",
			want: []string{"a", "b"},
		},
		{
			name: "trailing event without blank line",
			body: "data: a\n\ndata: last",
			want: []string{"a", "last"},
		},
		{
			name: "no space after colon",
			body: "data:{\"x\":1}\n\n",
			want: []string{`{"x":1}`},
		},
		{
			name: "empty data is skipped",
			body: "data:\n\ndata: real\n\n",
			want: []string{"real"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := collectEvents(t, tt.body)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReadEventsStop(t *testing.T) {
	var events []string
	err := readEvents(strings.NewReader("data: a\n\ndata: [DONE]\n\ndata: ignored\n\n"), func(data []byte) error {
		if string(data) == "[DONE]" {
			return errStopStream
		}
		events = append(events, string(data))
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, events)
}

func TestReadEventsCallbackError(t *testing.T) {
	boom := errors.New("boom")
	err := readEvents(strings.NewReader("data: a\n\n"), func([]byte) error { return boom })
	assert.ErrorIs(t, err, boom)
}

func TestReadEventsLongLine(t *testing.T) {
	long := strings.Repeat("x", 200*1024)
	got, err := collectEvents(t, "data: "+long+"\n\n")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Len(t, got[0], len(long))
}
