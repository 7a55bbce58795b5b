package chat

import (
	"strings"
	"testing"
	"time"

	"github.com/marketplace/orderflow/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateText(t *testing.T) {
	text, err := ValidateText("  hello  ")
	require.NoError(t, err)
	assert.Equal(t, "hello", text)

	_, err = ValidateText("   ")
	assert.Equal(t, "EMPTY_MESSAGE", shared.CodeOf(err))

	_, err = ValidateText(strings.Repeat("a", MaxMessageLength+1))
	assert.Equal(t, "MESSAGE_TOO_LONG", shared.CodeOf(err))
}

func TestConversationKey(t *testing.T) {
	assert.Equal(t, ConversationKey("u-1", "u-2"), ConversationKey("u-2", "u-1"))
}

func TestMerge(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	server := []Message{
		{ID: "m-2", Text: "second", SentAt: t0.Add(time.Minute)},
		{ID: "m-1", Text: "first", SentAt: t0},
		{ID: "m-1", Text: "first again", SentAt: t0},
	}
	pending := []Message{
		{ID: "local-1", Text: "draft", Pending: true},
		{ID: "m-2", Text: "acknowledged already", Pending: true},
	}

	got := Merge(server, pending)

	require.Len(t, got, 3)
	assert.Equal(t, "first", got[0].Text)
	assert.Equal(t, "second", got[1].Text)
	assert.Equal(t, "local-1", got[2].ID)
	assert.True(t, got[2].Pending)
}
