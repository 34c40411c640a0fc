package store

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateKey_LengthAndAlphabet(t *testing.T) {
	key, err := generateKey()
	require.NoError(t, err)
	assert.Len(t, key, keyLength)
	for _, r := range key {
		assert.Contains(t, keyAlphabet, string(r))
	}
}

func TestGenerateKey_ProducesDistinctValues(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		key, err := generateKey()
		require.NoError(t, err)
		assert.False(t, seen[key], "generateKey produced a collision in a 1000-draw sample")
		seen[key] = true
	}
}

func TestQuoteIdent_EscapesDoubleQuotes(t *testing.T) {
	assert.Equal(t, `"game_status_abc"`, quoteIdent("game_status_abc"))
	assert.Equal(t, `"a""b"`, quoteIdent(`a"b`))
}

func TestChannelsFor_NamesAllThreeChannels(t *testing.T) {
	chans := channelsFor("KEY1234567")
	assert.Equal(t, [3]string{"game_status_KEY1234567", "chat_KEY1234567", "opponent_connected_KEY1234567"}, chans)
}

func TestParseChannel_RecoversKindAndKey(t *testing.T) {
	kind, key, ok := parseChannel("chat_abcdefghij")
	require.True(t, ok)
	assert.Equal(t, updateChat, kind)
	assert.Equal(t, "abcdefghij", key)
}

func TestParseChannel_RejectsUnknownChannel(t *testing.T) {
	_, _, ok := parseChannel("something_else")
	assert.False(t, ok)
}

func TestParseChannel_RoundTripsEveryChannelKind(t *testing.T) {
	for _, ch := range channelsFor("0123456789") {
		kind, key, ok := parseChannel(ch)
		require.True(t, ok)
		assert.Equal(t, "0123456789", key)
		assert.True(t, strings.HasPrefix(ch, channelPrefixFor(kind)))
	}
}

func channelPrefixFor(kind updateKind) string {
	switch kind {
	case updateGameStatus:
		return "game_status_"
	case updateChat:
		return "chat_"
	case updateOpponentConnected:
		return "opponent_connected_"
	default:
		return ""
	}
}
