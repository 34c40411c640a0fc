package wire

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIncomingMessage_CapturesTypeAndWholeFrameAsPayload(t *testing.T) {
	raw := []byte(`{"type":"join_game","key":"abc1234567","ai_secret":"xyz"}`)

	var msg IncomingMessage
	require.NoError(t, json.Unmarshal(raw, &msg))
	assert.Equal(t, JoinGame, msg.Type)

	var req JoinGameRequest
	require.NoError(t, json.Unmarshal(msg.Payload, &req))
	assert.Equal(t, "abc1234567", req.Key)
	assert.Equal(t, "xyz", req.AISecret)
}

func TestIncomingMessage_RejectsMalformedJSON(t *testing.T) {
	var msg IncomingMessage
	err := json.Unmarshal([]byte(`not json`), &msg)
	assert.Error(t, err)
}

func TestOutgoingMessage_EnvelopeShape(t *testing.T) {
	msg := OutgoingMessage{
		MessageType: OpponentConnected,
		Data:        OpponentConnectedData{OpponentConnected: true},
	}
	data, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.JSONEq(t, `{"messageType":"opponent_connected","data":{"opponentConnected":true}}`, string(data))
}

func TestNewGameRequestRoundTrip(t *testing.T) {
	raw := []byte(`{"type":"new_game","vs":"computer","color":"white","size":19,"komi":6.5}`)
	var msg IncomingMessage
	require.NoError(t, json.Unmarshal(raw, &msg))
	assert.Equal(t, NewGame, msg.Type)

	var req NewGameRequest
	require.NoError(t, json.Unmarshal(msg.Payload, &req))
	assert.Equal(t, "computer", req.Vs)
	assert.Equal(t, "white", req.Color)
	assert.Equal(t, 19, req.Size)
	assert.Equal(t, 6.5, req.Komi)
}

func TestGameActionRequest_OmitsCoordsWhenAbsent(t *testing.T) {
	raw := []byte(`{"type":"game_action","key":"abc1234567","action_type":"pass_turn"}`)
	var msg IncomingMessage
	require.NoError(t, json.Unmarshal(raw, &msg))

	var req GameActionRequest
	require.NoError(t, json.Unmarshal(msg.Payload, &req))
	assert.Nil(t, req.Coords)
	assert.Equal(t, "pass_turn", string(req.ActionType))
}

func TestKeys_NeverCarriesASecretField(t *testing.T) {
	data, err := json.Marshal(Keys{White: "w", Black: "b"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"white":"w","black":"b"}`, string(data))
}

func TestOriginAllowed_SuffixMatch(t *testing.T) {
	assert.True(t, OriginAllowed("https://play.example.com", ".example.com"))
	assert.True(t, OriginAllowed("https://example.com", "example.com"))
	assert.False(t, OriginAllowed("https://evil.com", ".example.com"))
}

func TestOriginAllowed_ExactAnchor(t *testing.T) {
	assert.True(t, OriginAllowed("https://example.com", "^https://example.com"))
	assert.False(t, OriginAllowed("https://sub.example.com", "^https://example.com"))
}

func TestOriginAllowed_EmptyPatternRefusesEverything(t *testing.T) {
	assert.False(t, OriginAllowed("https://example.com", ""))
}
