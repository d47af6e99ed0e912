package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEnvelope(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantType MessageType
		wantErr  bool
	}{
		{
			name:     "valid JOIN message",
			input:    `{"type":"JOIN","payload":{"room":"GAME1"}}`,
			wantType: TypeJoin,
		},
		{
			name:     "valid MOVE message",
			input:    `{"type":"MOVE","payload":{"direction":"up","entityId":"abc123"}}`,
			wantType: TypeMove,
		},
		{
			name:     "missing payload defaults to empty object",
			input:    `{"type":"IDENTIFY"}`,
			wantType: TypeIdentify,
		},
		{
			name:    "invalid JSON",
			input:   `{not valid json}`,
			wantErr: true,
		},
		{
			name:    "empty input",
			input:   ``,
			wantErr: true,
		},
		{
			name:    "JSON array",
			input:   `["JOIN"]`,
			wantErr: true,
		},
		{
			name:    "missing type",
			input:   `{"payload":{}}`,
			wantErr: true,
		},
		{
			name:    "non-string type",
			input:   `{"type":42,"payload":{}}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := ParseEnvelope([]byte(tt.input))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, env.Type)
			assert.True(t, json.Valid(env.Payload))
		})
	}
}

func TestMakeEnvelopeRoundTrip(t *testing.T) {
	total := 7
	tests := []struct {
		msgType MessageType
		payload any
	}{
		{TypeJoin, JoinPayload{Room: "TEST1"}},
		{TypeIdentify, IdentifyPayload{ClientType: "controller"}},
		{TypeRoomStatus, RoomStatusPayload{HostConnected: true}},
		{TypePair, PairPayload{Code: "5599"}},
		{TypePairSuccess, PairSuccessPayload{EntityID: "e1", EntityName: "Grog", OwnerName: "Sam"}},
		{TypePairFailed, PairFailedPayload{Reason: "expired"}},
		{TypeLogin, LoginPayload{Username: "sam", PasswordHash: "deadbeef"}},
		{TypeLoginWithToken, LoginWithTokenPayload{SessionToken: "tok"}},
		{TypeLoginSuccess, LoginSuccessPayload{UserID: "u1", UserName: "Sam", SessionToken: "tok", AvailableEntities: []EntitySummary{{EntityID: "e1", EntityName: "Grog", ContainerID: "scene1"}}}},
		{TypeLoginFailed, LoginFailedPayload{Reason: "bad password"}},
		{TypeSelectToken, SelectTokenPayload{EntityID: "e1", ContainerID: "scene1"}},
		{TypeSelectTokenSuccess, SelectTokenSuccessPayload{EntityID: "e1", ContainerID: "scene1"}},
		{TypeMove, MovePayload{Direction: "up", EntityID: "e1"}},
		{TypeMoveAck, MoveAckPayload{EntityID: "e1", X: 100, Y: 50}},
		{TypeUseAbility, UseAbilityPayload{EntityID: "e1", ItemID: "sword"}},
		{TypeUseAbilityResult, UseAbilityResultPayload{Success: true, Message: "hit"}},
		{TypeRollDice, RollDicePayload{EntityID: "e1", Formula: "2d6+3", PostToChat: true}},
		{TypeRollDiceResult, RollDiceResultPayload{Success: true, Total: &total, Breakdown: "[2 2] +3"}},
		{TypeActorInfo, ActorPayload{EntityID: "e1", Name: "Grog", SystemID: "grid"}},
		{TypeActorUpdate, ActorPayload{EntityID: "e1", Name: "Grog", SystemID: "grid"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.msgType), func(t *testing.T) {
			data, err := MakeEnvelope(tt.msgType, tt.payload)
			require.NoError(t, err)

			env, err := ParseEnvelope(data)
			require.NoError(t, err)
			assert.Equal(t, tt.msgType, env.Type)

			want, err := json.Marshal(tt.payload)
			require.NoError(t, err)
			assert.JSONEq(t, string(want), string(env.Payload))
		})
	}
}

func TestRouteIsTotal(t *testing.T) {
	env := &Envelope{Type: "SOMETHING_FROM_THE_FUTURE", Payload: emptyPayload}
	tag, payload := Route(env)
	assert.Equal(t, TagUnknown, tag)
	assert.Equal(t, emptyPayload, payload)

	known := map[MessageType]HandlerTag{
		TypeJoin:               TagJoin,
		TypeIdentify:           TagIdentify,
		TypeRoomStatus:         TagRoomStatus,
		TypePair:               TagPair,
		TypePairSuccess:        TagPairResult,
		TypePairFailed:         TagPairResult,
		TypeLogin:              TagLogin,
		TypeLoginWithToken:     TagLoginWithToken,
		TypeLoginSuccess:       TagLoginResult,
		TypeLoginFailed:        TagLoginResult,
		TypeSelectToken:        TagSelectToken,
		TypeSelectTokenSuccess: TagSelectTokenResult,
		TypeMove:               TagMove,
		TypeMoveAck:            TagMoveAck,
		TypeUseAbility:         TagUseAbility,
		TypeUseAbilityResult:   TagUseAbilityResult,
		TypeRollDice:           TagRollDice,
		TypeRollDiceResult:     TagRollDiceResult,
		TypeActorInfo:          TagActorData,
		TypeActorUpdate:        TagActorData,
	}
	for msgType, wantTag := range known {
		gotTag, _ := Route(&Envelope{Type: msgType, Payload: emptyPayload})
		assert.Equal(t, wantTag, gotTag, "type %s", msgType)
	}
}

func TestValidateRoomCode(t *testing.T) {
	valid := []string{"GAME", "game1", "ABC123", "test", "ABCD1234"}
	invalid := []string{"AB", "ABC", "ABCDEFGHI", "game-1", "game_1", "game 1", ""}

	for _, code := range valid {
		assert.True(t, ValidateRoomCode(code), "expected %q to be valid", code)
	}
	for _, code := range invalid {
		assert.False(t, ValidateRoomCode(code), "expected %q to be invalid", code)
	}
}
