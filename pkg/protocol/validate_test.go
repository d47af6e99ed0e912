package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTypeGuards(t *testing.T) {
	tests := []struct {
		name    string
		guard   func(json.RawMessage) bool
		payload string
		want    bool
	}{
		{"join ok", IsJoinPayload, `{"room":"GAME1"}`, true},
		{"join missing room", IsJoinPayload, `{}`, false},
		{"join non-string room", IsJoinPayload, `{"room":7}`, false},
		{"identify ok", IsIdentifyPayload, `{"clientType":"host"}`, true},
		{"identify empty", IsIdentifyPayload, `{"clientType":""}`, false},
		{"pair ok", IsPairPayload, `{"code":"5599"}`, true},
		{"pair numeric code rejected", IsPairPayload, `{"code":5599}`, false},
		{"login ok", IsLoginPayload, `{"username":"sam","passwordHash":"abc"}`, true},
		{"login missing hash", IsLoginPayload, `{"username":"sam"}`, false},
		{"token login ok", IsLoginWithTokenPayload, `{"sessionToken":"t"}`, true},
		{"select ok", IsSelectTokenPayload, `{"entityId":"e1","containerId":"s1"}`, true},
		{"select missing container", IsSelectTokenPayload, `{"entityId":"e1"}`, false},
		{"move ok", IsMovePayload, `{"direction":"up","entityId":"e1"}`, true},
		{"move missing entity", IsMovePayload, `{"direction":"up"}`, false},
		{"ability ok", IsUseAbilityPayload, `{"entityId":"e1","itemId":"sword"}`, true},
		{"roll ok", IsRollDicePayload, `{"entityId":"e1","formula":"2d6"}`, true},
		{"roll with chat flag", IsRollDicePayload, `{"entityId":"e1","formula":"2d6","postToChat":true}`, true},
		{"roll bad chat flag", IsRollDicePayload, `{"entityId":"e1","formula":"2d6","postToChat":"yes"}`, false},
		{"roll missing formula", IsRollDicePayload, `{"entityId":"e1"}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.guard(json.RawMessage(tt.payload)))
		})
	}
}
