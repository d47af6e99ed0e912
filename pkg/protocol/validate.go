package protocol

import (
	"encoding/json"

	"github.com/tidwall/gjson"
)

// Structural type guards. Each checks required fields and primitive types
// only; deep business validation belongs to the handler acting on the
// payload.

func hasString(payload json.RawMessage, path string) bool {
	v := gjson.GetBytes(payload, path)
	return v.Exists() && v.Type == gjson.String && v.String() != ""
}

func IsJoinPayload(payload json.RawMessage) bool {
	return hasString(payload, "room")
}

func IsIdentifyPayload(payload json.RawMessage) bool {
	return hasString(payload, "clientType")
}

func IsPairPayload(payload json.RawMessage) bool {
	return hasString(payload, "code")
}

func IsLoginPayload(payload json.RawMessage) bool {
	return hasString(payload, "username") && hasString(payload, "passwordHash")
}

func IsLoginWithTokenPayload(payload json.RawMessage) bool {
	return hasString(payload, "sessionToken")
}

func IsSelectTokenPayload(payload json.RawMessage) bool {
	return hasString(payload, "entityId") && hasString(payload, "containerId")
}

func IsMovePayload(payload json.RawMessage) bool {
	return hasString(payload, "direction") && hasString(payload, "entityId")
}

func IsUseAbilityPayload(payload json.RawMessage) bool {
	return hasString(payload, "entityId") && hasString(payload, "itemId")
}

// IsRollDicePayload requires entityId and formula; postToChat is optional
// but must be a boolean when present.
func IsRollDicePayload(payload json.RawMessage) bool {
	if !hasString(payload, "entityId") || !hasString(payload, "formula") {
		return false
	}
	p := gjson.GetBytes(payload, "postToChat")
	return !p.Exists() || p.IsBool()
}
