// Package protocol defines the wire envelope, message payloads, and
// structural validators shared by the relay, the host bridge, and clients.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
)

// MessageType identifies the kind of message.
type MessageType string

const (
	TypeJoin               MessageType = "JOIN"
	TypeIdentify           MessageType = "IDENTIFY"
	TypeRoomStatus         MessageType = "ROOM_STATUS"
	TypePair               MessageType = "PAIR"
	TypePairSuccess        MessageType = "PAIR_SUCCESS"
	TypePairFailed         MessageType = "PAIR_FAILED"
	TypeLogin              MessageType = "LOGIN"
	TypeLoginWithToken     MessageType = "LOGIN_WITH_TOKEN"
	TypeLoginSuccess       MessageType = "LOGIN_SUCCESS"
	TypeLoginFailed        MessageType = "LOGIN_FAILED"
	TypeSelectToken        MessageType = "SELECT_TOKEN"
	TypeSelectTokenSuccess MessageType = "SELECT_TOKEN_SUCCESS"
	TypeMove               MessageType = "MOVE"
	TypeMoveAck            MessageType = "MOVE_ACK"
	TypeUseAbility         MessageType = "USE_ABILITY"
	TypeUseAbilityResult   MessageType = "USE_ABILITY_RESULT"
	TypeRollDice           MessageType = "ROLL_DICE"
	TypeRollDiceResult     MessageType = "ROLL_DICE_RESULT"
	TypeActorInfo          MessageType = "ACTOR_INFO"
	TypeActorUpdate        MessageType = "ACTOR_UPDATE"
)

// ClientType identifies the role of a room member.
type ClientType string

const (
	ClientTypeUnknown    ClientType = ""
	ClientTypeHost       ClientType = "host"
	ClientTypeController ClientType = "controller"
)

// WebSocket close codes sent on protocol violations.
const (
	CloseProtocolError   = 4001
	CloseInvalidRoom     = 4002
	CloseSubscribeFailed = 4003
)

// roomCodeRegex validates room codes: 4-8 alphanumeric characters.
var roomCodeRegex = regexp.MustCompile(`^[a-zA-Z0-9]{4,8}$`)

// ValidateRoomCode checks if a room code is valid.
func ValidateRoomCode(code string) bool {
	return roomCodeRegex.MatchString(code)
}

// Envelope is the outer wrapper for all messages.
type Envelope struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

var emptyPayload = json.RawMessage(`{}`)

// ParseEnvelope extracts the message type and raw payload. The input must
// be a JSON object with a string "type" field; a missing payload defaults
// to an empty object.
func ParseEnvelope(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("malformed envelope: %w", err)
	}
	if env.Type == "" {
		return nil, errors.New("malformed envelope: missing type")
	}
	if len(env.Payload) == 0 {
		env.Payload = emptyPayload
	}
	return &env, nil
}

// MakeEnvelope creates a JSON message with the given type and payload.
// The payload shape is not validated; the caller owns the schema.
func MakeEnvelope(msgType MessageType, payload any) ([]byte, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	env := Envelope{
		Type:    msgType,
		Payload: payloadBytes,
	}
	return json.Marshal(env)
}

// HandlerTag names the handler responsible for a message type.
type HandlerTag int

const (
	// TagUnknown marks forward-compatible or foreign message types that a
	// component may silently ignore.
	TagUnknown HandlerTag = iota
	TagJoin
	TagIdentify
	TagRoomStatus
	TagPair
	TagPairResult
	TagLogin
	TagLoginWithToken
	TagLoginResult
	TagSelectToken
	TagSelectTokenResult
	TagMove
	TagMoveAck
	TagUseAbility
	TagUseAbilityResult
	TagRollDice
	TagRollDiceResult
	TagActorData
)

// Route maps an envelope to its handler tag and payload. It is total:
// unrecognized types route to TagUnknown rather than failing.
func Route(env *Envelope) (HandlerTag, json.RawMessage) {
	var tag HandlerTag
	switch env.Type {
	case TypeJoin:
		tag = TagJoin
	case TypeIdentify:
		tag = TagIdentify
	case TypeRoomStatus:
		tag = TagRoomStatus
	case TypePair:
		tag = TagPair
	case TypePairSuccess, TypePairFailed:
		tag = TagPairResult
	case TypeLogin:
		tag = TagLogin
	case TypeLoginWithToken:
		tag = TagLoginWithToken
	case TypeLoginSuccess, TypeLoginFailed:
		tag = TagLoginResult
	case TypeSelectToken:
		tag = TagSelectToken
	case TypeSelectTokenSuccess:
		tag = TagSelectTokenResult
	case TypeMove:
		tag = TagMove
	case TypeMoveAck:
		tag = TagMoveAck
	case TypeUseAbility:
		tag = TagUseAbility
	case TypeUseAbilityResult:
		tag = TagUseAbilityResult
	case TypeRollDice:
		tag = TagRollDice
	case TypeRollDiceResult:
		tag = TagRollDiceResult
	case TypeActorInfo, TypeActorUpdate:
		tag = TagActorData
	default:
		tag = TagUnknown
	}
	return tag, env.Payload
}
