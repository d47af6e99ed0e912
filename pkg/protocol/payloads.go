package protocol

// JoinPayload contains the room code for joining.
type JoinPayload struct {
	Room string `json:"room"`
}

// IdentifyPayload declares the sender's role. Consumed by the relay, never
// forwarded to the room topic.
type IdentifyPayload struct {
	ClientType string `json:"clientType"`
}

// RoomStatusPayload reports whether a host peer is present in the room.
type RoomStatusPayload struct {
	HostConnected bool `json:"hostConnected"`
}

// PairPayload contains the pairing code.
type PairPayload struct {
	Code string `json:"code"`
}

// PairSuccessPayload describes the entity the controller is now bound to.
type PairSuccessPayload struct {
	EntityID   string `json:"entityId"`
	EntityName string `json:"entityName"`
	OwnerName  string `json:"ownerName,omitempty"`
}

// PairFailedPayload contains the failure reason.
type PairFailedPayload struct {
	Reason string `json:"reason"`
}

// LoginPayload carries password-auth credentials.
type LoginPayload struct {
	Username     string `json:"username"`
	PasswordHash string `json:"passwordHash"`
}

// LoginWithTokenPayload re-authenticates with a stored session token.
type LoginWithTokenPayload struct {
	SessionToken string `json:"sessionToken"`
}

// EntitySummary is one controllable entity offered to a logged-in user.
type EntitySummary struct {
	EntityID    string `json:"entityId"`
	EntityName  string `json:"entityName"`
	ContainerID string `json:"containerId"`
}

type LoginSuccessPayload struct {
	UserID            string          `json:"userId"`
	UserName          string          `json:"userName"`
	SessionToken      string          `json:"sessionToken"`
	AvailableEntities []EntitySummary `json:"availableEntities"`
}

type LoginFailedPayload struct {
	Reason string `json:"reason"`
}

// SelectTokenPayload picks an entity to control.
type SelectTokenPayload struct {
	EntityID    string `json:"entityId"`
	ContainerID string `json:"containerId"`
}

type SelectTokenSuccessPayload struct {
	EntityID    string `json:"entityId"`
	ContainerID string `json:"containerId"`
}

// MovePayload contains movement direction.
type MovePayload struct {
	Direction string `json:"direction"`
	EntityID  string `json:"entityId"`
}

// MoveAckPayload confirms movement with the new position.
type MoveAckPayload struct {
	EntityID string  `json:"entityId"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
}

type UseAbilityPayload struct {
	EntityID string `json:"entityId"`
	ItemID   string `json:"itemId"`
}

type UseAbilityResultPayload struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type RollDicePayload struct {
	EntityID   string `json:"entityId"`
	Formula    string `json:"formula"`
	PostToChat bool   `json:"postToChat"`
}

type RollDiceResultPayload struct {
	Success   bool   `json:"success"`
	Total     *int   `json:"total,omitempty"`
	Breakdown string `json:"breakdown,omitempty"`
	Error     string `json:"error,omitempty"`
}

// StatBar is one gauge-style attribute on the actor panel (HP, mana, etc).
type StatBar struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
	Max   float64 `json:"max"`
}

// AbilityRef is one usable item or ability on the actor panel.
type AbilityRef struct {
	ItemID string `json:"itemId"`
	Name   string `json:"name"`
}

// ActorPayload is the normalized entity panel data carried by ACTOR_INFO
// and ACTOR_UPDATE, independent of the host's game system.
type ActorPayload struct {
	EntityID  string       `json:"entityId"`
	Name      string       `json:"name"`
	SystemID  string       `json:"systemId"`
	Stats     []StatBar    `json:"stats"`
	Abilities []AbilityRef `json:"abilities"`
}
