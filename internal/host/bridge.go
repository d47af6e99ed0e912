package host

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/tablelink/tablelink/internal/auth"
	"github.com/tablelink/tablelink/internal/pairing"
	"github.com/tablelink/tablelink/pkg/protocol"
)

// SendFunc delivers a reply envelope back towards the room. The bridge
// stays transport-agnostic; the host binary wires this to its relay
// client.
type SendFunc func(msgType protocol.MessageType, payload any) error

// Bridge receives controller traffic from the room and executes it
// against the host's Adapter: pairing handshakes, logins, entity
// selection, movement, abilities and dice rolls. One bridge serves one
// room.
type Bridge struct {
	logger  *slog.Logger
	adapter Adapter
	pairing *pairing.Manager
	auth    *auth.Manager
	clock   func() time.Time
	send    SendFunc
}

func NewBridge(logger *slog.Logger, adapter Adapter, pm *pairing.Manager, am *auth.Manager, send SendFunc) *Bridge {
	return &Bridge{
		logger:  logger,
		adapter: adapter,
		pairing: pm,
		auth:    am,
		clock:   time.Now,
		send:    send,
	}
}

// IssuePairingCode creates a fresh pairing session for an entity and
// returns it. The host UI displays the code to the player.
func (b *Bridge) IssuePairingCode(containerID, entityID string) (pairing.Session, error) {
	ref, err := b.adapter.ResolveEntity(containerID, entityID)
	if err != nil {
		return pairing.Session{}, err
	}
	sess := b.pairing.Create(ref.EntityID, ref.ContainerID, ref.OwnerID, b.clock())
	b.logger.Info("pairing code issued", "entityId", ref.EntityID, "code", sess.Code)
	return sess, nil
}

// HandleMessage processes one raw message received from the room.
// Malformed or unauthorized messages are logged and dropped; they never
// tear the connection down.
func (b *Bridge) HandleMessage(raw []byte) {
	env, err := protocol.ParseEnvelope(raw)
	if err != nil {
		b.logger.Warn("dropping unparseable message", "error", err)
		return
	}

	tag, payload := protocol.Route(env)
	switch tag {
	case protocol.TagPair:
		b.handlePair(payload)
	case protocol.TagLogin:
		b.handleLogin(payload)
	case protocol.TagLoginWithToken:
		b.handleLoginWithToken(payload)
	case protocol.TagSelectToken:
		b.handleSelectToken(payload)
	case protocol.TagMove:
		b.handleMove(payload)
	case protocol.TagUseAbility:
		b.handleUseAbility(payload)
	case protocol.TagRollDice:
		b.handleRollDice(payload)
	default:
		// Relay-level traffic and our own replies echoed back.
	}
}

func (b *Bridge) reply(msgType protocol.MessageType, payload any) {
	if err := b.send(msgType, payload); err != nil {
		b.logger.Error("failed to send reply", "type", msgType, "error", err)
	}
}

func (b *Bridge) handlePair(payload json.RawMessage) {
	if !protocol.IsPairPayload(payload) {
		b.reply(protocol.TypePairFailed, protocol.PairFailedPayload{Reason: "malformed pairing request"})
		return
	}
	var p protocol.PairPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		b.reply(protocol.TypePairFailed, protocol.PairFailedPayload{Reason: "malformed pairing request"})
		return
	}

	sess, ok := b.pairing.Validate(p.Code, b.clock())
	if !ok {
		b.logger.Warn("pairing rejected", "code", p.Code)
		b.reply(protocol.TypePairFailed, protocol.PairFailedPayload{Reason: "invalid or expired pairing code"})
		return
	}

	ref, err := b.adapter.ResolveEntity(sess.ContainerID, sess.EntityID)
	if err != nil {
		b.logger.Warn("paired entity not resolvable", "entityId", sess.EntityID, "error", err)
		b.reply(protocol.TypePairFailed, protocol.PairFailedPayload{Reason: "entity no longer available"})
		return
	}

	b.pairing.Promote(sess)
	b.logger.Info("controller paired", "entityId", ref.EntityID, "entityName", ref.Name)
	b.reply(protocol.TypePairSuccess, protocol.PairSuccessPayload{
		EntityID:   ref.EntityID,
		EntityName: ref.Name,
		OwnerName:  ref.OwnerName,
	})
	b.sendActor(protocol.TypeActorInfo, ref)
}

func (b *Bridge) handleLogin(payload json.RawMessage) {
	if !protocol.IsLoginPayload(payload) {
		b.reply(protocol.TypeLoginFailed, protocol.LoginFailedPayload{Reason: "malformed login request"})
		return
	}
	var p protocol.LoginPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		b.reply(protocol.TypeLoginFailed, protocol.LoginFailedPayload{Reason: "malformed login request"})
		return
	}

	user, token, err := b.auth.Login(p.Username, p.PasswordHash, b.clock())
	if err != nil {
		b.logger.Warn("login rejected", "username", p.Username)
		b.reply(protocol.TypeLoginFailed, protocol.LoginFailedPayload{Reason: "invalid credentials"})
		return
	}

	b.logger.Info("user logged in", "userId", user.ID, "userName", user.Name)
	b.reply(protocol.TypeLoginSuccess, protocol.LoginSuccessPayload{
		UserID:            user.ID,
		UserName:          user.Name,
		SessionToken:      token.Value,
		AvailableEntities: b.availableEntities(user.ID),
	})
}

func (b *Bridge) handleLoginWithToken(payload json.RawMessage) {
	if !protocol.IsLoginWithTokenPayload(payload) {
		b.reply(protocol.TypeLoginFailed, protocol.LoginFailedPayload{Reason: "malformed login request"})
		return
	}
	var p protocol.LoginWithTokenPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		b.reply(protocol.TypeLoginFailed, protocol.LoginFailedPayload{Reason: "malformed login request"})
		return
	}

	user, err := b.auth.ValidateToken(p.SessionToken, b.clock())
	if err != nil {
		b.logger.Warn("token login rejected", "error", err)
		b.reply(protocol.TypeLoginFailed, protocol.LoginFailedPayload{Reason: "session expired, please log in again"})
		return
	}

	b.logger.Info("user resumed session", "userId", user.ID)
	b.reply(protocol.TypeLoginSuccess, protocol.LoginSuccessPayload{
		UserID:            user.ID,
		UserName:          user.Name,
		SessionToken:      p.SessionToken,
		AvailableEntities: b.availableEntities(user.ID),
	})
}

func (b *Bridge) availableEntities(ownerID string) []protocol.EntitySummary {
	entities := b.adapter.ListEntities(ownerID)
	if entities == nil {
		entities = []protocol.EntitySummary{}
	}
	return entities
}

func (b *Bridge) handleSelectToken(payload json.RawMessage) {
	if !protocol.IsSelectTokenPayload(payload) {
		b.logger.Warn("dropping malformed token selection")
		return
	}
	var p protocol.SelectTokenPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		b.logger.Warn("dropping malformed token selection", "error", err)
		return
	}

	ref, err := b.adapter.ResolveEntity(p.ContainerID, p.EntityID)
	if err != nil {
		b.logger.Warn("selected entity not resolvable", "entityId", p.EntityID, "error", err)
		return
	}

	sess := b.pairing.Create(ref.EntityID, ref.ContainerID, ref.OwnerID, b.clock())
	b.pairing.Promote(sess)

	b.reply(protocol.TypeSelectTokenSuccess, protocol.SelectTokenSuccessPayload{
		EntityID:    ref.EntityID,
		ContainerID: ref.ContainerID,
	})
	b.sendActor(protocol.TypeActorInfo, ref)
}

// authorize returns the active binding for an entity, re-promoting a
// still-valid pairing session when the binding was lost (host restart).
func (b *Bridge) authorize(entityID string) (pairing.Session, bool) {
	if sess, ok := b.pairing.Binding(entityID); ok {
		return sess, true
	}
	sess, ok := b.pairing.FindByEntity(entityID, b.clock())
	if ok {
		b.pairing.Promote(sess)
	}
	return sess, ok
}

func moveDelta(direction string) (dx, dy float64, ok bool) {
	switch direction {
	case "up":
		return 0, -1, true
	case "down":
		return 0, 1, true
	case "left":
		return -1, 0, true
	case "right":
		return 1, 0, true
	default:
		return 0, 0, false
	}
}

func (b *Bridge) handleMove(payload json.RawMessage) {
	if !protocol.IsMovePayload(payload) {
		b.logger.Warn("dropping malformed movement")
		return
	}
	var p protocol.MovePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		b.logger.Warn("dropping malformed movement", "error", err)
		return
	}

	sess, ok := b.authorize(p.EntityID)
	if !ok {
		b.logger.Warn("unauthorized movement dropped", "entityId", p.EntityID)
		return
	}

	ref, err := b.adapter.ResolveEntity(sess.ContainerID, sess.EntityID)
	if err != nil {
		b.logger.Warn("moving entity not resolvable", "entityId", sess.EntityID, "error", err)
		return
	}

	dx, dy, ok := moveDelta(p.Direction)
	if !ok {
		b.logger.Warn("unknown movement direction dropped", "direction", p.Direction)
		return
	}

	x := ref.X + dx*ref.GridStep
	y := ref.Y + dy*ref.GridStep
	if err := b.adapter.ApplyMovement(ref, x, y); err != nil {
		b.logger.Error("movement failed", "entityId", ref.EntityID, "error", err)
		return
	}

	b.reply(protocol.TypeMoveAck, protocol.MoveAckPayload{EntityID: ref.EntityID, X: x, Y: y})
}

func (b *Bridge) handleUseAbility(payload json.RawMessage) {
	if !protocol.IsUseAbilityPayload(payload) {
		b.logger.Warn("dropping malformed ability use")
		return
	}
	var p protocol.UseAbilityPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		b.logger.Warn("dropping malformed ability use", "error", err)
		return
	}

	sess, ok := b.authorize(p.EntityID)
	if !ok {
		b.logger.Warn("unauthorized ability use dropped", "entityId", p.EntityID)
		return
	}

	ref, err := b.adapter.ResolveEntity(sess.ContainerID, sess.EntityID)
	if err != nil {
		b.logger.Warn("ability entity not resolvable", "entityId", sess.EntityID, "error", err)
		return
	}

	result, err := b.adapter.UseAbility(ref, p.ItemID)
	if err != nil {
		b.logger.Error("ability use failed", "entityId", ref.EntityID, "itemId", p.ItemID, "error", err)
		b.reply(protocol.TypeUseAbilityResult, protocol.UseAbilityResultPayload{
			Success: false,
			Message: "ability could not be used",
		})
		return
	}

	b.reply(protocol.TypeUseAbilityResult, protocol.UseAbilityResultPayload{
		Success: result.Success,
		Message: result.Message,
	})
	if result.Success {
		b.sendActor(protocol.TypeActorUpdate, ref)
	}
}

func (b *Bridge) handleRollDice(payload json.RawMessage) {
	if !protocol.IsRollDicePayload(payload) {
		b.logger.Warn("dropping malformed dice roll")
		return
	}
	var p protocol.RollDicePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		b.logger.Warn("dropping malformed dice roll", "error", err)
		return
	}

	result, err := b.adapter.RollDice(p.Formula)
	if err != nil {
		b.reply(protocol.TypeRollDiceResult, protocol.RollDiceResultPayload{
			Success: false,
			Error:   err.Error(),
		})
		return
	}

	total := result.Total()
	b.reply(protocol.TypeRollDiceResult, protocol.RollDiceResultPayload{
		Success:   true,
		Total:     &total,
		Breakdown: result.Breakdown(),
	})

	if p.PostToChat {
		text := result.Breakdown()
		if sess, ok := b.authorize(p.EntityID); ok {
			if ref, err := b.adapter.ResolveEntity(sess.ContainerID, sess.EntityID); err == nil {
				text = fmt.Sprintf("%s rolls %s", ref.Name, text)
			}
		}
		if err := b.adapter.PostChatMessage(text); err != nil {
			b.logger.Error("failed to post roll to chat", "error", err)
		}
	}
}

func (b *Bridge) sendActor(msgType protocol.MessageType, ref EntityRef) {
	actor, err := b.adapter.ExtractPanelData(ref)
	if err != nil {
		b.logger.Error("failed to extract panel data", "entityId", ref.EntityID, "error", err)
		return
	}
	b.reply(msgType, actor)
}
