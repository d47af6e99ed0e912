// Command tablelink-host is a demo host application: it joins a relay
// room with an in-memory grid adapter, issues a pairing code, and
// executes controller commands against the grid.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/tablelink/tablelink/internal/auth"
	"github.com/tablelink/tablelink/internal/host"
	"github.com/tablelink/tablelink/internal/pairing"
	"github.com/tablelink/tablelink/pkg/client"
	"github.com/tablelink/tablelink/pkg/config"
	"github.com/tablelink/tablelink/pkg/dice"
	"github.com/tablelink/tablelink/pkg/logging"
	"github.com/tablelink/tablelink/pkg/protocol"
)

func main() {
	url := flag.String("url", "ws://localhost:8080/ws", "relay websocket endpoint")
	room := flag.String("room", "", "room code to join (generated when empty)")
	flag.Parse()

	logger := logging.New(logging.LevelInfo)
	slog.SetDefault(logger)

	cfg, err := config.Load(logger, "config")
	if err != nil {
		logger.Error("Failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger = logging.New(logging.ParseLevel(cfg.Logging.Level))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	roomCode := *room
	if roomCode == "" {
		roomCode = pairing.GenerateRoomCode()
	}

	adapter := host.NewMemoryAdapter(dice.NewCryptoSource())
	adapter.AddEntity(host.Entity{
		ID:          "tok-1",
		ContainerID: "scene-1",
		Name:        "Brugh",
		OwnerID:     "player-1",
		OwnerName:   "Player One",
		X:           100,
		Y:           100,
		Stats: []host.Stat{
			{Label: "HP", Value: 24, Max: 24},
		},
		Abilities: []host.Ability{
			{ID: "itm-1", Name: "Second Wind", Uses: 1},
			{ID: "itm-2", Name: "Shield Bash", Uses: -1},
		},
	})

	pairingManager := pairing.NewManager(cfg.Pairing.TTL)
	authManager := auth.NewManager(cfg.Auth.TokenSecret, cfg.Auth.TokenTTL)
	if err := authManager.Register("player-1", "player", "swordfish"); err != nil {
		logger.Error("Failed to register demo user", slog.Any("error", err))
		os.Exit(1)
	}

	c := client.New(logger, client.Config{
		URL:        *url,
		Room:       roomCode,
		ClientType: protocol.ClientTypeHost,
	})

	bridge := host.NewBridge(logger, adapter, pairingManager, authManager, func(msgType protocol.MessageType, payload any) error {
		return c.Send(ctx, msgType, payload)
	})
	c.SetOnMessage(bridge.HandleMessage)
	c.SetOnOpen(c.MarkResumable)

	sess, err := bridge.IssuePairingCode("scene-1", "tok-1")
	if err != nil {
		logger.Error("Failed to issue pairing code", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("Host ready",
		slog.String("room", roomCode),
		slog.String("pairingCode", sess.Code),
	)

	sweepInterval := cfg.Pairing.SweepInterval
	if sweepInterval <= 0 {
		sweepInterval = time.Minute
	}
	go sweepExpired(ctx, logger, pairingManager, authManager, sweepInterval)

	if err := c.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Error("Host connection failed", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("Host shut down.")
}

// sweepExpired drops expired pairing codes and session tokens on a
// fixed interval.
func sweepExpired(ctx context.Context, logger *slog.Logger, pm *pairing.Manager, am *auth.Manager, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := pm.CleanupExpired(now); n > 0 {
				logger.Debug("Swept expired pairing sessions", slog.Int("count", n))
			}
			if n := am.CleanupExpired(now); n > 0 {
				logger.Debug("Swept expired session tokens", slog.Int("count", n))
			}
		}
	}
}
