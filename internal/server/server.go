package server

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/coder/websocket"
	"github.com/grandcat/zeroconf"

	"github.com/tablelink/tablelink/internal/relay"
	"github.com/tablelink/tablelink/internal/server/middleware"
	"github.com/tablelink/tablelink/pkg/bus"
	"github.com/tablelink/tablelink/pkg/config"
)

// mdnsService is the service type clients browse for on the LAN.
const mdnsService = "_tablelink._tcp"

type App struct {
	logger *slog.Logger
	relay  *relay.Relay
	http   *http.Server
	config *config.Config
	mdns   *zeroconf.Server

	ctx context.Context
}

func NewApp(logger *slog.Logger, rootContx context.Context, cfg *config.Config, broadcaster bus.Broadcaster) *App {
	registry := relay.NewInMemoryRegistry(logger)
	rly := relay.New(logger, broadcaster, registry, relay.Config{
		SendBuffer:   cfg.Relay.SendBuffer,
		ReadTimeout:  cfg.Transport.ReadTimeout,
		MoveThrottle: cfg.Relay.MoveThrottle,
	})

	app := &App{
		logger: logger,
		relay:  rly,
		config: cfg,
		ctx:    rootContx,
	}

	mux := http.NewServeMux()
	upgradeHandler := http.HandlerFunc(app.upgradeHandler)
	mux.Handle("/ws",
		middleware.Chain(upgradeHandler,
			middleware.RequestMetadataMiddleware(),
			middleware.NewRequestLogger(app.logger),
			middleware.NewConnectionLimiter(
				logger,
				registry.ClientCountForIP,
				app.config.Server.ConnectionLimit,
			),
		),
	)
	mux.HandleFunc("/health", app.healthHandler)
	mux.Handle("/metrics", metricsHandler(registry))

	app.http = &http.Server{Addr: app.config.Server.Address, Handler: mux, BaseContext: func(l net.Listener) context.Context {
		return app.ctx
	}}

	return app
}

func (a *App) Run() error {
	go func() {
		a.logger.Info("Server starting", slog.String("addr", a.http.Addr))
		if err := a.http.ListenAndServe(); err != http.ErrServerClosed {
			a.logger.Error("HTTP server failed", slog.Any("error", err))
		}
	}()

	if a.config.Discovery.Enabled {
		a.advertise()
	}

	<-a.ctx.Done()
	return a.Shutdown()
}

// advertise registers the relay over mDNS so LAN clients can find it
// without typing an address. Failure is logged, never fatal.
func (a *App) advertise() {
	port, err := portFromAddress(a.config.Server.Address)
	if err != nil {
		a.logger.Warn("Cannot advertise over mDNS", slog.Any("error", err))
		return
	}

	instance := a.config.Discovery.Instance
	if instance == "" {
		instance = "tablelink"
	}
	mdns, err := zeroconf.Register(instance, mdnsService, "local.", port, nil, nil)
	if err != nil {
		a.logger.Warn("mDNS registration failed", slog.Any("error", err))
		return
	}
	a.mdns = mdns
	a.logger.Info("Advertising over mDNS", slog.String("instance", instance), slog.Int("port", port))
}

func portFromAddress(addr string) (int, error) {
	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(portStr)
}

func (a *App) upgradeHandler(w http.ResponseWriter, r *http.Request) {
	reqMeta, ok := middleware.ReqMetadataFrom(r.Context())
	if !ok {
		a.logger.Error("Upgrade handler could not find request metadata in context. Check middleware order.")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	wsConn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		a.logger.Error("Failed to accept websocket connection", slog.Any("error", err))
		return
	}

	a.relay.HandleConnection(r.Context(), wsConn, reqMeta.IP)
}

func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// graceful shutdown sequence.
func (a *App) Shutdown() error {
	a.logger.Info("Shutting down server...")
	if a.mdns != nil {
		a.mdns.Shutdown()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.http.Shutdown(shutdownCtx); err != nil {
		return err
	}

	// Request contexts derive from the root context, so cancelled
	// connections are already unwinding; wait for them to finish.
	a.relay.Wait()
	a.logger.Info("Server shut down gracefully.")
	return nil
}
