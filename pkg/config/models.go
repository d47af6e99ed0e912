package config

import "time"

type Config struct {
	Server    ServerConfig
	Transport TransportConfig
	Relay     RelayConfig
	Bus       BusConfig
	Discovery DiscoveryConfig
	Pairing   PairingConfig
	Auth      AuthConfig
	Logging   LoggingConfig
}

type ServerConfig struct {
	Address         string
	ConnectionLimit ConnectionLimitConfig `mapstructure:"connectionLimit"`
}

type ConnectionLimitConfig struct {
	MaxPerIP int `mapstructure:"maxPerIP"`
}

type TransportConfig struct {
	ReadTimeout time.Duration `mapstructure:"readTimeout"`
}

type RelayConfig struct {
	// SendBuffer is the per-connection outbound queue capacity. Broadcasts
	// arriving while the queue is full are dropped for that connection.
	SendBuffer int `mapstructure:"sendBuffer"`
	// MoveThrottle drops MOVE messages arriving faster than this window per
	// connection. Zero disables server-side throttling.
	MoveThrottle time.Duration `mapstructure:"moveThrottle"`
}

type BusConfig struct {
	// Embedded starts an in-process NATS server; URL is ignored when true.
	Embedded bool   `mapstructure:"embedded"`
	URL      string `mapstructure:"url"`
}

type DiscoveryConfig struct {
	// Enabled advertises the relay over mDNS for LAN clients.
	Enabled  bool   `mapstructure:"enabled"`
	Instance string `mapstructure:"instance"`
}

type PairingConfig struct {
	TTL           time.Duration `mapstructure:"ttl"`
	SweepInterval time.Duration `mapstructure:"sweepInterval"`
}

type AuthConfig struct {
	TokenSecret string        `mapstructure:"tokenSecret"`
	TokenTTL    time.Duration `mapstructure:"tokenTTL"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}
