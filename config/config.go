// Package config loads typed, validated configuration for the snepd server
// daemon and the snepc client CLI, the way marmos91/dittofs's configuration
// layer and specterops/sharehound's cobra commands load theirs: viper for
// sourcing (flags, env, file), go-playground/validator for shape checks
// before the rest of the program ever sees the value.
package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// ServerConfig is the validated configuration for a snepd instance.
type ServerConfig struct {
	ServiceName         string `mapstructure:"service_name" validate:"required"`
	MaxAcceptableLength uint32 `mapstructure:"max_acceptable_length" validate:"required,max=4294967295"`
	RecvMIU             int    `mapstructure:"recv_miu" validate:"required,gt=0"`
	RecvBuf             int    `mapstructure:"recv_buf" validate:"required,gt=0"`
	Backlog             int    `mapstructure:"backlog" validate:"required,gt=0"`
	ListenAddr          string `mapstructure:"listen_addr" validate:"required,hostname_port"`
}

// ClientConfig is the validated configuration for a snepc invocation.
type ClientConfig struct {
	ServiceName      string `mapstructure:"service_name" validate:"required"`
	AcceptableLength uint32 `mapstructure:"acceptable_length" validate:"required"`
	DialAddr         string `mapstructure:"dial_addr" validate:"required,hostname_port"`
}

var validate = validator.New()

// defaults seeds the default session state a fresh server or client starts
// with: the well-known service name, a one-million-octet cap on inbound
// request length, and the listening socket's receive MIU/window.
func defaults(v *viper.Viper) {
	v.SetDefault("service_name", "urn:nfc:sn:snep")
	v.SetDefault("max_acceptable_length", 1_000_000)
	v.SetDefault("recv_miu", 1984)
	v.SetDefault("recv_buf", 15)
	v.SetDefault("backlog", 2)
	v.SetDefault("listen_addr", "localhost:4478")
	v.SetDefault("acceptable_length", 0x400)
	v.SetDefault("dial_addr", "localhost:4478")
}

// NewViper returns a viper.Viper pre-seeded with this package's defaults,
// ready for a cobra command to bind flags and environment variables onto
// before Load/LoadClient is called.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("SNEP")
	v.AutomaticEnv()
	defaults(v)
	return v
}

// Load decodes and validates a ServerConfig out of v.
func Load(v *viper.Viper) (ServerConfig, error) {
	var cfg ServerConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return ServerConfig{}, fmt.Errorf("config: decoding server config: %w", err)
	}
	if err := validate.Struct(cfg); err != nil {
		return ServerConfig{}, fmt.Errorf("config: invalid server config: %w", err)
	}
	return cfg, nil
}

// LoadClient decodes and validates a ClientConfig out of v.
func LoadClient(v *viper.Viper) (ClientConfig, error) {
	var cfg ClientConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return ClientConfig{}, fmt.Errorf("config: decoding client config: %w", err)
	}
	if err := validate.Struct(cfg); err != nil {
		return ClientConfig{}, fmt.Errorf("config: invalid client config: %w", err)
	}
	return cfg, nil
}
