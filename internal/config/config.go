// Package config loads zonectl's runtime configuration into a single
// immutable Config value at process startup. Nothing downstream reads
// viper (or any other global) directly — every component that needs a
// setting receives it through a constructor argument, per the
// dependency-injection rule: no hidden globals.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full set of settings the zonectl binaries need to wire
// their adapters and services.
type Config struct {
	// EncryptUserSecrets gates whether the authenticator decrypts a
	// principal's stored SecretKey through the configured CryptoAlgebra
	// before use, or treats it as already-plaintext. cmd/zonectl also
	// uses it to choose the AES-GCM algebra over the noop one. False is
	// only appropriate for the noop algebra in test/dev configurations.
	EncryptUserSecrets bool
	// CryptoKeyHex is the hex-encoded key material from which the
	// production crypto algebra derives its AES-256 key (by SHA-256)
	// when EncryptUserSecrets is true.
	CryptoKeyHex string

	SigV4Region  string
	SigV4Service string

	PostgresDSN string
	RedisAddr   string

	AnycastVIP       string
	AnycastInterface string
	AnycastAccount   string
	BGPLocalASN      uint32
	BGPPeerASN       uint32
	BGPPeerIP        string
	BGPRouterID      string

	HTTPListenAddr string

	HealthCheckInterval time.Duration
}

// Load reads configuration from ZONECTL_-prefixed environment
// variables (and an optional config file named zonectl.yaml/.json/.toml
// on the search paths below), applies defaults, and returns the
// resulting Config.
func Load() (*Config, error) {
	v := viper.New()

	v.SetEnvPrefix("ZONECTL")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetConfigName("zonectl")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/zonectl")

	v.SetDefault("encrypt_user_secrets", true)
	v.SetDefault("sigv4.region", "us-east-1")
	v.SetDefault("sigv4.service", "zonectl")
	v.SetDefault("http.listen_addr", ":8080")
	v.SetDefault("anycast.interface", "lo")
	v.SetDefault("anycast.account", "system")
	v.SetDefault("bgp.router_id", "")
	v.SetDefault("health_check_interval", "10s")

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	interval, err := time.ParseDuration(v.GetString("health_check_interval"))
	if err != nil {
		return nil, fmt.Errorf("invalid health_check_interval %q: %w", v.GetString("health_check_interval"), err)
	}

	cfg := &Config{
		EncryptUserSecrets: v.GetBool("encrypt_user_secrets"),
		CryptoKeyHex:       v.GetString("crypto_key_hex"),

		SigV4Region:  v.GetString("sigv4.region"),
		SigV4Service: v.GetString("sigv4.service"),

		PostgresDSN: v.GetString("postgres_dsn"),
		RedisAddr:   v.GetString("redis_addr"),

		AnycastVIP:       v.GetString("anycast.vip"),
		AnycastInterface: v.GetString("anycast.interface"),
		AnycastAccount:   v.GetString("anycast.account"),
		BGPLocalASN:      v.GetUint32("bgp.local_asn"),
		BGPPeerASN:       v.GetUint32("bgp.peer_asn"),
		BGPPeerIP:        v.GetString("bgp.peer_ip"),
		BGPRouterID:      v.GetString("bgp.router_id"),

		HTTPListenAddr: v.GetString("http.listen_addr"),

		HealthCheckInterval: interval,
	}

	if cfg.EncryptUserSecrets && cfg.CryptoKeyHex == "" {
		return nil, fmt.Errorf("crypto_key_hex is required when encrypt_user_secrets is true")
	}
	if cfg.PostgresDSN == "" {
		return nil, fmt.Errorf("postgres_dsn is required")
	}

	return cfg, nil
}
