// Package config provides configuration loading and validation for duskresolve.
//
// Configuration is loaded with the following priority (highest to lowest):
//  1. Command-line flags (not handled here, see cmd/duskresolved/main.go)
//  2. YAML config file (if specified with --config)
//  3. Environment variables (DUSKRESOLVE_* prefix)
//  4. Hardcoded defaults
//
// Environment variables are mapped from DUSKRESOLVE_CATEGORY_SETTING format,
// e.g., DUSKRESOLVE_SERVER_HOST maps to server.host in YAML.
//
// All configuration is validated during Load() to ensure correctness early.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// initConfig sets up the config loader with defaults, env binding, and config file.
func initConfig(configPath string) (*viper.Viper, error) {
	v := viper.New()

	setDefaults(v)

	// Uses DUSKRESOLVE_ prefix: DUSKRESOLVE_SERVER_HOST -> server.host
	v.SetEnvPrefix("DUSKRESOLVE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return v, nil
}

// setDefaults configures all default values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 53)
	v.SetDefault("server.udp_workers", 64)

	// Upstream defaults
	v.SetDefault("upstream.servers", []string{"8.8.8.8:53", "1.1.1.1:53"})

	// DNS-over-HTTPS defaults
	v.SetDefault("doh.enabled", false)
	v.SetDefault("doh.host", "0.0.0.0")
	v.SetDefault("doh.port", 8443)
	v.SetDefault("doh.cert_file", "")
	v.SetDefault("doh.key_file", "")

	// Redis cache defaults
	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	// Manual record store defaults
	v.SetDefault("store.path", "duskresolve.db")

	// Logging defaults
	v.SetDefault("logging.level", "INFO")
	v.SetDefault("logging.structured", false)
	v.SetDefault("logging.structured_format", "json")
	v.SetDefault("logging.include_pid", false)

	// Admin API defaults
	// Default to disabled and bound to localhost for safety.
	v.SetDefault("api.enabled", false)
	v.SetDefault("api.host", "127.0.0.1")
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.api_key", "")
}

// loadFromSource loads configuration from file and environment.
func loadFromSource(configPath string) (*Config, error) {
	v, err := initConfig(configPath)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}

	loadServerConfig(v, cfg)
	loadUpstreamConfig(v, cfg)
	loadDoHConfig(v, cfg)
	loadRedisConfig(v, cfg)
	loadStoreConfig(v, cfg)
	loadLoggingConfig(v, cfg)
	loadAPIConfig(v, cfg)

	if err := normalizeConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadServerConfig(v *viper.Viper, cfg *Config) {
	cfg.Server.Host = v.GetString("server.host")
	cfg.Server.Port = v.GetInt("server.port")
	cfg.Server.UDPWorkers = v.GetInt("server.udp_workers")
}

func loadUpstreamConfig(v *viper.Viper, cfg *Config) {
	cfg.Upstream.Servers = parseServerList(v.GetStringSlice("upstream.servers"))
	if len(cfg.Upstream.Servers) == 0 {
		// Handle comma-separated string from env.
		if s := v.GetString("upstream.servers"); s != "" {
			cfg.Upstream.Servers = parseServerList(strings.Split(s, ","))
		}
	}
}

func loadDoHConfig(v *viper.Viper, cfg *Config) {
	cfg.DoH.Enabled = v.GetBool("doh.enabled")
	cfg.DoH.Host = v.GetString("doh.host")
	cfg.DoH.Port = v.GetInt("doh.port")
	cfg.DoH.CertFile = v.GetString("doh.cert_file")
	cfg.DoH.KeyFile = v.GetString("doh.key_file")
}

func loadRedisConfig(v *viper.Viper, cfg *Config) {
	cfg.Redis.Addr = v.GetString("redis.addr")
	cfg.Redis.Password = v.GetString("redis.password")
	cfg.Redis.DB = v.GetInt("redis.db")
}

func loadStoreConfig(v *viper.Viper, cfg *Config) {
	cfg.Store.Path = v.GetString("store.path")
}

func loadLoggingConfig(v *viper.Viper, cfg *Config) {
	cfg.Logging.Level = strings.ToUpper(v.GetString("logging.level"))
	cfg.Logging.Structured = v.GetBool("logging.structured")
	cfg.Logging.StructuredFormat = v.GetString("logging.structured_format")
	cfg.Logging.IncludePID = v.GetBool("logging.include_pid")
}

func loadAPIConfig(v *viper.Viper, cfg *Config) {
	cfg.API.Enabled = v.GetBool("api.enabled")
	cfg.API.Host = v.GetString("api.host")
	cfg.API.Port = v.GetInt("api.port")
	cfg.API.APIKey = v.GetString("api.api_key")
}

// parseServerList cleans up a list of upstream "host:port" addresses,
// defaulting a bare port-less host to :53.
func parseServerList(servers []string) []string {
	result := make([]string, 0, len(servers))
	for _, s := range servers {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, _, ok := strings.Cut(s, ":"); !ok {
			s = s + ":53"
		}
		result = append(result, s)
	}
	return result
}

// normalizeConfig validates and normalizes the configuration.
func normalizeConfig(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return errors.New("server.port must be 1..65535")
	}
	if cfg.Server.UDPWorkers <= 0 {
		cfg.Server.UDPWorkers = 64
	}

	if len(cfg.Upstream.Servers) == 0 {
		cfg.Upstream.Servers = []string{"8.8.8.8:53"}
	}

	if cfg.DoH.Enabled {
		if cfg.DoH.Port <= 0 || cfg.DoH.Port > 65535 {
			return errors.New("doh.port must be 1..65535")
		}
		if (cfg.DoH.CertFile == "") != (cfg.DoH.KeyFile == "") {
			return errors.New("doh.cert_file and doh.key_file must be set together")
		}
	}

	if cfg.Redis.Addr == "" {
		return errors.New("redis.addr must not be empty")
	}

	if cfg.Store.Path == "" {
		return errors.New("store.path must not be empty")
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "INFO"
	}
	if cfg.Logging.StructuredFormat == "" {
		cfg.Logging.StructuredFormat = "json"
	}

	if cfg.API.Host == "" {
		cfg.API.Host = "127.0.0.1"
	}
	if cfg.API.Enabled {
		if cfg.API.Port <= 0 || cfg.API.Port > 65535 {
			return errors.New("api.port must be 1..65535")
		}
	}

	return nil
}
