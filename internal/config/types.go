// Package config provides configuration loading for duskresolve using Viper.
// Configuration is loaded from YAML files with automatic environment variable binding.
//
// Environment variables use the DUSKRESOLVE_ prefix and underscore-separated keys:
//   - DUSKRESOLVE_SERVER_HOST -> server.host
//   - DUSKRESOLVE_SERVER_PORT -> server.port
//   - DUSKRESOLVE_UPSTREAM_SERVERS -> upstream.servers (comma-separated)
//   - DUSKRESOLVE_REDIS_ADDR -> redis.addr
package config

import (
	"os"
	"strings"
)

// ServerConfig contains the UDP/TCP listener settings.
type ServerConfig struct {
	Host       string `yaml:"host"        mapstructure:"host"`
	Port       int    `yaml:"port"        mapstructure:"port"`
	UDPWorkers int    `yaml:"udp_workers" mapstructure:"udp_workers"`
}

// UpstreamConfig contains the ordered forward-resolution upstream list.
type UpstreamConfig struct {
	Servers []string `yaml:"servers" mapstructure:"servers"`
}

// DoHConfig contains DNS-over-HTTPS listener settings.
type DoHConfig struct {
	Enabled  bool   `yaml:"enabled"   mapstructure:"enabled"`
	Host     string `yaml:"host"      mapstructure:"host"`
	Port     int    `yaml:"port"      mapstructure:"port"`
	CertFile string `yaml:"cert_file" mapstructure:"cert_file"`
	KeyFile  string `yaml:"key_file"  mapstructure:"key_file"`
}

// RedisConfig contains the answer cache's backing Redis connection settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"     mapstructure:"addr"`
	Password string `yaml:"password" mapstructure:"password"`
	DB       int    `yaml:"db"       mapstructure:"db"`
}

// StoreConfig contains the manual record store's SQLite database settings.
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level            string `yaml:"level"             mapstructure:"level"`
	Structured       bool   `yaml:"structured"        mapstructure:"structured"`
	StructuredFormat string `yaml:"structured_format" mapstructure:"structured_format"`
	IncludePID       bool   `yaml:"include_pid"       mapstructure:"include_pid"`
}

// APIConfig contains admin record-management API settings.
//
// Note: APIKey is intentionally treated as a secret and should not be returned by API endpoints.
type APIConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Host    string `yaml:"host"    mapstructure:"host"`
	Port    int    `yaml:"port"    mapstructure:"port"`
	APIKey  string `yaml:"api_key" mapstructure:"api_key"`
}

// Config is the root configuration structure.
type Config struct {
	Server   ServerConfig   `yaml:"server"   mapstructure:"server"`
	Upstream UpstreamConfig `yaml:"upstream" mapstructure:"upstream"`
	DoH      DoHConfig      `yaml:"doh"      mapstructure:"doh"`
	Redis    RedisConfig    `yaml:"redis"    mapstructure:"redis"`
	Store    StoreConfig    `yaml:"store"    mapstructure:"store"`
	API      APIConfig      `yaml:"api"      mapstructure:"api"`
	Logging  LoggingConfig  `yaml:"logging"  mapstructure:"logging"`
}

// ResolveConfigPath determines the config file path from flag or environment.
func ResolveConfigPath(flagValue string) string {
	if strings.TrimSpace(flagValue) != "" {
		return flagValue
	}
	if v := strings.TrimSpace(os.Getenv("DUSKRESOLVE_CONFIG")); v != "" {
		return v
	}
	return ""
}

// Load loads configuration from a YAML file with environment variable overrides.
// This is the main entry point for loading configuration.
//
// Configuration priority (highest to lowest):
//  1. Environment variables (DUSKRESOLVE_*)
//  2. Config file values
//  3. Default values
func Load(path string) (*Config, error) {
	return loadFromSource(path)
}
