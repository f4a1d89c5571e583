// Package config handles configuration for the CLI client.
package config

import "flag"

type Config struct {
	ServerEndpointAddr string
}

func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "http://localhost:8080"
}

func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()

	flag.StringVar(&cfg.ServerEndpointAddr, "a", cfg.ServerEndpointAddr, "server endpoint address")
	flag.Parse()

	return cfg
}
