package mpcnet

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// PartyEntry describes one party in a YAML deployment config.
type PartyEntry struct {
	Address string `yaml:"addr"`
}

// ConnectConfig is a top-level block tuning mesh establishment. Both
// knobs are policy, not protocol: they only affect how patiently a party
// waits for its peers to come up.
type ConnectConfig struct {
	RetryInterval duration `yaml:"retry_interval"`
	Timeout       duration `yaml:"timeout"`
}

// Config is the YAML alternative to the plain-text peer file: the same
// roster, in the same party-id order, plus optional connection tuning.
type Config struct {
	Parties []PartyEntry   `yaml:"parties"`
	Connect *ConnectConfig `yaml:"connect"`
}

// ParseConfig parses a Config from a YAML file on disk.
func ParseConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDirectoryRead, err)
	}

	var cfg *Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDirectoryRead, err)
	}
	if cfg == nil {
		return nil, fmt.Errorf("%w: empty config", ErrDirectoryRead)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if len(c.Parties) == 0 {
		return fmt.Errorf("%w: no parties specified", ErrBadAddress)
	}
	for idx, party := range c.Parties {
		if err := checkAddress(party.Address); err != nil {
			return fmt.Errorf("%w: party %d: %q: %w", ErrBadAddress, idx, party.Address, err)
		}
	}
	return nil
}

// Directory expands the config into a topology for the party with the
// given own id.
func (c *Config) Directory(self int) (*Directory, error) {
	if self < 0 || self >= len(c.Parties) {
		return nil, fmt.Errorf("%w: id %d with %d peers", ErrOwnID, self, len(c.Parties))
	}
	peers := make([]*Peer, len(c.Parties))
	for id, party := range c.Parties {
		peers[id] = &Peer{ID: id, Addr: party.Address}
	}
	return &Directory{Self: self, Peers: peers}, nil
}

// Options maps the connect block onto the corresponding `Create` options.
func (c *Config) Options() []Option {
	if c.Connect == nil {
		return nil
	}
	return []Option{
		WithRetryInterval(time.Duration(c.Connect.RetryInterval)),
		WithConnectTimeout(time.Duration(c.Connect.Timeout)),
	}
}

// duration lets the config carry human-readable values like "10ms",
// which yaml.v3 does not decode into time.Duration on its own.
type duration time.Duration

func (d *duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return err
	}
	if parsed < 0 {
		return fmt.Errorf("duration %q must not be negative", raw)
	}
	*d = duration(parsed)
	return nil
}
