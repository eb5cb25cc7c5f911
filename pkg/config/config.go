// SPDX-License-Identifier: GPL-2.0 OR BSD-3-Clause

// Package config reads and validates the bitswing configuration document.
//
// The document is TOML with a [general] table and zero or more [[rules]]
// blocks. Unknown keys are a hard error: a typo in a rate limit must not
// silently load a different policy. Duplicate ports are allowed and the
// last occurrence wins.
package config

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/bitswing/bitswing/pkg/shaper"
)

// XDP attachment modes. Generic is the software fallback available on any
// driver; native requires driver support and is opt-in.
const (
	XDPModeGeneric = "generic"
	XDPModeNative  = "native"
)

// General holds the [general] table.
type General struct {
	Interface           string `toml:"interface"`
	DefaultRateLimitBps uint32 `toml:"default_rate_limit_bps"`
	XDPMode             string `toml:"xdp_mode"`
}

// Rule holds one [[rules]] block. BurstBytes of zero means "not set" and
// defaults to the rule's rate, giving a one-second burst.
type Rule struct {
	Port         uint16 `toml:"port"`
	RateLimitBps uint32 `toml:"rate_limit_bps"`
	BurstBytes   uint32 `toml:"burst_bytes"`
}

// Burst returns the effective bucket capacity for the rule.
func (r Rule) Burst() uint32 {
	if r.BurstBytes == 0 {
		return r.RateLimitBps
	}
	return r.BurstBytes
}

// Config is the full configuration document.
type Config struct {
	General General `toml:"general"`
	Rules   []Rule  `toml:"rules"`
}

// Load reads, decodes and validates the configuration at path.
func Load(path string) (*Config, error) {
	var cfg Config
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("config %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return &cfg, nil
}

// Validate enforces the semantic constraints the decoder cannot express.
func (c *Config) Validate() error {
	if c.General.Interface == "" {
		return fmt.Errorf("general.interface is required")
	}
	switch c.General.XDPMode {
	case "", XDPModeGeneric, XDPModeNative:
	default:
		return fmt.Errorf("general.xdp_mode %q: must be %q or %q",
			c.General.XDPMode, XDPModeGeneric, XDPModeNative)
	}
	for i, r := range c.Rules {
		if r.Port == 0 {
			return fmt.Errorf("rules[%d]: port 0 is reserved for the default bucket", i)
		}
	}
	return nil
}

// Mode returns the effective XDP attachment mode.
func (c *Config) Mode() string {
	if c.General.XDPMode == "" {
		return XDPModeGeneric
	}
	return c.General.XDPMode
}

// Limits flattens the document into the desired map state: key 0 carries
// the default rate with a one-second burst, later duplicate ports
// override earlier ones.
func (c *Config) Limits() map[uint16]Limit {
	desired := make(map[uint16]Limit, len(c.Rules)+1)
	desired[shaper.DefaultKey] = Limit{
		Bps:   c.General.DefaultRateLimitBps,
		Burst: c.General.DefaultRateLimitBps,
	}
	for _, r := range c.Rules {
		desired[r.Port] = Limit{Bps: r.RateLimitBps, Burst: r.Burst()}
	}
	return desired
}

// Limit is the policy half of a rate-limit entry.
type Limit struct {
	Bps   uint32
	Burst uint32
}
