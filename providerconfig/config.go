// Package providerconfig loads the provider's JSON-encoded startup
// configuration: which parallelism schema to run and its parameters.
package providerconfig

import (
	"os"

	jsoniter "github.com/json-iterator/go"

	"github.com/meshframe/actorcore/errcode"
)

var jsonAPI = jsoniter.ConfigFastest

// SchemaKind names a parallelism schema by its §4.5 section.
type SchemaKind string

const (
	SchemaPerModel SchemaKind = "per-model"
	SchemaPool     SchemaKind = "pool"
)

// Config is the provider's startup configuration.
type Config struct {
	Schema        SchemaKind `json:"schema"`
	TargetPools   int        `json:"target_pools,omitempty"`
	TargetDensity int        `json:"target_density,omitempty"`
	LogLevel      string     `json:"log_level,omitempty"`

	// DefaultSignalsEnabled governs whether Provider.Start registers the
	// built-in exit/suspend signals on its router.
	DefaultSignalsEnabled bool `json:"default_signals"`
	// DefaultUpdateRateHz, if nonzero, is applied to every container the
	// provider builds through its own default factory. Zero means
	// unthrottled.
	DefaultUpdateRateHz uint32 `json:"default_update_rate_hz,omitempty"`
}

// Default returns the per-model schema with no pool tuning and the
// built-in signals enabled, matching the dedicated-worker schema's
// zero-value defaults.
func Default() Config {
	return Config{Schema: SchemaPerModel, LogLevel: "info", DefaultSignalsEnabled: true}
}

// Load reads and decodes a provider config file on top of Default(), so
// any field the file omits keeps its Default() value.
func Load(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errcode.Wrap(errcode.ArgumentError, "Load", err)
	}
	cfg := Default()
	if err := jsonAPI.Unmarshal(raw, &cfg); err != nil {
		return Config{}, errcode.Wrap(errcode.InvalidData, "Load", err)
	}
	if cfg.Schema != SchemaPerModel && cfg.Schema != SchemaPool {
		return Config{}, errcode.New(errcode.ArgumentError, "Load", "schema must be \"per-model\" or \"pool\"")
	}
	return cfg, nil
}
