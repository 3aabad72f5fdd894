package config

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/trustwrapper/core/pkg/contracts"
)

// SupportedSchemaVersions is the semver range of PolicyConfig documents
// this build understands. A document outside the range is rejected
// rather than partially applied.
const SupportedSchemaVersions = ">= 1.0.0, < 2.0.0"

const policySchemaStrict = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["schema_version"],
	"additionalProperties": false,
	"properties": {
		"schema_version": {"type": "string"},
		"min_sources": {"type": "integer", "minimum": 1},
		"sample_window": {"type": "integer", "minimum": 1},
		"max_sample_age": {"type": "string"},
		"outlier_threshold": {"type": "number", "minimum": 0},
		"manipulation_alert_threshold": {"type": "number", "minimum": 0, "maximum": 1},
		"manipulation_weights": {
			"type": "object",
			"additionalProperties": false,
			"properties": {
				"alpha": {"type": "number"},
				"beta": {"type": "number"},
				"gamma": {"type": "number"}
			}
		},
		"max_market_staleness": {"type": "string"},
		"cache_ttl": {"type": "string"},
		"cache_bytes_budget": {"type": "integer", "minimum": 0},
		"approve_floor": {"type": "number"},
		"reject_ceiling": {"type": "number"},
		"risk_level_thresholds": {
			"type": "object",
			"additionalProperties": false,
			"properties": {
				"low": {"type": "number"},
				"medium": {"type": "number"},
				"high": {"type": "number"}
			}
		},
		"market_risk_thresholds": {
			"type": "object",
			"additionalProperties": false,
			"properties": {
				"volatility": {"type": "number"},
				"liquidity": {"type": "number"},
				"oversize": {"type": "number"},
				"manipulation": {"type": "number"}
			}
		},
		"hard_block_set": {"type": "integer", "minimum": 0},
		"trust_weights": {"type": "object"},
		"per_detector_deadline": {"type": "string"},
		"prove_deadline": {"type": "string"},
		"total_deadline": {"type": "string"},
		"min_latency_budget": {"type": "string"},
		"grace": {"type": "string"},
		"audit_backpressure_timeout": {"type": "string"},
		"tier": {"type": "string", "enum": ["community", "professional", "enterprise"]},
		"policy_version": {"type": "integer"},
		"code_version": {"type": "integer"},
		"early_block": {"type": "boolean"},
		"vol_reference": {"type": "number"},
		"max_position_frac": {"type": "number", "minimum": 0, "maximum": 1},
		"portfolio_value": {"type": "number", "minimum": 0},
		"allow_unknown": {"type": "boolean"},
		"policy_rules": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["id", "expression"],
				"properties": {
					"id": {"type": "string"},
					"expression": {"type": "string"},
					"factor": {"type": "string"},
					"enabled": {"type": "boolean"}
				}
			}
		}
	}
}`

var (
	strictSchema *jsonschema.Schema
	looseSchema  *jsonschema.Schema
)

func init() {
	c1 := jsonschema.NewCompiler()
	if err := c1.AddResource("policy-strict.json", bytes.NewReader([]byte(policySchemaStrict))); err != nil {
		panic(fmt.Sprintf("config: compile strict policy schema: %v", err))
	}
	strictSchema = c1.MustCompile("policy-strict.json")

	loose := strings.Replace(policySchemaStrict, `"additionalProperties": false,`, `"additionalProperties": true,`, 1)
	c2 := jsonschema.NewCompiler()
	if err := c2.AddResource("policy-loose.json", bytes.NewReader([]byte(loose))); err != nil {
		panic(fmt.Sprintf("config: compile loose policy schema: %v", err))
	}
	looseSchema = c2.MustCompile("policy-loose.json")
}

// ParsePolicyDocument decodes a YAML or JSON PolicyConfig document
// (format chosen by file extension), validates it against the strict
// schema unless the document itself sets allow_unknown, and checks
// schema_version against SupportedSchemaVersions.
func ParsePolicyDocument(path string, data []byte) (*contracts.PolicyConfig, error) {
	asJSON, err := toJSON(path, data)
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}

	var doc map[string]any
	if err := json.Unmarshal(asJSON, &doc); err != nil {
		return nil, fmt.Errorf("config: %s: decode: %w", path, err)
	}

	schema := strictSchema
	if allow, _ := doc["allow_unknown"].(bool); allow {
		schema = looseSchema
	}
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("config: %s: schema validation: %w", path, err)
	}

	version, _ := doc["schema_version"].(string)
	if err := checkSchemaVersion(version); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}

	cfg := contracts.Default()
	if err := json.Unmarshal(asJSON, cfg); err != nil {
		return nil, fmt.Errorf("config: %s: decode into PolicyConfig: %w", path, err)
	}
	return cfg, nil
}

func checkSchemaVersion(version string) error {
	if version == "" {
		return fmt.Errorf("schema_version is required")
	}
	v, err := semver.NewVersion(version)
	if err != nil {
		return fmt.Errorf("invalid schema_version %q: %w", version, err)
	}
	constraint, err := semver.NewConstraint(SupportedSchemaVersions)
	if err != nil {
		return fmt.Errorf("internal: bad constraint: %w", err)
	}
	if !constraint.Check(v) {
		return fmt.Errorf("schema_version %q not in supported range %q", version, SupportedSchemaVersions)
	}
	return nil
}

// toJSON normalizes YAML or JSON source bytes to JSON, since the
// schema validator only understands JSON documents.
func toJSON(path string, data []byte) ([]byte, error) {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return data, nil
	}
	var v any
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	return json.Marshal(v)
}

// Loader holds the currently active PolicyConfig and swaps it
// atomically on Reload, so concurrent verify() calls never observe a
// half-updated document.
type Loader struct {
	path     string
	current  atomic.Pointer[contracts.PolicyConfig]
	onReload []func(*contracts.PolicyConfig)
}

// NewLoader loads the PolicyConfig at path and returns a Loader primed
// with it.
func NewLoader(path string) (*Loader, error) {
	l := &Loader{path: path}
	if err := l.Reload(); err != nil {
		return nil, err
	}
	return l, nil
}

// OnReload registers a callback invoked, in registration order, every
// time Reload successfully swaps in a new PolicyConfig.
func (l *Loader) OnReload(fn func(*contracts.PolicyConfig)) {
	l.onReload = append(l.onReload, fn)
}

// Current returns the active PolicyConfig. Safe for concurrent use.
func (l *Loader) Current() *contracts.PolicyConfig {
	return l.current.Load()
}

// Reload re-reads and re-validates the document at l.path and swaps it
// in atomically. A failed reload leaves the previously active config
// in place.
func (l *Loader) Reload() error {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", l.path, err)
	}
	cfg, err := ParsePolicyDocument(l.path, data)
	if err != nil {
		return err
	}
	l.current.Store(cfg)
	for _, fn := range l.onReload {
		fn(cfg)
	}
	return nil
}

// Watch polls the file's modification time every interval and calls
// Reload when it changes, until ctx is cancelled. Reload errors are
// sent to onErr rather than stopping the watch loop.
func (l *Loader) Watch(ctx context.Context, interval time.Duration, onErr func(error)) {
	var lastMod time.Time
	if info, err := os.Stat(l.path); err == nil {
		lastMod = info.ModTime()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			info, err := os.Stat(l.path)
			if err != nil {
				if onErr != nil {
					onErr(fmt.Errorf("config: stat %s: %w", l.path, err))
				}
				continue
			}
			if !info.ModTime().After(lastMod) {
				continue
			}
			lastMod = info.ModTime()
			if err := l.Reload(); err != nil && onErr != nil {
				onErr(err)
			}
		}
	}
}
