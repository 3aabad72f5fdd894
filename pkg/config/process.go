// Package config loads TrustWrapper's two configuration layers:
// process-level settings from the environment (ProcessConfig) and the
// hot-reloadable PolicyConfig document that drives verification
// behaviour (schema-validated, semver-gated, atomically swapped).
package config

import "os"

// ProcessConfig holds the settings read once at process startup —
// everything that cannot change without a restart.
type ProcessConfig struct {
	ListenAddr   string
	LogLevel     string
	PolicyPath   string
	ProofScheme  string
	RedisURL     string
	AuditSinkDSN string
	ExposureDSN  string
}

// LoadProcess reads ProcessConfig from the environment, applying the
// same safe-default-in-dev-mode convention as the rest of the stack.
func LoadProcess() *ProcessConfig {
	listenAddr := os.Getenv("TRUSTWRAPPER_LISTEN_ADDR")
	if listenAddr == "" {
		listenAddr = ":8080"
	}

	logLevel := os.Getenv("TRUSTWRAPPER_LOG_LEVEL")
	if logLevel == "" {
		logLevel = "INFO"
	}

	policyPath := os.Getenv("TRUSTWRAPPER_CONFIG")
	if policyPath == "" {
		policyPath = "policy.yaml"
	}

	proofScheme := os.Getenv("TRUSTWRAPPER_PROOF_SCHEME")
	if proofScheme == "" {
		proofScheme = "HASH_BINDING_ONLY"
	}

	return &ProcessConfig{
		ListenAddr:   listenAddr,
		LogLevel:     logLevel,
		PolicyPath:   policyPath,
		ProofScheme:  proofScheme,
		RedisURL:     os.Getenv("TRUSTWRAPPER_REDIS_URL"),
		AuditSinkDSN: os.Getenv("TRUSTWRAPPER_AUDIT_DSN"),
		ExposureDSN:  os.Getenv("TRUSTWRAPPER_EXPOSURE_DSN"),
	}
}
