package contracts

import (
	"encoding/json"
	"fmt"
	"time"
)

// Duration wraps time.Duration so PolicyConfig documents can write
// human durations ("150ms", "30s") in either YAML or JSON instead of
// raw nanosecond integers.
type Duration time.Duration

// Std returns the underlying time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		var ns int64
		if err2 := json.Unmarshal(b, &ns); err2 != nil {
			return fmt.Errorf("contracts: duration must be a string or integer nanoseconds: %w", err)
		}
		*d = Duration(ns)
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("contracts: invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

