package ratelimit

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// tuningFile is the optional RATE_LIMIT_TUNING_FILE document shape: each
// class maps to a window (seconds) and max count, overriding DefaultRules.
type tuningFile struct {
	Classes map[string]struct {
		WindowSeconds int `yaml:"window_seconds"`
		Max           int `yaml:"max"`
	} `yaml:"classes"`
}

// LoadTuning reads a YAML tuning file and returns the resulting rule
// set, starting from DefaultRules and overriding only the classes the
// file mentions.
func LoadTuning(path string) (map[Class]Rule, error) {
	rules := DefaultRules()
	if path == "" {
		return rules, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ratelimit: read tuning file: %w", err)
	}

	var tf tuningFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("ratelimit: parse tuning file: %w", err)
	}

	for name, c := range tf.Classes {
		class := Class(name)
		if _, known := rules[class]; !known {
			continue
		}
		rule := rules[class]
		if c.WindowSeconds > 0 {
			rule.Window = time.Duration(c.WindowSeconds) * time.Second
		}
		if c.Max > 0 {
			rule.Max = c.Max
		}
		rules[class] = rule
	}

	return rules, nil
}
