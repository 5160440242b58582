package linkstate

import (
	"time"

	"github.com/goccy/go-yaml"
)

type Config struct {
	// TimeoutMs bounds a state change. Zero means no bound at all.
	TimeoutMs int `yaml:"timeoutMs"`
}

func (c *Config) UnmarshalYAML(b []byte) error {
	// Needed to break recursive calls into UnmarshalYAML
	type config Config

	def := &config{
		TimeoutMs: 2000,
	}

	if err := yaml.Unmarshal(b, def); err != nil {
		return err
	}

	*c = Config(*def)

	return nil
}

func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}
