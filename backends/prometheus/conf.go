package prometheus

import (
	"time"

	"github.com/goccy/go-yaml"
)

type Config struct {
	Log            bool   `yaml:"log"`
	BindAddress    string `yaml:"bindAddress"`
	Port           uint16 `yaml:"port"`
	PollIntervalMs int    `yaml:"pollIntervalMs"`

	// Qdiscs enables the per-qdisc gauges, which need a second netlink
	// socket for the tc family.
	Qdiscs bool `yaml:"qdiscs"`
}

func (c *Config) UnmarshalYAML(b []byte) error {
	// Needed to break recursive calls into UnmarshalYAML
	type config Config

	def := &config{
		Log:            true,
		BindAddress:    "127.0.0.1",
		Port:           9153,
		PollIntervalMs: 5000,
		Qdiscs:         false,
	}

	if err := yaml.Unmarshal(b, def); err != nil {
		return err
	}

	*c = Config(*def)

	return nil
}

func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}
