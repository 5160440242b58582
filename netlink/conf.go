package netlink

import (
	"github.com/goccy/go-yaml"
)

type Config struct {
	Log bool `yaml:"log"`

	SendBufferSize    int `yaml:"sendBufferSize"`
	ReceiveBufferSize int `yaml:"receiveBufferSize"`

	// MaxReceiveBufferSize caps how far the receive buffer may grow to
	// accommodate a single oversized datagram.
	MaxReceiveBufferSize int `yaml:"maxReceiveBufferSize"`
}

var DefaultConfig = Config{
	Log:                  true,
	SendBufferSize:       32768,
	ReceiveBufferSize:    32768,
	MaxReceiveBufferSize: 1 << 20,
}

func (c *Config) UnmarshalYAML(b []byte) error {
	// Needed to break recursive calls into UnmarshalYAML
	type config Config

	def := config(DefaultConfig)

	if err := yaml.Unmarshal(b, &def); err != nil {
		return err
	}

	*c = Config(def)

	return nil
}

func (c *Config) validate() error {
	if c.SendBufferSize <= 0 {
		return invalid("sendBufferSize", c.SendBufferSize)
	}
	if c.ReceiveBufferSize < sizeofNlMsghdr {
		return invalid("receiveBufferSize", c.ReceiveBufferSize)
	}
	if c.MaxReceiveBufferSize < c.ReceiveBufferSize {
		return invalid("maxReceiveBufferSize", c.MaxReceiveBufferSize)
	}
	return nil
}
