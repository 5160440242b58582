package main

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"sync"

	"github.com/goccy/go-yaml"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/scitags/rtnl/backends/prometheus"
	"github.com/scitags/rtnl/cmd/subcmd"
	"github.com/scitags/rtnl/internal/linkstate"
	"github.com/scitags/rtnl/netlink"
	"github.com/scitags/rtnl/plugins/api"
)

//go:embed conf-schema.json
var confSchema []byte

const confSchemaURL = "https://github.com/scitags/rtnl/conf-schema.json"

var compileSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(confSchema))
	if err != nil {
		return nil, fmt.Errorf("error unmarshalling the embedded schema: %w", err)
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource(confSchemaURL, doc); err != nil {
		return nil, fmt.Errorf("error adding the embedded schema: %w", err)
	}

	return c.Compile(confSchemaURL)
})

// Config mirrors the configuration file. Sections left out of the file come
// back filled with that component's defaults, except for api and prometheus
// which stay nil so that serve leaves them out.
type Config struct {
	Netlink    *netlink.Config    `yaml:"netlink"`
	Api        *api.Config        `yaml:"api"`
	Prometheus *prometheus.Config `yaml:"prometheus"`
	LinkState  *linkstate.Config  `yaml:"linkState"`
}

func (c Config) String() string {
	m, err := yaml.MarshalWithOptions(c, yaml.Indent(2), yaml.IndentSequence(true))
	if err != nil {
		return "marshalling error..."
	}
	return string(m)
}

func (c *Config) UnmarshalYAML(b []byte) error {
	// Needed to break recursive calls into UnmarshalYAML
	type config Config

	def := &config{}

	if err := yaml.Unmarshal(b, def); err != nil {
		return err
	}

	if def.Netlink == nil {
		nc := netlink.DefaultConfig
		def.Netlink = &nc
	}

	if def.LinkState == nil {
		def.LinkState = &linkstate.Config{}
		if err := yaml.Unmarshal([]byte("{}"), def.LinkState); err != nil {
			return err
		}
	}

	*c = Config(*def)

	return nil
}

func (c *Config) apply(env *subcmd.Env) {
	env.Netlink = *c.Netlink
	env.LinkState = *c.LinkState
	env.Api = c.Api
	env.Prometheus = c.Prometheus
}

// ParseConf validates b against the embedded schema before unmarshalling it.
// An empty document yields the defaults.
func ParseConf(b []byte) (*Config, error) {
	if len(bytes.TrimSpace(b)) == 0 {
		b = []byte("{}")
	}

	j, err := yaml.YAMLToJSON(b)
	if err != nil {
		return nil, fmt.Errorf("error converting the configuration to JSON: %w", err)
	}

	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(j))
	if err != nil {
		return nil, fmt.Errorf("error unmarshalling the configuration as JSON: %w", err)
	}

	sch, err := compileSchema()
	if err != nil {
		return nil, fmt.Errorf("error compiling the schema: %w", err)
	}

	if err := sch.Validate(inst); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	conf := Config{}
	if err := yaml.Unmarshal(b, &conf); err != nil {
		return nil, fmt.Errorf("error unmarshaling the configuration: %w", err)
	}

	return &conf, nil
}

func ReadConf(path string) (*Config, error) {
	r, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading the configuration file: %w", err)
	}

	return ParseConf(r)
}
