// Package config loads restmap client settings and declarative resource
// types from YAML.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/reoring/restmap"
	"github.com/reoring/restmap/client"
	"github.com/reoring/restmap/httptransport"
	"github.com/reoring/restmap/relation"
	"github.com/reoring/restmap/source"
)

// Config is the root configuration structure.
type Config struct {
	Client    ClientConfig     `yaml:"client"`
	Registry  string           `yaml:"registry"`
	Resources []ResourceConfig `yaml:"resources"`
}

// ClientConfig configures the HTTP transport and the manager.
type ClientConfig struct {
	BaseURL        string            `yaml:"base_url"`
	Timeout        time.Duration     `yaml:"timeout"`
	DateFormat     string            `yaml:"date_format"`
	DateTimeFormat string            `yaml:"datetime_format"`
	LogLevel       string            `yaml:"log_level"`   // "debug", "info", "warn", "error"
	JSONDriver     string            `yaml:"json_driver"` // "go-json" or "encoding/json"
	MaxBodyBytes   int64             `yaml:"max_body_bytes"`
	MaxDepth       int               `yaml:"max_depth"`
	RejectDupKeys  bool              `yaml:"reject_duplicate_keys"`
	Headers        map[string]string `yaml:"headers,omitempty"`
	Params         map[string]string `yaml:"params,omitempty"`
	StreamLists    bool              `yaml:"stream_lists"`
	Paging         *PagingConfig     `yaml:"paging,omitempty"`
}

// PagingConfig selects how lists spread over pages are fetched.
type PagingConfig struct {
	Style string `yaml:"style"` // "page_number" or "next_link"
	Param string `yaml:"param,omitempty"`
	Size  int    `yaml:"size,omitempty"`
	Key   string `yaml:"key,omitempty"`
}

// ResourceConfig declares one resource type.
type ResourceConfig struct {
	Name    string                    `yaml:"name"`
	ID      string                    `yaml:"id,omitempty"`
	Fields  []FieldConfig             `yaml:"fields"`
	Actions map[string]map[string]any `yaml:"actions,omitempty"`
}

// FieldConfig declares one field. Relation kinds use Target, Meta and
// SaveEmbedded; the other kinds ignore them.
type FieldConfig struct {
	Name         string         `yaml:"name"`
	Kind         string         `yaml:"kind"`
	Key          string         `yaml:"key,omitempty"`
	SaveKey      string         `yaml:"save_key,omitempty"`
	ReadOnly     bool           `yaml:"readonly,omitempty"`
	Target       string         `yaml:"target,omitempty"`
	Meta         map[string]any `yaml:"meta,omitempty"`
	SaveEmbedded bool           `yaml:"save_embedded,omitempty"`
}

// Field kinds.
const (
	KindString    = "string"
	KindInt       = "int"
	KindFloat     = "float"
	KindBool      = "bool"
	KindAny       = "any"
	KindDate      = "date"
	KindDateTime  = "datetime"
	KindPlain     = "plain"
	KindOneToMany = "one_to_many"
	KindManyToOne = "many_to_one"
)

// Paging styles.
const (
	PagingPageNumber = "page_number"
	PagingNextLink   = "next_link"
)

// EnvBaseURL overrides client.base_url.
const EnvBaseURL = "RESTMAP_BASE_URL"

// EnvLogLevel overrides client.log_level.
const EnvLogLevel = "RESTMAP_LOG_LEVEL"

var actions = map[string]restmap.Action{
	"get":    restmap.ActionGet,
	"list":   restmap.ActionList,
	"create": restmap.ActionCreate,
	"update": restmap.ActionUpdate,
}

// Load reads configuration from a YAML file. Environment variables in the
// file are expanded.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse([]byte(os.ExpandEnv(string(data))))
}

// Parse decodes a YAML document. Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	applyEnvOverrides(&cfg)
	setDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv(EnvBaseURL); v != "" {
		cfg.Client.BaseURL = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Client.LogLevel = v
	}
}

func setDefaults(cfg *Config) {
	if cfg.Client.LogLevel == "" {
		cfg.Client.LogLevel = "info"
	}
	if cfg.Client.Timeout == 0 {
		cfg.Client.Timeout = 30 * time.Second
	}
	if p := cfg.Client.Paging; p != nil {
		if p.Style == PagingPageNumber && p.Param == "" {
			p.Param = "page"
		}
		if p.Style == PagingNextLink && p.Key == "" {
			p.Key = "next"
		}
	}
	for i := range cfg.Resources {
		if cfg.Resources[i].ID == "" {
			cfg.Resources[i].ID = restmap.DefaultIDAttr
		}
	}
}

func validate(cfg *Config) error {
	var errs []error
	if _, err := zerolog.ParseLevel(cfg.Client.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("client.log_level: %w", err))
	}
	if _, ok := source.ByName(cfg.Client.JSONDriver); !ok {
		errs = append(errs, fmt.Errorf("client.json_driver: unknown driver %q", cfg.Client.JSONDriver))
	}
	if p := cfg.Client.Paging; p != nil && p.Style != PagingPageNumber && p.Style != PagingNextLink {
		errs = append(errs, fmt.Errorf("client.paging.style: unknown style %q", p.Style))
	}

	names := map[string]bool{}
	for _, rc := range cfg.Resources {
		if rc.Name == "" {
			errs = append(errs, errors.New("resources: name is required"))
			continue
		}
		if names[rc.Name] {
			errs = append(errs, fmt.Errorf("resources: duplicate resource %q", rc.Name))
		}
		names[rc.Name] = true
	}
	for _, rc := range cfg.Resources {
		for a := range rc.Actions {
			if _, ok := actions[a]; !ok {
				errs = append(errs, fmt.Errorf("%s.actions: unknown action %q", rc.Name, a))
			}
		}
		for _, fc := range rc.Fields {
			if fc.Name == "" {
				errs = append(errs, fmt.Errorf("%s.fields: name is required", rc.Name))
				continue
			}
			switch fc.Kind {
			case KindString, KindInt, KindFloat, KindBool, KindAny, KindDate, KindDateTime, KindPlain:
			case KindOneToMany, KindManyToOne:
				if fc.Target == "" {
					errs = append(errs, fmt.Errorf("%s.%s: target is required for %s", rc.Name, fc.Name, fc.Kind))
				} else if !names[fc.Target] {
					errs = append(errs, fmt.Errorf("%s.%s: unknown target %q", rc.Name, fc.Name, fc.Target))
				}
			default:
				errs = append(errs, fmt.Errorf("%s.%s: unknown kind %q", rc.Name, fc.Name, fc.Kind))
			}
		}
	}
	return errors.Join(errs...)
}

// BuildRegistry declares every configured resource type in a new registry.
// Relation targets are resolved by name, so resources may reference each
// other in any order.
func (c *Config) BuildRegistry() (*restmap.Registry, error) {
	reg := restmap.NewRegistry(c.Registry)
	for _, rc := range c.Resources {
		b := restmap.Define(rc.Name).ID(rc.ID)
		for _, fc := range rc.Fields {
			d, err := fc.descriptor()
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", rc.Name, fc.Name, err)
			}
			b.Field(fc.Name, d)
		}
		for name, m := range rc.Actions {
			a, ok := actions[name]
			if !ok {
				return nil, fmt.Errorf("%s: unknown action %q", rc.Name, name)
			}
			b.Action(a, restmap.Meta(m))
		}
		if _, err := reg.Register(b); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

func (fc FieldConfig) descriptor() (restmap.Descriptor, error) {
	var opts []restmap.FieldOption
	if fc.Key != "" {
		opts = append(opts, restmap.Key(fc.Key))
	}
	if fc.SaveKey != "" {
		opts = append(opts, restmap.SaveKey(fc.SaveKey))
	}
	if fc.ReadOnly {
		opts = append(opts, restmap.ReadOnly())
	}
	switch fc.Kind {
	case KindString:
		return restmap.String(opts...), nil
	case KindInt:
		return restmap.Int(opts...), nil
	case KindFloat:
		return restmap.Float(opts...), nil
	case KindBool:
		return restmap.Bool(opts...), nil
	case KindAny:
		return restmap.Any(opts...), nil
	case KindDate:
		return restmap.DateOnly(opts...), nil
	case KindDateTime:
		return restmap.DateTime(opts...), nil
	case KindPlain:
		return restmap.Plain(opts...), nil
	}

	ropts := []relation.Option{relation.Field(opts...)}
	if len(fc.Meta) > 0 {
		ropts = append(ropts, relation.WithMeta(restmap.Meta(fc.Meta)))
	}
	switch fc.Kind {
	case KindOneToMany:
		return relation.NewOneToMany(relation.Named(fc.Target), ropts...), nil
	case KindManyToOne:
		if fc.SaveEmbedded {
			ropts = append(ropts, relation.SaveEmbedded())
		}
		return relation.NewManyToOne(relation.Named(fc.Target), ropts...), nil
	}
	return nil, fmt.Errorf("unknown kind %q", fc.Kind)
}

// Level returns the configured log level.
func (c *Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.Client.LogLevel)
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}

// Decoder returns the JSON decoder described by the client settings.
func (c *Config) Decoder() source.Decoder {
	drv, _ := source.ByName(c.Client.JSONDriver)
	return source.Decoder{
		Driver: drv,
		Limits: source.Limits{
			MaxDepth:            c.Client.MaxDepth,
			MaxBytes:            c.Client.MaxBodyBytes,
			RejectDuplicateKeys: c.Client.RejectDupKeys,
		},
	}
}

// Paging returns the configured paging strategy, or nil.
func (c *Config) Paging() *httptransport.Paging {
	p := c.Client.Paging
	if p == nil {
		return nil
	}
	switch p.Style {
	case PagingPageNumber:
		return httptransport.PageNumber(p.Param, p.Size)
	case PagingNextLink:
		return httptransport.NextLink(p.Key)
	}
	return nil
}

// Requester builds the HTTP transport. opts are applied after the
// configured ones.
func (c *Config) Requester(opts ...httptransport.Option) (*httptransport.Requester, error) {
	if c.Client.BaseURL == "" {
		return nil, fmt.Errorf("client.base_url is required (or set %s)", EnvBaseURL)
	}
	if !strings.HasPrefix(c.Client.BaseURL, "http://") && !strings.HasPrefix(c.Client.BaseURL, "https://") {
		return nil, fmt.Errorf("client.base_url: %q is not an http(s) URL", c.Client.BaseURL)
	}
	base := []httptransport.Option{
		httptransport.WithClient(&http.Client{Timeout: c.Client.Timeout}),
		httptransport.WithDecoder(c.Decoder()),
	}
	if len(c.Client.Headers) > 0 {
		base = append(base, httptransport.WithDefaultHeaders(c.Client.Headers))
	}
	if len(c.Client.Params) > 0 {
		base = append(base, httptransport.WithParams(c.Client.Params))
	}
	if p := c.Paging(); p != nil {
		base = append(base, httptransport.WithPaging(p))
	}
	if c.Client.StreamLists {
		base = append(base, httptransport.WithStreaming())
	}
	return httptransport.New(c.Client.BaseURL, append(base, opts...)...), nil
}

// Manager builds a manager over t with the configured date formats.
func (c *Config) Manager(t restmap.Transport, log zerolog.Logger) (*restmap.Manager, error) {
	return client.New(t,
		client.WithDateFormats(c.Client.DateFormat, c.Client.DateTimeFormat),
		client.WithLogger(log))
}
