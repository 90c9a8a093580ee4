// Copyright 2021 The LegDB Authors. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config defines configuration keys of legdb and reads them with viper.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ldtoolkit/legdb/graph"
	"github.com/ldtoolkit/legdb/graph/step"
	"github.com/ldtoolkit/legdb/query"
)

const (
	KeyBackend = "store.backend"
	KeyPath    = "store.path"
	KeyOptions = "store.options"

	KeyPageSize = "query.page_size"
	KeyTimeout  = "query.timeout"

	KeyNodeKind = "graph.node_kind"
	KeyEdgeKind = "graph.edge_kind"

	KeyLoadBatch = "load.batch"

	KeyHTTPHost     = "http.host"
	KeyHTTPPort     = "http.port"
	KeyHTTPReadOnly = "http.read_only"
)

// EnvPrefix is the prefix of environment variables that override configuration keys.
// For example, LEGDB_STORE_BACKEND sets store.backend.
const EnvPrefix = "LEGDB"

const (
	DefaultBackend   = "memstore"
	DefaultLoadBatch = 1000
	DefaultHost      = "127.0.0.1"
	DefaultPort      = "64210"
	DefaultTimeout   = 30 * time.Second
)

// Config defines the behavior of legdb instances.
type Config struct {
	Backend  string
	Path     string
	Options  graph.Options
	PageSize int
	Timeout  time.Duration
	NodeKind string
	EdgeKind string
	Batch    int
	Host     string
	Port     string
	ReadOnly bool
}

// SetDefaults registers default values of all keys.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyBackend, DefaultBackend)
	v.SetDefault(KeyPath, "")
	v.SetDefault(KeyPageSize, step.DefaultPageSize)
	v.SetDefault(KeyTimeout, DefaultTimeout)
	v.SetDefault(KeyNodeKind, graph.NodeKind.Name)
	v.SetDefault(KeyEdgeKind, graph.EdgeKind.Name)
	v.SetDefault(KeyLoadBatch, DefaultLoadBatch)
	v.SetDefault(KeyHTTPHost, DefaultHost)
	v.SetDefault(KeyHTTPPort, DefaultPort)
	v.SetDefault(KeyHTTPReadOnly, false)
}

// Setup installs defaults and environment overrides into v.
func Setup(v *viper.Viper) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// New creates a viper instance with defaults and environment overrides installed.
func New() *viper.Viper {
	v := viper.New()
	Setup(v)
	return v
}

// ReadFile merges a config file into v. The format is detected by the file extension.
func ReadFile(v *viper.Viper, file string) error {
	if _, err := os.Stat(file); err != nil {
		return fmt.Errorf("cannot find config file %q: %w", file, err)
	}
	v.SetConfigFile(file)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("could not parse config file %q: %w", file, err)
	}
	return nil
}

// FromViper reads a Config from v.
func FromViper(v *viper.Viper) (*Config, error) {
	c := &Config{
		Backend:  v.GetString(KeyBackend),
		Path:     v.GetString(KeyPath),
		Options:  graph.Options(v.GetStringMap(KeyOptions)),
		PageSize: v.GetInt(KeyPageSize),
		Timeout:  v.GetDuration(KeyTimeout),
		NodeKind: v.GetString(KeyNodeKind),
		EdgeKind: v.GetString(KeyEdgeKind),
		Batch:    v.GetInt(KeyLoadBatch),
		Host:     v.GetString(KeyHTTPHost),
		Port:     v.GetString(KeyHTTPPort),
		ReadOnly: v.GetBool(KeyHTTPReadOnly),
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Load reads a config file and applies defaults and environment overrides.
// Only defaults and environment are used if the file name is empty.
func Load(file string) (*Config, error) {
	v := New()
	if file != "" {
		if err := ReadFile(v, file); err != nil {
			return nil, err
		}
	}
	return FromViper(v)
}

// Validate checks that configuration values are usable.
func (c *Config) Validate() error {
	switch {
	case c.Backend == "":
		return fmt.Errorf("config: %s must be set", KeyBackend)
	case c.PageSize <= 0:
		return fmt.Errorf("config: %s must be positive, got %d", KeyPageSize, c.PageSize)
	case c.NodeKind == "" || c.EdgeKind == "":
		return fmt.Errorf("config: kind names must not be empty")
	case c.NodeKind == c.EdgeKind:
		return fmt.Errorf("config: node and edge kinds must differ, both are %q", c.NodeKind)
	case c.Batch < 0:
		return fmt.Errorf("config: %s must not be negative", KeyLoadBatch)
	}
	return nil
}

// QueryOptions returns chain options for this configuration.
func (c *Config) QueryOptions() query.Options {
	return query.Options{
		PageSize: c.PageSize,
		NodeKind: graph.NewNodeKind(c.NodeKind),
		EdgeKind: graph.NewEdgeKind(c.EdgeKind),
	}
}

// Address returns the host:port the HTTP server listens on.
func (c *Config) Address() string {
	return c.Host + ":" + c.Port
}
