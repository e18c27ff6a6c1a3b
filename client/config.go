// Copyright (c) 2016-2019 Uber Technologies, Inc.
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

// Package client ties together metadata, storage, scheduling, and the peer
// table into a single torrent session facade.
package client

import (
	"fmt"
	"os"

	"github.com/c2h5oh/datasize"
	"gopkg.in/yaml.v2"

	"github.com/uber/bitswap-torrent/metrics"
	"github.com/uber/bitswap-torrent/scheduler"
)

// Config is the top-level configuration for a torrent Client, enumerating
// the recognised options of spec.md §6.
type Config struct {
	// MaxPeers caps concurrent peer connections.
	MaxPeers int `yaml:"max_peers"`

	// MaxUploadRate and MaxDownloadRate are parsed from config but the
	// Client does not apply them; egress/ingress limits come from Bandwidth.
	MaxUploadRate   datasize.ByteSize `yaml:"max_upload_rate"`
	MaxDownloadRate datasize.ByteSize `yaml:"max_download_rate"`

	// PieceSize is the default piece length used when authoring new
	// metadata.
	PieceSize datasize.ByteSize `yaml:"piece_size"`

	// BootstrapNodes lists initial DHT contact addresses.
	BootstrapNodes []string `yaml:"bootstrap_nodes"`

	// EnableDHT toggles participation in DHT peer discovery.
	EnableDHT bool `yaml:"enable_dht"`

	// DataDir is the storage root.
	DataDir string `yaml:"data_dir"`

	Scheduler scheduler.Config `yaml:"scheduler"`
	Bandwidth BandwidthConfig  `yaml:"bandwidth"`
	Metrics   metrics.Config   `yaml:"metrics"`
}

// LoadConfig reads and parses a Config from a YAML file at path. Unlike the
// teacher's multi-file `extends` chain, this loader reads exactly one file;
// composing multiple config layers is left to the caller.
func LoadConfig(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %s", path, err)
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %s", path, err)
	}
	return c, nil
}

func (c Config) applyDefaults() Config {
	if c.MaxPeers == 0 {
		c.MaxPeers = 50
	}
	if c.PieceSize == 0 {
		c.PieceSize = 1 * datasize.MB
	}
	return c
}
