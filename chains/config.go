// Copyright 2025 Poiesic Systems
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


package chains

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/poiesic/agentdex/core"
)

// DefaultGateway is the IPFS gateway used when none is configured.
const DefaultGateway = "https://ipfs.io/ipfs/"

// envPrefix names per-chain subgraph endpoint overrides in the environment.
const envPrefix = "SUBGRAPH_URL_"

// defaultEndpoints are the built-in subgraph deployments.
var defaultEndpoints = map[core.ChainID]string{
	1:        "https://api.studio.thegraph.com/query/90210/agentdex-mainnet/version/latest",
	8453:     "https://api.studio.thegraph.com/query/90210/agentdex-base/version/latest",
	11155111: "https://api.studio.thegraph.com/query/90210/agentdex-sepolia/version/latest",
}

// Config describes where each chain's structured backend lives and which
// chains a search targets when the caller names none.
type Config struct {
	// Primary is the chain single-chain operations default to.
	Primary core.ChainID `yaml:"primary"`

	// Implicit is the chain set searched when a query names no chains.
	// Defaults to {1, Primary}.
	Implicit []core.ChainID `yaml:"implicit"`

	// Endpoints overrides the subgraph endpoint per chain.
	Endpoints map[core.ChainID]string `yaml:"endpoints"`

	// Gateway is the IPFS gateway base URL for registration files.
	Gateway string `yaml:"gateway"`

	// Semantic is the base URL of the external relevance service. Empty
	// disables keyword search.
	Semantic string `yaml:"semantic"`
}

// DefaultConfig returns a configuration for mainnet with built-in endpoints.
func DefaultConfig() Config {
	return Config{Primary: 1}.Normalized()
}

// Load reads a YAML configuration file.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read chains config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse chains config: %w", err)
	}
	return cfg.Normalized(), nil
}

// Normalized fills in defaults: a primary chain, the implicit chain set and
// the IPFS gateway.
func (c Config) Normalized() Config {
	if c.Primary == 0 {
		c.Primary = 1
	}
	if c.Implicit == nil {
		c.Implicit = []core.ChainID{1, c.Primary}
	}
	c.Implicit = dedupe(c.Implicit)
	if c.Gateway == "" {
		if env := os.Getenv("IPFS_GATEWAY_URL"); env != "" {
			c.Gateway = env
		} else {
			c.Gateway = DefaultGateway
		}
	}
	if c.Semantic == "" {
		c.Semantic = os.Getenv("SEMANTIC_SEARCH_URL")
	}
	return c
}

// EndpointFor returns the subgraph endpoint for a chain, consulting
// overrides, built-in defaults and the environment in that order.
func (c Config) EndpointFor(chain core.ChainID) (string, bool) {
	if url, ok := c.Endpoints[chain]; ok && url != "" {
		return url, true
	}
	if url, ok := defaultEndpoints[chain]; ok {
		return url, true
	}
	if url := os.Getenv(envPrefix + chain.String()); url != "" {
		return url, true
	}
	return "", false
}

// Configured returns every chain with a known endpoint, ascending and
// de-duplicated.
func (c Config) Configured() []core.ChainID {
	seen := make(map[core.ChainID]bool)
	var out []core.ChainID
	add := func(chain core.ChainID) {
		if !seen[chain] {
			seen[chain] = true
			out = append(out, chain)
		}
	}
	for chain := range c.Endpoints {
		add(chain)
	}
	for chain := range defaultEndpoints {
		add(chain)
	}
	for _, kv := range os.Environ() {
		name, _, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, envPrefix) {
			continue
		}
		chain, err := core.ParseChainID(strings.TrimPrefix(name, envPrefix))
		if err != nil {
			continue
		}
		add(chain)
	}
	slices.Sort(out)
	return out
}

func dedupe(chains []core.ChainID) []core.ChainID {
	seen := make(map[core.ChainID]bool, len(chains))
	out := make([]core.ChainID, 0, len(chains))
	for _, chain := range chains {
		if !seen[chain] {
			seen[chain] = true
			out = append(out, chain)
		}
	}
	return out
}
