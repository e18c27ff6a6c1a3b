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
package scheduler

// Config configures a Scheduler.
type Config struct {
	// Strategy is one of "sequential", "rarest_first", or "random".
	Strategy string `yaml:"strategy"`
}

func (c Config) applyDefaults() Config {
	if c.Strategy == "" {
		c.Strategy = string(RarestFirst)
	}
	return c
}
