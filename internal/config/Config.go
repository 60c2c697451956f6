// Copyright 2025 Jack Bister
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

package config

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/viper"
)

// Config is the asclog configuration. Values come from the config file when
// one exists, command line flags override them.
type Config struct {
	// DatabaseFile is the sqlite file parsed recordings are written to.
	// ":memory:" keeps everything in memory.
	DatabaseFile string

	// WatchGlob, when non-empty, is a glob pattern for recording files to
	// ingest as they appear.
	WatchGlob string

	EnableWeb bool
	HttpAddr  string

	// RetainOutOfBlock keeps records seen outside any recording block,
	// assigning them half-integer block indices.
	RetainOutOfBlock bool
	// ImportSamples decodes raw sample lines. Defaults to true.
	ImportSamples bool
}

// Load reads the config file at path. A missing file is not an error, the
// defaults are returned.
func Load(path string, logger *slog.Logger) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	v.SetDefault("databaseFile", "asclog.db")
	v.SetDefault("watchGlob", "")
	v.SetDefault("enableWeb", false)
	v.SetDefault("httpAddr", ":8080")
	v.SetDefault("retainOutOfBlock", false)
	v.SetDefault("importSamples", true)

	if err := v.ReadInConfig(); err != nil {
		if os.IsNotExist(err) {
			logger.Info("no config file found, using defaults",
				slog.String("fileName", path))
		} else {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	} else {
		logger.Info("loaded config file",
			slog.String("fileName", v.ConfigFileUsed()))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config file %s: %w", path, err)
	}
	return &cfg, nil
}
