// Package config loads the runtime knobs of the demo programs.
//
// Values are resolved in this order: built-in defaults, an optional YAML file,
// environment variables (prefixed, e.g. MLP_EPOCHS) and finally CLI overrides.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// load fills out from defaults, the optional file at path and the environment.
func load(path, envPrefix string, defaults map[string]interface{}, out interface{}) error {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", path, err)
		}
	}
	if err := v.Unmarshal(out); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}
