package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config file locations.
const (
	// GlobalConfigDir is the XDG config directory name
	GlobalConfigDir = "prfkit"
	// GlobalConfigFile is the global config file name
	GlobalConfigFile = "config.yaml"
	// ProjectConfigDir is the project-local config directory
	ProjectConfigDir = ".prfkit"
	// ProjectConfigFile is the project-local config file name
	ProjectConfigFile = "config.yaml"
)

// EnvPrefix prefixes the environment variable of every config key:
// engine.minimization_limit is read from PRFKIT_ENGINE_MINIMIZATION_LIMIT.
const EnvPrefix = "PRFKIT"

// ExplicitConfigKey is the viper key holding a --config path.
const ExplicitConfigKey = "config"

// FlagKeys maps command-line flags to the config keys they override.
var FlagKeys = map[string]string{
	"minimization-limit": "engine.minimization_limit",
	"speed":              "stepper.speed",
	"ignore-breakpoints": "stepper.ignore_breakpoints",
	"trace":              "paths.trace",
	"log-file":           "paths.log",
	"socket":             "paths.socket",
}

// source is one config file layer.
type source struct {
	name     string
	path     string
	required bool
}

// LoadConfig builds a Config from, lowest precedence first:
//  1. Default() values
//  2. $XDG_CONFIG_HOME/prfkit/config.yaml (global)
//  3. .prfkit/config.yaml (project)
//  4. the file named by --config, which must exist
//  5. PRFKIT_* environment variables, one per key
//  6. flags in FlagKeys that were set on the command line
//
// flags may be nil. The merged result is validated before it is returned.
func LoadConfig(v *viper.Viper, flags *pflag.FlagSet) (*Config, error) {
	defaults, err := structToMap(Default())
	if err != nil {
		return nil, err
	}
	if err := v.MergeConfigMap(defaults); err != nil {
		return nil, err
	}

	for _, src := range sources(v.GetString(ExplicitConfigKey)) {
		if err := mergeFile(v, src); err != nil {
			return nil, err
		}
	}

	if err := bindEnv(v, configKeys("", defaults)); err != nil {
		return nil, err
	}
	if flags != nil {
		applyFlags(v, flags)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg, viperDecodeHook()); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// EnvVar returns the environment variable that overrides key.
func EnvVar(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

func sources(explicit string) []source {
	srcs := make([]source, 0, 3)
	if dir := globalConfigDir(); dir != "" {
		srcs = append(srcs, source{name: "global", path: filepath.Join(dir, GlobalConfigDir, GlobalConfigFile)})
	}
	srcs = append(srcs, source{name: "project", path: filepath.Join(ProjectConfigDir, ProjectConfigFile)})
	if explicit != "" {
		srcs = append(srcs, source{name: "explicit", path: explicit, required: true})
	}
	return srcs
}

func globalConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config")
}

// mergeFile reads one YAML layer through a scratch viper and merges its
// settings. Optional layers that do not exist are skipped.
func mergeFile(v *viper.Viper, src source) error {
	file, err := os.Open(src.path)
	if os.IsNotExist(err) && !src.required {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%s config: %w", src.name, err)
	}
	defer func() { _ = file.Close() }()

	fileViper := viper.New()
	fileViper.SetConfigType("yaml")
	if err := fileViper.ReadConfig(file); err != nil {
		return fmt.Errorf("%s config %s: %w", src.name, src.path, err)
	}
	return v.MergeConfigMap(fileViper.AllSettings())
}

// configKeys flattens the nested defaults map into dotted keys, sorted.
func configKeys(prefix string, m map[string]interface{}) []string {
	var keys []string
	for k, val := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if nested, ok := val.(map[string]interface{}); ok {
			keys = append(keys, configKeys(key, nested)...)
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func bindEnv(v *viper.Viper, keys []string) error {
	for _, key := range keys {
		if err := v.BindEnv(key, EnvVar(key)); err != nil {
			return err
		}
	}
	return nil
}

// applyFlags copies flags the user set onto their config keys. Values stay
// strings; Unmarshal decodes them weakly into the field types.
func applyFlags(v *viper.Viper, flags *pflag.FlagSet) {
	flags.Visit(func(f *pflag.Flag) {
		if key, ok := FlagKeys[f.Name]; ok {
			v.Set(key, f.Value.String())
		}
	})
}

func viperDecodeHook() viper.DecoderConfigOption {
	return viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
}

// structToMap renders cfg as the nested map MergeConfigMap expects, with
// durations as strings so they read the same as YAML values.
func structToMap(cfg *Config) (map[string]interface{}, error) {
	result := make(map[string]interface{})
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:    "mapstructure",
		Result:     &result,
		DecodeHook: durationToStringHook(),
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(cfg); err != nil {
		return nil, err
	}
	return result, nil
}

func durationToStringHook() mapstructure.DecodeHookFunc {
	return func(from, to reflect.Type, data interface{}) (interface{}, error) {
		if from != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}
		return data.(time.Duration).String(), nil
	}
}
