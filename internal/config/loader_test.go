package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// chdirTemp moves the test into an empty directory so no project config
// leaks in.
func chdirTemp(t *testing.T) string {
	t.Helper()
	tmpDir := t.TempDir()
	oldWd, _ := os.Getwd()
	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("chdir failed: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(oldWd) })
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmpDir, "xdg"))
	return tmpDir
}

func writeConfig(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config failed: %v", err)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := LoadConfig(viper.New(), nil)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Engine.MinimizationLimit != 100 {
		t.Errorf("Engine.MinimizationLimit = %d, want 100", cfg.Engine.MinimizationLimit)
	}
	if cfg.Stepper.SlowDelay != 750*time.Millisecond {
		t.Errorf("Stepper.SlowDelay = %v, want 750ms", cfg.Stepper.SlowDelay)
	}
	if cfg.LogRotation.MaxBackups != 3 {
		t.Errorf("LogRotation.MaxBackups = %d, want 3", cfg.LogRotation.MaxBackups)
	}
}

func TestLoadConfig_ProjectFile(t *testing.T) {
	chdirTemp(t)

	writeConfig(t, filepath.Join(ProjectConfigDir, ProjectConfigFile), `
engine:
  minimization_limit: 500
stepper:
  speed: slow
  slow_delay: 2s
paths:
  trace: traces/run.jsonl
`)

	cfg, err := LoadConfig(viper.New(), nil)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Engine.MinimizationLimit != 500 {
		t.Errorf("Engine.MinimizationLimit = %d, want 500", cfg.Engine.MinimizationLimit)
	}
	if cfg.Stepper.Speed != "slow" {
		t.Errorf("Stepper.Speed = %q, want slow", cfg.Stepper.Speed)
	}
	if cfg.Stepper.SlowDelay != 2*time.Second {
		t.Errorf("Stepper.SlowDelay = %v, want 2s", cfg.Stepper.SlowDelay)
	}
	if cfg.Paths.Trace != "traces/run.jsonl" {
		t.Errorf("Paths.Trace = %q", cfg.Paths.Trace)
	}
	// untouched defaults survive
	if cfg.Stepper.FastDelay != 150*time.Millisecond {
		t.Errorf("Stepper.FastDelay = %v, want default", cfg.Stepper.FastDelay)
	}
}

func TestLoadConfig_GlobalThenProject(t *testing.T) {
	tmpDir := chdirTemp(t)

	writeConfig(t, filepath.Join(tmpDir, "xdg", GlobalConfigDir, GlobalConfigFile), `
stepper:
  speed: fast
  fast_delay: 10ms
`)
	writeConfig(t, filepath.Join(ProjectConfigDir, ProjectConfigFile), `
stepper:
  speed: slow
`)

	cfg, err := LoadConfig(viper.New(), nil)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Stepper.Speed != "slow" {
		t.Errorf("Stepper.Speed = %q, want project value", cfg.Stepper.Speed)
	}
	if cfg.Stepper.FastDelay != 10*time.Millisecond {
		t.Errorf("Stepper.FastDelay = %v, want global value", cfg.Stepper.FastDelay)
	}
}

func TestLoadConfig_ExplicitFile(t *testing.T) {
	tmpDir := chdirTemp(t)
	configPath := filepath.Join(tmpDir, "custom-config.yaml")
	writeConfig(t, configPath, `
stepper:
  ignore_breakpoints: true
`)

	v := viper.New()
	v.Set("config", configPath)

	cfg, err := LoadConfig(v, nil)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if !cfg.Stepper.IgnoreBreakpoints {
		t.Error("Stepper.IgnoreBreakpoints = false, want true")
	}
}

func TestLoadConfig_ExplicitFileMissing(t *testing.T) {
	chdirTemp(t)
	v := viper.New()
	v.Set("config", "/nonexistent/path/config.yaml")

	if _, err := LoadConfig(v, nil); err == nil {
		t.Error("LoadConfig should fail for missing explicit config")
	}
}

func TestLoadConfig_ViperOverride(t *testing.T) {
	chdirTemp(t)
	writeConfig(t, filepath.Join(ProjectConfigDir, ProjectConfigFile), `
engine:
  minimization_limit: 50
`)

	v := viper.New()
	// env and flag bindings land in viper the same way
	v.Set("engine.minimization_limit", 75)

	cfg, err := LoadConfig(v, nil)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Engine.MinimizationLimit != 75 {
		t.Errorf("Engine.MinimizationLimit = %d, want 75", cfg.Engine.MinimizationLimit)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	tmpDir := chdirTemp(t)
	configPath := filepath.Join(tmpDir, "bad.yaml")
	writeConfig(t, configPath, "stepper:\n  speed: warp\n")

	v := viper.New()
	v.Set("config", configPath)
	if _, err := LoadConfig(v, nil); err == nil {
		t.Error("expected invalid speed to be rejected")
	}
}

func TestLoadConfig_DurationParsing(t *testing.T) {
	tmpDir := chdirTemp(t)

	tests := []struct {
		name string
		yaml string
		want time.Duration
	}{
		{"milliseconds", "stepper:\n  slow_delay: 250ms", 250 * time.Millisecond},
		{"seconds", "stepper:\n  slow_delay: 3s", 3 * time.Second},
		{"combined", "stepper:\n  slow_delay: 1m30s", 90 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath := filepath.Join(tmpDir, tt.name+".yaml")
			writeConfig(t, configPath, tt.yaml)

			v := viper.New()
			v.Set("config", configPath)

			cfg, err := LoadConfig(v, nil)
			if err != nil {
				t.Fatalf("LoadConfig failed: %v", err)
			}
			if cfg.Stepper.SlowDelay != tt.want {
				t.Errorf("got %v, want %v", cfg.Stepper.SlowDelay, tt.want)
			}
		})
	}
}

func TestLoadConfig_Env(t *testing.T) {
	chdirTemp(t)
	writeConfig(t, filepath.Join(ProjectConfigDir, ProjectConfigFile), `
stepper:
  speed: fast
paths:
  socket: from-file.sock
`)
	t.Setenv("PRFKIT_STEPPER_SPEED", "slow")
	t.Setenv("PRFKIT_ENGINE_MINIMIZATION_LIMIT", "42")
	t.Setenv("PRFKIT_STEPPER_SLOW_DELAY", "20ms")

	cfg, err := LoadConfig(viper.New(), nil)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Stepper.Speed != "slow" {
		t.Errorf("Stepper.Speed = %q, want env value", cfg.Stepper.Speed)
	}
	if cfg.Engine.MinimizationLimit != 42 {
		t.Errorf("Engine.MinimizationLimit = %d, want 42", cfg.Engine.MinimizationLimit)
	}
	if cfg.Stepper.SlowDelay != 20*time.Millisecond {
		t.Errorf("Stepper.SlowDelay = %v, want 20ms", cfg.Stepper.SlowDelay)
	}
	if cfg.Paths.Socket != "from-file.sock" {
		t.Errorf("Paths.Socket = %q, want project value", cfg.Paths.Socket)
	}
}

func TestLoadConfig_Flags(t *testing.T) {
	chdirTemp(t)
	writeConfig(t, filepath.Join(ProjectConfigDir, ProjectConfigFile), `
engine:
  minimization_limit: 50
stepper:
  speed: fast
paths:
  trace: file.jsonl
`)
	t.Setenv("PRFKIT_STEPPER_SPEED", "none")

	flags := pflag.NewFlagSet("step", pflag.ContinueOnError)
	flags.Int("minimization-limit", 0, "")
	flags.String("speed", "", "")
	flags.Bool("ignore-breakpoints", false, "")
	flags.String("trace", "", "")
	flags.String("socket", "", "")
	flags.Int("inputs", 0, "")
	if err := flags.Parse([]string{"--minimization-limit=7", "--speed=slow", "--ignore-breakpoints", "--socket=/tmp/x.sock", "--inputs=3"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg, err := LoadConfig(viper.New(), flags)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Engine.MinimizationLimit != 7 {
		t.Errorf("Engine.MinimizationLimit = %d, want 7", cfg.Engine.MinimizationLimit)
	}
	if cfg.Stepper.Speed != "slow" {
		t.Errorf("Stepper.Speed = %q, want flag over env", cfg.Stepper.Speed)
	}
	if !cfg.Stepper.IgnoreBreakpoints {
		t.Error("Stepper.IgnoreBreakpoints = false, want true")
	}
	if cfg.Paths.Socket != "/tmp/x.sock" {
		t.Errorf("Paths.Socket = %q", cfg.Paths.Socket)
	}
	// unset flags leave lower layers alone
	if cfg.Paths.Trace != "file.jsonl" {
		t.Errorf("Paths.Trace = %q, want project value", cfg.Paths.Trace)
	}
}

func TestLoadConfig_InvalidFlag(t *testing.T) {
	chdirTemp(t)
	flags := pflag.NewFlagSet("step", pflag.ContinueOnError)
	flags.Int("minimization-limit", 0, "")
	if err := flags.Parse([]string{"--minimization-limit=0"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	if _, err := LoadConfig(viper.New(), flags); err == nil {
		t.Error("expected zero minimization limit to be rejected")
	}
}

func TestLoadConfig_MalformedProjectFile(t *testing.T) {
	chdirTemp(t)
	writeConfig(t, filepath.Join(ProjectConfigDir, ProjectConfigFile), "stepper: [unclosed\n")

	_, err := LoadConfig(viper.New(), nil)
	if err == nil {
		t.Fatal("expected malformed project config to fail")
	}
	if !strings.Contains(err.Error(), "project config") {
		t.Errorf("error %q does not name the project layer", err)
	}
}

func TestFlagKeysNameConfigKeys(t *testing.T) {
	defaults, err := structToMap(Default())
	if err != nil {
		t.Fatal(err)
	}
	known := make(map[string]bool)
	for _, k := range configKeys("", defaults) {
		known[k] = true
	}
	for flag, key := range FlagKeys {
		if !known[key] {
			t.Errorf("flag %s maps to unknown key %s", flag, key)
		}
	}
	if got := EnvVar("engine.minimization_limit"); got != "PRFKIT_ENGINE_MINIMIZATION_LIMIT" {
		t.Errorf("EnvVar = %q", got)
	}
}
