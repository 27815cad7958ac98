// Package config resolves reboot settings from command-line flags and
// REBOOT_* environment variables. No configuration file is ever read.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/faucetdb/reboot/internal/reboot"
)

// EnvPrefix is prepended to every environment override, e.g. REBOOT_GRACE.
const EnvPrefix = "REBOOT"

// Viper keys.
const (
	KeyGrace    = "grace"
	KeyKillWait = "kill_wait"
	KeyCommand  = "command"
	KeyPIDFile  = "pid_file"
	KeyOutput   = "output"
	KeyJournal  = "journal"
	KeyDebug    = "debug"
)

// Settings is the effective configuration of one invocation.
type Settings struct {
	Grace    time.Duration
	KillWait time.Duration
	Command  []string
	PIDFile  string
	Output   string
	Journal  string
	Debug    bool
}

// Defaults returns the settings used when no flag or environment variable
// overrides them.
func Defaults() Settings {
	def := reboot.DefaultConfig()
	return Settings{
		Grace:    def.Grace,
		KillWait: def.KillWait,
		Command:  def.Command,
	}
}

// NewViper returns a viper instance with defaults and environment lookup
// configured. Flags are bound separately by the CLI.
func NewViper() *viper.Viper {
	v := viper.New()
	d := Defaults()
	v.SetDefault(KeyGrace, d.Grace)
	v.SetDefault(KeyKillWait, d.KillWait)
	v.SetDefault(KeyCommand, d.Command)
	v.SetDefault(KeyPIDFile, "")
	v.SetDefault(KeyOutput, "")
	v.SetDefault(KeyJournal, "")
	v.SetDefault(KeyDebug, false)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads and validates the settings held by v.
func Load(v *viper.Viper) (Settings, error) {
	s := Settings{
		Grace:    v.GetDuration(KeyGrace),
		KillWait: v.GetDuration(KeyKillWait),
		Command:  commandFrom(v),
		PIDFile:  strings.TrimSpace(v.GetString(KeyPIDFile)),
		Output:   strings.TrimSpace(v.GetString(KeyOutput)),
		Journal:  strings.TrimSpace(v.GetString(KeyJournal)),
		Debug:    v.GetBool(KeyDebug),
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Validate checks that durations are non-negative and a command is present.
func (s Settings) Validate() error {
	if s.Grace < 0 {
		return fmt.Errorf("%w: grace %s is negative", ErrInvalid, s.Grace)
	}
	if s.KillWait < 0 {
		return fmt.Errorf("%w: kill_wait %s is negative", ErrInvalid, s.KillWait)
	}
	if len(s.Command) == 0 || strings.TrimSpace(s.Command[0]) == "" {
		return fmt.Errorf("%w: command is empty", ErrInvalid)
	}
	return nil
}

// ControllerConfig converts the settings into a reboot.Config.
func (s Settings) ControllerConfig() reboot.Config {
	return reboot.Config{
		Grace:    s.Grace,
		KillWait: s.KillWait,
		Command:  append([]string(nil), s.Command...),
		PIDFile:  s.PIDFile,
		Output:   s.Output,
	}
}

// commandFrom accepts the command either as a list (repeated --command
// flags, one argument each) or as a single whitespace-separated string
// (REBOOT_COMMAND). Only the string form is split.
func commandFrom(v *viper.Viper) []string {
	var parts []string
	if raw, ok := v.Get(KeyCommand).(string); ok {
		parts = strings.Fields(raw)
	} else {
		parts = v.GetStringSlice(KeyCommand)
	}
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
