package config

import (
	"io"

	"gopkg.in/yaml.v3"
)

// settingsYAML mirrors Settings with human-readable durations.
type settingsYAML struct {
	Grace    string   `yaml:"grace"`
	KillWait string   `yaml:"kill_wait"`
	Command  []string `yaml:"command"`
	PIDFile  string   `yaml:"pid_file,omitempty"`
	Output   string   `yaml:"output,omitempty"`
	Journal  string   `yaml:"journal,omitempty"`
	Debug    bool     `yaml:"debug"`
}

// WriteYAML renders s as YAML.
func WriteYAML(w io.Writer, s Settings) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(settingsYAML{
		Grace:    s.Grace.String(),
		KillWait: s.KillWait.String(),
		Command:  s.Command,
		PIDFile:  s.PIDFile,
		Output:   s.Output,
		Journal:  s.Journal,
		Debug:    s.Debug,
	}); err != nil {
		return err
	}
	return enc.Close()
}
