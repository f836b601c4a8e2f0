// Package jobfile loads YAML job descriptions for repeatable
// conversions. A job file carries the same knobs as the convert
// command's flags; explicit flags win over file values.
package jobfile

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Job describes one conversion. Zero values defer to [Default]; absent
// YAML keys keep the defaults.
type Job struct {
	Source      string   `yaml:"source"`
	Destination string   `yaml:"destination"`
	Label       string   `yaml:"label"`
	Groups      []string `yaml:"groups"`
	SkipCorrupt bool     `yaml:"skip_corrupt"`
	Workers     int      `yaml:"workers"`
	Prefetch    bool     `yaml:"prefetch"`
	Catalog     bool     `yaml:"catalog"`
}

// Default returns the job every conversion starts from: sequential
// within a slice, prefetch and cataloging on, abort on the first
// corrupt slice.
func Default() Job {
	return Job{
		Workers:  1,
		Prefetch: true,
		Catalog:  true,
	}
}

// Load reads and validates a job file. Unlike optional user
// configuration, a job file is always named explicitly, so a missing
// file is an error.
func Load(path string) (Job, error) {
	job := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Job{}, fmt.Errorf("reading job file: %w", err)
	}
	if err := yaml.Unmarshal(data, &job); err != nil {
		return Job{}, fmt.Errorf("parsing job file %s: %w", path, err)
	}
	if err := job.Validate(); err != nil {
		return Job{}, fmt.Errorf("job file %s: %w", path, err)
	}
	return job, nil
}

// Validate rejects values the engine cannot honor.
func (j Job) Validate() error {
	if j.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", j.Workers)
	}
	return nil
}
