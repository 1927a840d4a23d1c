package supervisor

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// fileConfig is the on-disk shape of a services manifest: yaml can't carry
// a Predicate closure or a restart delay as a Duration literal, so this
// mirrors ServiceSpec with serializable fields and a declarative predicate
// description, converted to real ServiceSpecs by Build.
type fileConfig struct {
	Disabled []string      `yaml:"disabled"`
	Services []fileService `yaml:"services"`
}

type fileService struct {
	Name          string            `yaml:"name"`
	Argv          []string          `yaml:"argv"`
	Restart       bool              `yaml:"restart"`
	RestartDelay  string            `yaml:"restart_delay"`
	Env           map[string]string `yaml:"env"`
	RequirePort   int               `yaml:"require_port_free"`
	RequireBinary string            `yaml:"require_binary"`
	RequireRemote string            `yaml:"require_remote"`
	HealthCheck   *fileHealthCheck  `yaml:"health_check"`
}

type fileHealthCheck struct {
	URL      string `yaml:"url"`
	Interval string `yaml:"interval"`
	Timeout  string `yaml:"timeout"`
	Retries  int    `yaml:"retries"`
}

// LoadConfig reads and parses a services manifest from path.
func LoadConfig(path string) ([]ServiceSpec, []string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read services config: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return nil, nil, fmt.Errorf("parse services config: %w", err)
	}

	specs := make([]ServiceSpec, 0, len(fc.Services))
	for _, svc := range fc.Services {
		spec, err := svc.toSpec()
		if err != nil {
			return nil, nil, fmt.Errorf("service %q: %w", svc.Name, err)
		}
		specs = append(specs, spec)
	}
	return specs, fc.Disabled, nil
}

func (fs fileService) toSpec() (ServiceSpec, error) {
	if len(fs.Argv) == 0 {
		return ServiceSpec{}, fmt.Errorf("argv must not be empty")
	}

	delay, err := parseDurationOrZero(fs.RestartDelay)
	if err != nil {
		return ServiceSpec{}, fmt.Errorf("restart_delay: %w", err)
	}

	var predicates []Predicate
	if fs.RequirePort > 0 {
		predicates = append(predicates, PortAvailable(fs.RequirePort))
	}
	if fs.RequireBinary != "" {
		predicates = append(predicates, BinaryOnPath(fs.RequireBinary))
	}
	if fs.RequireRemote != "" {
		predicates = append(predicates, RemoteReachable(fs.RequireRemote, 0))
	}
	var predicate Predicate
	if len(predicates) > 0 {
		predicate = Combine(predicates...)
	}

	var hc *HealthCheck
	if fs.HealthCheck != nil {
		interval, err := parseDurationOrZero(fs.HealthCheck.Interval)
		if err != nil {
			return ServiceSpec{}, fmt.Errorf("health_check.interval: %w", err)
		}
		timeout, err := parseDurationOrZero(fs.HealthCheck.Timeout)
		if err != nil {
			return ServiceSpec{}, fmt.Errorf("health_check.timeout: %w", err)
		}
		hc = &HealthCheck{
			URL:      fs.HealthCheck.URL,
			Interval: interval,
			Timeout:  timeout,
			Retries:  fs.HealthCheck.Retries,
		}
	}

	return ServiceSpec{
		Name:         fs.Name,
		Argv:         fs.Argv,
		Restart:      fs.Restart,
		RestartDelay: delay,
		EnvOverrides: fs.Env,
		Predicate:    predicate,
		HealthCheck:  hc,
	}, nil
}

func parseDurationOrZero(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}
