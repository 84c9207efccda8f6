package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

const defaultProfilesFile = ".elseql.yaml"

// Profile is a named connection. Empty fields leave the environment value
// in place.
type Profile struct {
	Endpoint         string `yaml:"endpoint"`
	Region           string `yaml:"region"`
	Username         string `yaml:"username"`
	Password         string `yaml:"password"`
	PasswordSecretID string `yaml:"password_secret_id"`
	InsecureSkipTLS  *bool  `yaml:"insecure_skip_tls"`
}

// ProfileFile is the on-disk profiles document:
//
//	default: local
//	profiles:
//	  local:
//	    endpoint: http://localhost:9200
//	  prod:
//	    endpoint: https://search.example.com
//	    region: us-east-1
type ProfileFile struct {
	Default  string             `yaml:"default"`
	Profiles map[string]Profile `yaml:"profiles"`
}

// DefaultProfilesPath is ~/.elseql.yaml, or the working directory when the
// home directory is unknown.
func DefaultProfilesPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return defaultProfilesFile
	}
	return filepath.Join(home, defaultProfilesFile)
}

// LoadProfiles reads a profiles file. A missing file yields an empty set.
func LoadProfiles(path string) (*ProfileFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &ProfileFile{}, nil
		}
		return nil, fmt.Errorf("failed to read profiles file: %w", err)
	}

	var file ProfileFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse profiles YAML: %w", err)
	}

	for name, p := range file.Profiles {
		if p.Endpoint != "" {
			if err := validateEndpoint(p.Endpoint); err != nil {
				return nil, fmt.Errorf("profile %q: %w", name, err)
			}
		}
	}
	if file.Default != "" {
		if _, ok := file.Profiles[file.Default]; !ok {
			return nil, fmt.Errorf("default profile %q is not defined", file.Default)
		}
	}

	return &file, nil
}

// Names returns the profile names in order.
func (f *ProfileFile) Names() []string {
	names := make([]string, 0, len(f.Profiles))
	for name := range f.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ApplyProfile overlays the named profile on cfg. An empty name selects
// cfg.Profile, then the file's default; with none of them set cfg is left
// untouched.
func ApplyProfile(cfg *Config, name string) error {
	path := cfg.ProfilesFile
	if path == "" {
		path = DefaultProfilesPath()
	}

	file, err := LoadProfiles(path)
	if err != nil {
		return err
	}

	if name == "" {
		name = cfg.Profile
	}
	if name == "" {
		name = file.Default
	}
	if name == "" {
		return nil
	}

	p, ok := file.Profiles[name]
	if !ok {
		return fmt.Errorf("unknown profile %q (available: %s)", name, strings.Join(file.Names(), ", "))
	}

	if p.Endpoint != "" {
		cfg.Endpoint = strings.TrimRight(p.Endpoint, "/")
	}
	if p.Region != "" {
		cfg.Region = p.Region
		cfg.Username = ""
	}
	if p.Username != "" {
		cfg.Username = p.Username
		cfg.Region = ""
	}
	if p.Password != "" {
		cfg.Password = p.Password
	}
	if p.PasswordSecretID != "" {
		cfg.PasswordSecretID = p.PasswordSecretID
	}
	if p.InsecureSkipTLS != nil {
		cfg.InsecureSkipTLS = *p.InsecureSkipTLS
	}
	cfg.Profile = name

	return nil
}
