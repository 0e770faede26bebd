package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// source resolves a setting by name across the configuration layers:
// process environment, then .env, then the YAML file.
type source struct {
	lookupEnv func(string) (string, bool)
	dotenv    map[string]string
	file      map[string]string
}

// lookup returns the first non-empty value for key.
func (s *source) lookup(key string) (string, bool) {
	if v, ok := s.lookupEnv(key); ok && v != "" {
		return v, true
	}
	if v, ok := s.dotenv[key]; ok && v != "" {
		return v, true
	}
	if v, ok := s.file[strings.ToLower(key)]; ok && v != "" {
		return v, true
	}
	return "", false
}

// get returns the value for key or def when unset.
func (s *source) get(key, def string) string {
	if v, ok := s.lookup(key); ok {
		return v
	}
	return def
}

// readDotEnv reads a .env file without touching the process environment.
// A missing file is not an error.
func readDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	values, err := godotenv.Read(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrConfigFile, path, err)
	}
	return values, nil
}

// readYAMLFile reads a flat YAML mapping of lower-case setting names.
// Scalars of any type are kept in their textual form so the same parsing
// rules apply as for environment variables; sequences are joined with commas.
func readYAMLFile(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrConfigFile, path, err)
	}

	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrConfigFile, path, err)
	}

	values := make(map[string]string, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case nil:
			continue
		case []interface{}:
			parts := make([]string, 0, len(val))
			for _, item := range val {
				parts = append(parts, fmt.Sprint(item))
			}
			values[strings.ToLower(k)] = strings.Join(parts, ",")
		default:
			values[strings.ToLower(k)] = fmt.Sprint(val)
		}
	}
	return values, nil
}
