package config

import (
	"sort"
	"strings"

	"github.com/entrhq/formai/pkg/logging"
)

// requiredVariables are reported by the startup check, in order.
var requiredVariables = []string{
	EnvAPIKey,
	EnvDefaultModel,
	EnvCompanyName,
	EnvContactPerson,
	EnvEmail,
	EnvPhone,
}

// EnvLine is one entry of a masked environment dump.
type EnvLine struct {
	Name  string
	Value string
}

// MaskedEnv turns os.Environ-style entries into sorted name/value pairs,
// masking values whose names suggest a secret.
func MaskedEnv(environ []string) []EnvLine {
	lines := make([]EnvLine, 0, len(environ))
	for _, kv := range environ {
		name, value, _ := strings.Cut(kv, "=")
		if name == "" {
			continue
		}
		if logging.IsSensitive(name) {
			value = logging.Mask(value)
		}
		lines = append(lines, EnvLine{Name: name, Value: value})
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].Name < lines[j].Name })
	return lines
}

// VariableCheck reports whether a required variable is set.
type VariableCheck struct {
	Name  string
	Value string // masked for secrets
	Set   bool
}

// CheckRequired reports the state of the variables the service expects.
// Only GOOGLE_API_KEY is mandatory; the rest fall back to defaults.
func CheckRequired(lookupEnv func(string) (string, bool)) []VariableCheck {
	checks := make([]VariableCheck, 0, len(requiredVariables))
	for _, name := range requiredVariables {
		value, ok := lookupEnv(name)
		ok = ok && value != ""
		if ok && logging.IsSensitive(name) {
			value = logging.Mask(value)
		}
		checks = append(checks, VariableCheck{Name: name, Value: value, Set: ok})
	}
	return checks
}
