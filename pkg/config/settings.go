// Package config resolves the process-wide formai settings from defaults,
// an optional YAML file, an optional .env file and the process environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/adrg/xdg"
)

// Environment variable names.
const (
	EnvAPIKey         = "GOOGLE_API_KEY"
	EnvDefaultModel   = "DEFAULT_MODEL"
	EnvComplexModel   = "COMPLEX_MODEL"
	EnvCompanyName    = "COMPANY_NAME"
	EnvContactPerson  = "CONTACT_PERSON"
	EnvEmail          = "EMAIL"
	EnvPhone          = "PHONE"
	EnvHost           = "API_HOST"
	EnvPort           = "PORT"
	EnvAPIPort        = "API_PORT"
	EnvHeadless       = "HEADLESS"
	EnvTimeout        = "TIMEOUT"
	EnvLLMBaseURL     = "LLM_BASE_URL"
	EnvMaxSteps       = "AGENT_MAX_STEPS"
	EnvTokenEstimator = "TOKEN_ESTIMATOR"
	EnvAllowedHosts   = "ALLOWED_HOSTS"
	EnvDeniedHosts    = "DENIED_HOSTS"
	EnvHistoryEnabled = "HISTORY_ENABLED"
	EnvHistoryDir     = "HISTORY_DIR"
	EnvLogDir         = "LOG_DIR"
	EnvCORSOrigins    = "CORS_ORIGINS"

	// EnvConfigFile names an optional YAML settings file.
	EnvConfigFile = "FORMAI_CONFIG"
)

// Default values.
const (
	DefaultModel         = "gemini-1.5-flash-latest"
	DefaultComplexModel  = "gemini-1.5-pro-latest"
	DefaultCompanyName   = "RECHANCE株式会社"
	DefaultContactPerson = "桑原麻由"
	DefaultEmail         = "info@rechance.jp"
	DefaultPhone         = "090-1234-7891"
	DefaultHost          = "0.0.0.0"
	DefaultPort          = 8000
	DefaultTimeoutMillis = 60000
	DefaultLLMBaseURL    = "https://generativelanguage.googleapis.com/v1beta/openai"
	DefaultMaxSteps      = 15
	DefaultDotEnvPath    = ".env"

	TokenEstimatorFixed    = "fixed"
	TokenEstimatorTiktoken = "tiktoken"

	// AppName is used for XDG directory paths.
	AppName = "formai"
)

// Settings is an immutable snapshot of the service configuration.
// It is built once at startup and shared read-only between requests.
type Settings struct {
	// APIKey is the LLM credential. It is never serialized.
	APIKey string `json:"-" yaml:"-"`

	DefaultModel string `json:"default_model" yaml:"default_model"`
	ComplexModel string `json:"complex_model" yaml:"complex_model"`

	CompanyName   string `json:"company_name" yaml:"company_name"`
	ContactPerson string `json:"contact_person" yaml:"contact_person"`
	Email         string `json:"email" yaml:"email"`
	Phone         string `json:"phone" yaml:"phone"`

	Host string `json:"api_host" yaml:"api_host"`
	Port int    `json:"port" yaml:"port"`

	Headless      bool `json:"headless" yaml:"headless"`
	TimeoutMillis int  `json:"timeout" yaml:"timeout"`

	LLMBaseURL     string `json:"llm_base_url" yaml:"llm_base_url"`
	MaxSteps       int    `json:"agent_max_steps" yaml:"agent_max_steps"`
	TokenEstimator string `json:"token_estimator" yaml:"token_estimator"`

	AllowedHosts []string `json:"allowed_hosts" yaml:"allowed_hosts"`
	DeniedHosts  []string `json:"denied_hosts" yaml:"denied_hosts"`

	HistoryEnabled bool   `json:"history_enabled" yaml:"history_enabled"`
	HistoryDir     string `json:"history_dir" yaml:"history_dir"`
	LogDir         string `json:"log_dir" yaml:"log_dir"`

	CORSOrigins []string `json:"cors_origins" yaml:"cors_origins"`
}

// Timeout returns the automation timeout as a duration.
func (s *Settings) Timeout() time.Duration {
	return time.Duration(s.TimeoutMillis) * time.Millisecond
}

// Addr returns the listen address.
func (s *Settings) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// PublicSettings is the credential-free view served by the config endpoint.
type PublicSettings struct {
	DefaultModel  string `json:"default_model" yaml:"default_model"`
	ComplexModel  string `json:"complex_model" yaml:"complex_model"`
	CompanyName   string `json:"company_name" yaml:"company_name"`
	ContactPerson string `json:"contact_person" yaml:"contact_person"`
	Email         string `json:"email" yaml:"email"`
	Phone         string `json:"phone" yaml:"phone"`
	Headless      bool   `json:"headless" yaml:"headless"`
	Timeout       int    `json:"timeout" yaml:"timeout"`
}

// Public returns the projection of s without secrets.
func (s *Settings) Public() PublicSettings {
	return PublicSettings{
		DefaultModel:  s.DefaultModel,
		ComplexModel:  s.ComplexModel,
		CompanyName:   s.CompanyName,
		ContactPerson: s.ContactPerson,
		Email:         s.Email,
		Phone:         s.Phone,
		Headless:      s.Headless,
		Timeout:       s.TimeoutMillis,
	}
}

// Options controls where Load reads from. The zero value reads the process
// environment, ./.env, and the file named by FORMAI_CONFIG.
type Options struct {
	// LookupEnv replaces os.LookupEnv, mainly for tests.
	LookupEnv func(string) (string, bool)

	// DotEnvPath is the .env file to read. Empty means DefaultDotEnvPath;
	// "-" disables .env loading.
	DotEnvPath string

	// ConfigFile is a YAML settings file. Empty means the FORMAI_CONFIG
	// variable, if set.
	ConfigFile string
}

// Load builds a Settings snapshot. Any *ConfigurationError it returns is
// fatal and must abort startup.
func Load(opts Options) (*Settings, error) {
	lookupEnv := opts.LookupEnv
	if lookupEnv == nil {
		lookupEnv = os.LookupEnv
	}

	dotEnvPath := opts.DotEnvPath
	switch dotEnvPath {
	case "":
		dotEnvPath = DefaultDotEnvPath
	case "-":
		dotEnvPath = ""
	}
	dotenv, err := readDotEnv(dotEnvPath)
	if err != nil {
		return nil, configErr(".env", err)
	}

	src := &source{lookupEnv: lookupEnv, dotenv: dotenv}

	configFile := opts.ConfigFile
	if configFile == "" {
		configFile, _ = src.lookup(EnvConfigFile)
	}
	file, err := readYAMLFile(configFile)
	if err != nil {
		return nil, configErr(EnvConfigFile, err)
	}
	src.file = file

	return build(src)
}

func build(src *source) (*Settings, error) {
	s := &Settings{
		DefaultModel:   src.get(EnvDefaultModel, DefaultModel),
		ComplexModel:   src.get(EnvComplexModel, DefaultComplexModel),
		CompanyName:    src.get(EnvCompanyName, DefaultCompanyName),
		ContactPerson:  src.get(EnvContactPerson, DefaultContactPerson),
		Email:          src.get(EnvEmail, DefaultEmail),
		Phone:          src.get(EnvPhone, DefaultPhone),
		Host:           src.get(EnvHost, DefaultHost),
		Headless:       strings.EqualFold(src.get(EnvHeadless, "true"), "true"),
		LLMBaseURL:     strings.TrimRight(src.get(EnvLLMBaseURL, DefaultLLMBaseURL), "/"),
		TokenEstimator: strings.ToLower(src.get(EnvTokenEstimator, TokenEstimatorFixed)),
		AllowedHosts:   splitList(src.get(EnvAllowedHosts, "")),
		DeniedHosts:    splitList(src.get(EnvDeniedHosts, "")),
		HistoryEnabled: strings.EqualFold(src.get(EnvHistoryEnabled, "false"), "true"),
		HistoryDir:     src.get(EnvHistoryDir, filepath.Join(xdg.DataHome, AppName)),
		LogDir:         src.get(EnvLogDir, ""),
		CORSOrigins:    splitList(src.get(EnvCORSOrigins, "*")),
	}

	apiKey, ok := src.lookup(EnvAPIKey)
	if !ok || strings.TrimSpace(apiKey) == "" {
		return nil, configErr(EnvAPIKey, ErrMissingAPIKey)
	}
	s.APIKey = apiKey

	portKey := EnvPort
	portValue, ok := src.lookup(EnvPort)
	if !ok {
		portKey = EnvAPIPort
		portValue = src.get(EnvAPIPort, strconv.Itoa(DefaultPort))
	}
	port, err := parseInt(portKey, portValue)
	if err != nil {
		return nil, err
	}
	if port < 1 || port > 65535 {
		return nil, configErr(portKey, ErrInvalidPort)
	}
	s.Port = port

	timeout, err := parseInt(EnvTimeout, src.get(EnvTimeout, strconv.Itoa(DefaultTimeoutMillis)))
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		return nil, configErr(EnvTimeout, ErrInvalidTimeout)
	}
	s.TimeoutMillis = timeout

	steps, err := parseInt(EnvMaxSteps, src.get(EnvMaxSteps, strconv.Itoa(DefaultMaxSteps)))
	if err != nil {
		return nil, err
	}
	if steps <= 0 {
		return nil, configErr(EnvMaxSteps, ErrInvalidMaxSteps)
	}
	s.MaxSteps = steps

	if s.TokenEstimator != TokenEstimatorFixed && s.TokenEstimator != TokenEstimatorTiktoken {
		return nil, configErr(EnvTokenEstimator, ErrInvalidTokenEstimator)
	}

	return s, nil
}

func parseInt(key, value string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, configErr(key, fmt.Errorf("%w: %q", ErrInvalidInteger, value))
	}
	return n, nil
}

// splitList splits a comma-separated list, dropping blanks.
func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Resolver computes Settings once and hands out the same snapshot on every
// call. Construct one at process start and pass it (or its Settings) down.
type Resolver struct {
	opts     Options
	once     sync.Once
	settings *Settings
	err      error
}

// NewResolver creates a resolver reading from opts.
func NewResolver(opts Options) *Resolver {
	return &Resolver{opts: opts}
}

// Settings loads the configuration on first use and returns the cached
// result afterwards, including a cached error.
func (r *Resolver) Settings() (*Settings, error) {
	r.once.Do(func() {
		r.settings, r.err = Load(r.opts)
	})
	return r.settings, r.err
}
