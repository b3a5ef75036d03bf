package config

import (
	"context"
	"errors"
	"fmt"

	"github.com/sethvargo/go-envconfig"
)

var (
	ErrMissingAPIKey       = errors.New("api key not configured")
	ErrMissingVertexConfig = errors.New("missing required Vertex AI configuration")
	ErrWeakSessionSecret   = errors.New("session secret must be changed when authentication is enabled")
)

// DefaultSessionSecret is the placeholder SESSION_SECRET ships with.
const DefaultSessionSecret = "change-me"

// Config is read once at startup and handed to each component.
type Config struct {
	ProjectName string `env:"PROJECT_NAME, default=codescribe"`
	Debug       bool   `env:"DEBUG, default=false"`
	LogLevel    string `env:"LOG_LEVEL, default=info"`
	LogPretty   bool   `env:"LOG_PRETTY, default=true"`

	Model      ModelConfig
	Database   DatabaseConfig
	Extraction ExtractionConfig
	OAuth      OAuthConfig
	Server     ServerConfig
	Email      EmailConfig
}

type ModelConfig struct {
	APIKey        string `env:"OPENAI_API_KEY"`
	Name          string `env:"OPENAI_MODEL, default=gpt-4o-mini"`
	BaseURL       string `env:"OPENAI_BASE_URL"`
	ToolRetries   int    `env:"AGENT_TOOL_RETRIES, default=3"`
	MaxIterations int    `env:"AGENT_MAX_ITERATIONS, default=10"`
}

type DatabaseConfig struct {
	Host     string `env:"POSTGRES_HOST, default=localhost"`
	Port     string `env:"POSTGRES_PORT, default=5432"`
	User     string `env:"POSTGRES_USER, default=postgres"`
	Password string `env:"POSTGRES_PASSWORD"`
	Name     string `env:"POSTGRES_DB, default=postgres"`
	SSLMode  string `env:"POSTGRES_SSLMODE, default=disable"`
	TimeZone string `env:"POSTGRES_TIMEZONE, default=UTC"`
}

// DSN renders the keyword/value connection string understood by pgx.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
		d.Host, d.User, d.Password, d.Name, d.Port, d.SSLMode, d.TimeZone,
	)
}

// ExtractionConfig selects between the AI Studio (API key) and Vertex AI
// (OAuth) backends of the extraction demo.
type ExtractionConfig struct {
	GoogleAPIKey      string `env:"GOOGLE_API_KEY"`
	LangExtractAPIKey string `env:"LANGEXTRACT_API_KEY"`
	UseVertexAI       bool   `env:"GOOGLE_GENAI_USE_VERTEXAI, default=false"`
	Project           string `env:"GOOGLE_CLOUD_PROJECT"`
	Location          string `env:"GOOGLE_CLOUD_LOCATION"`
	CredentialsPath   string `env:"GOOGLE_APPLICATION_CREDENTIALS"`
	GenAIProjectID    string `env:"GOOGLE_GENAI_PROJECT_ID"`
	ModelID           string `env:"EXTRACT_MODEL_ID, default=gemini-2.5-flash"`
}

// APIKey prefers the extraction-specific key over the generic Google one.
func (e ExtractionConfig) APIKey() string {
	if e.LangExtractAPIKey != "" {
		return e.LangExtractAPIKey
	}
	return e.GoogleAPIKey
}

// VertexProject is the project requests are billed to.
func (e ExtractionConfig) VertexProject() string {
	if e.GenAIProjectID != "" {
		return e.GenAIProjectID
	}
	return e.Project
}

func (e ExtractionConfig) Validate() error {
	if e.UseVertexAI {
		if e.Project == "" || e.Location == "" || e.CredentialsPath == "" {
			return fmt.Errorf("%w: GOOGLE_CLOUD_PROJECT, GOOGLE_CLOUD_LOCATION and GOOGLE_APPLICATION_CREDENTIALS are required", ErrMissingVertexConfig)
		}
		return nil
	}
	if e.APIKey() == "" {
		return fmt.Errorf("%w: GOOGLE_API_KEY environment variable is required", ErrMissingAPIKey)
	}
	return nil
}

type OAuthConfig struct {
	ProjectRoot string `env:"OAUTH_PROJECT_ROOT, default=."`
}

type ServerConfig struct {
	Port             string `env:"PORT, default=8080"`
	SessionSecret    string `env:"SESSION_SECRET, default=change-me"`
	OIDCIssuer       string `env:"OIDC_ISSUER"`
	OIDCClientID     string `env:"OIDC_CLIENT_ID"`
	OIDCClientSecret string `env:"OIDC_CLIENT_SECRET"`
	OIDCRedirectURL  string `env:"OIDC_REDIRECT_URL"`
	AuthDisabled     bool   `env:"AUTH_DISABLED, default=false"`
}

func (s ServerConfig) OIDCConfigured() bool {
	return s.OIDCIssuer != "" && s.OIDCClientID != ""
}

// ValidateSession rejects an empty or placeholder cookie signing key unless
// authentication is off.
func (s ServerConfig) ValidateSession() error {
	if s.AuthDisabled {
		return nil
	}
	if s.SessionSecret == "" || s.SessionSecret == DefaultSessionSecret {
		return fmt.Errorf("%w: set SESSION_SECRET", ErrWeakSessionSecret)
	}
	return nil
}

type EmailConfig struct {
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
	AWSRegion          string `env:"AWS_REGION, default=us-east-1"`
	SenderEmail        string `env:"AWS_SENDER_ADDRESS"`
}

func (e EmailConfig) Enabled() bool {
	return e.SenderEmail != ""
}

// ValidateModel checks what the agent needs before it can talk to the model.
func (c *Config) ValidateModel() error {
	if c.Model.APIKey == "" {
		return fmt.Errorf("%w: please set the OPENAI_API_KEY environment variable", ErrMissingAPIKey)
	}
	return nil
}

// Load reads configuration from the process environment.
func Load(ctx context.Context) (*Config, error) {
	return load(ctx, envconfig.OsLookuper())
}

// LoadFrom reads configuration through the given lookuper. Tests use
// envconfig.MapLookuper.
func LoadFrom(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	return load(ctx, l)
}

func load(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: l,
	}); err != nil {
		return nil, fmt.Errorf("config: failed to load configuration: %w", err)
	}
	return &cfg, nil
}
