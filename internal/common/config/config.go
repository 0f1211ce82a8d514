// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig          `mapstructure:"app"`
	Server        ServerConfig       `mapstructure:"server"`
	Pipeline      PipelineConfig     `mapstructure:"pipeline"`
	Database      DatabaseConfig     `mapstructure:"database"`
	CRM           CRMConfig          `mapstructure:"crm"`
	Lending       LendingConfig      `mapstructure:"lending"`
	Documents     DocumentsConfig    `mapstructure:"documents"`
	Integrations  IntegrationConfig  `mapstructure:"integrations"`
	Logging       LoggingConfig      `mapstructure:"logging"`
	Notifications NotificationConfig `mapstructure:"notifications"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Address      string `mapstructure:"address"`
	ReadTimeout  int    `mapstructure:"read_timeout"`  // milliseconds
	WriteTimeout int    `mapstructure:"write_timeout"` // milliseconds
}

// PipelineConfig holds settings for the conversation dispatch loop.
type PipelineConfig struct {
	MaxStepsPerTurn int `mapstructure:"max_steps_per_turn"`
	StepTimeout     int `mapstructure:"step_timeout"` // milliseconds
	SessionTTL      int `mapstructure:"session_ttl"`  // seconds, 0 means no expiry
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses  []string `mapstructure:"addresses"`
	Username   string   `mapstructure:"username"`
	Password   string   `mapstructure:"password"`
	SSLEnabled bool     `mapstructure:"ssl_enabled"`
	URL        string   `mapstructure:"url"` // Single URL for backwards compatibility
}

// GetURL returns the first address or the URL field
func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// --- Specific Configuration Sections ---

// CRMConfig selects and configures the customer record source.
type CRMConfig struct {
	// Source is one of "file", "postgres" or "remote".
	Source       string `mapstructure:"source"`
	DataDir      string `mapstructure:"data_dir"`
	SchemaPath   string `mapstructure:"schema_path"`
	RemoteURL    string `mapstructure:"remote_url"`
	Timeout      int    `mapstructure:"timeout"` // milliseconds
	BureauURL    string `mapstructure:"bureau_url"`
	OffersAPIURL string `mapstructure:"offers_api_url"`
}

// LendingConfig holds the tunable underwriting and pricing knobs.
type LendingConfig struct {
	MinCreditScore        int     `mapstructure:"min_credit_score"`
	PreApprovedMultiplier float64 `mapstructure:"pre_approved_multiplier"`
	ObligationCapRatio    float64 `mapstructure:"obligation_cap_ratio"`
	ReferenceAnnualRate   float64 `mapstructure:"reference_annual_rate"`
	ReferenceTenureMonths int     `mapstructure:"reference_tenure_months"`
	ProcessingFeeRate     float64 `mapstructure:"processing_fee_rate"`
	SanctionValidityDays  int     `mapstructure:"sanction_validity_days"`
	OTPMaxAttempts        int     `mapstructure:"otp_max_attempts"`
}

// DocumentsConfig holds settings for payslip intake and letter output.
type DocumentsConfig struct {
	UploadDir  string `mapstructure:"upload_dir"`
	OutputDir  string `mapstructure:"output_dir"`
	MaxKBytes  int    `mapstructure:"max_kbytes"`
	BucketName string `mapstructure:"bucket_name"`
}

// IntegrationConfig holds settings for AWS and other external services.
type IntegrationConfig struct {
	AWS struct {
		Region string `mapstructure:"region"`
		SES    struct {
			Enabled   bool   `mapstructure:"enabled"`
			FromEmail string `mapstructure:"from_email"`
		} `mapstructure:"ses"`
		SNS struct {
			Enabled            bool   `mapstructure:"enabled"`
			DefaultSMSSenderID string `mapstructure:"default_sms_sender_id"`
		} `mapstructure:"sns"`
	} `mapstructure:"aws"`

	Archive struct {
		Enabled bool   `mapstructure:"enabled"`
		Index   string `mapstructure:"index"`
	} `mapstructure:"archive"`
}

// NotificationConfig holds settings for OTP and sanction letter delivery.
type NotificationConfig struct {
	Email struct {
		Enabled   bool   `mapstructure:"enabled"`
		FromEmail string `mapstructure:"from_email"`
	} `mapstructure:"email"`
	SMS struct {
		Enabled bool `mapstructure:"enabled"`
	} `mapstructure:"sms"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
