package configuration

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/ntsowef/eff-membership-system-sub020/pkg/logging"
)

const Production = "production"

var singleton = sync.OnceValue(func() *Configuration {
	c := &Configuration{}
	if err := c.load([]string{".env", ".env.local"}); err != nil {
		c.Unload()
		panic(err)
	}
	return c
})

// LoadEnv loads the given env files from the working directory, falling back
// to the nearest ancestor containing go.mod so tests run from package dirs
// still pick up repo-root env files.
func LoadEnv(envFiles []string) (int, error) {
	existing := make([]string, 0, len(envFiles))
	for _, file := range envFiles {
		if path, ok := resolveEnvFile(file); ok {
			existing = append(existing, path)
		}
	}
	if len(existing) == 0 {
		return 0, nil
	}
	return len(existing), godotenv.Load(existing...)
}

func resolveEnvFile(file string) (string, bool) {
	if fileExists(file) {
		return file, true
	}
	dir, err := os.Getwd()
	if err != nil {
		return "", false
	}
	for {
		if fileExists(filepath.Join(dir, "go.mod")) {
			candidate := filepath.Join(dir, file)
			return candidate, fileExists(candidate)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

type DatabaseOptions struct {
	Opts     string `env:"-"`
	Name     string `env:"DB_NAME" envDefault:"eff_membership"`
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     string `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER" envDefault:"postgres"`
	Password string `env:"DB_PASSWORD" envDefault:"postgres"`
}

func (d *DatabaseOptions) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s dbname=%s password=%s sslmode=disable",
		d.Host, d.Port, d.User, d.Name, d.Password,
	)
}

// IECOptions configures the IEC voter-verification client.
type IECOptions struct {
	BaseURL   string        `env:"IEC_API_BASE_URL" envDefault:"https://api.elections.org.za"`
	APIKey    string        `env:"IEC_API_KEY"`
	Timeout   time.Duration `env:"IEC_API_TIMEOUT" envDefault:"15s"`
	BatchSize int           `env:"IEC_BATCH_SIZE" envDefault:"5"`
}

func (o *IECOptions) Validate() error {
	if strings.TrimSpace(o.BaseURL) == "" {
		return fmt.Errorf("IEC_API_BASE_URL must not be empty")
	}
	if o.BatchSize <= 0 {
		return fmt.Errorf("IEC_BATCH_SIZE must be positive, got %d", o.BatchSize)
	}
	return nil
}

type RateLimitOptions struct {
	Enabled  bool          `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	Limit    int64         `env:"RATE_LIMIT_CEILING" envDefault:"1000"`
	Window   time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1h"`
	Storage  string        `env:"RATE_LIMIT_STORAGE" envDefault:"memory"` // memory or redis
	RedisURL string        `env:"RATE_LIMIT_REDIS_URL"`
}

func (r *RateLimitOptions) Validate() error {
	if r.Limit < 0 {
		return fmt.Errorf("rate limit ceiling must be non-negative, got %d", r.Limit)
	}
	if r.Window <= 0 {
		return fmt.Errorf("rate limit window must be positive, got %s", r.Window)
	}
	if r.Storage != "memory" && r.Storage != "redis" {
		return fmt.Errorf("rate limit Storage must be 'memory' or 'redis', got '%s'", r.Storage)
	}
	if r.Storage == "redis" && r.RedisURL == "" {
		return fmt.Errorf("rate limit RedisURL is required when Storage is 'redis'")
	}
	return nil
}

// UploadOptions configures the bulk-upload pipeline.
type UploadOptions struct {
	// StrictAtomic switches the persistence engine from per-record failure
	// isolation (the historical behavior) to all-or-nothing transaction
	// semantics.
	StrictAtomic bool `env:"BULK_STRICT_ATOMIC" envDefault:"false"`

	ReportDir string `env:"BULK_REPORT_DIR" envDefault:"./reports"`

	// DefaultSubscriptionAmount is applied when a row carries a subscription
	// tier but no amount.
	DefaultSubscriptionAmount string `env:"BULK_DEFAULT_SUBSCRIPTION_AMOUNT" envDefault:"10.00"`
}

type Configuration struct {
	Database  DatabaseOptions
	IEC       IECOptions
	RateLimit RateLimitOptions
	Upload    UploadOptions

	MigrationsDir    string `env:"MIGRATIONS_DIR" envDefault:"migrations"`
	GoAppEnvironment string `env:"GO_APP_ENV" envDefault:"development"`
	LogLevel         string `env:"LOG_LEVEL" envDefault:"error"`
	LogPath          string `env:"LOG_PATH" envDefault:"./logs/app.log"`

	logFile *os.File
	logger  *logrus.Logger
}

func (c *Configuration) Logger() *logrus.Logger {
	return c.logger
}

func (c *Configuration) LogrusLogLevel() logrus.Level {
	switch c.LogLevel {
	case "silent":
		return logrus.PanicLevel
	case "error":
		return logrus.ErrorLevel
	case "warn":
		return logrus.WarnLevel
	case "info":
		return logrus.InfoLevel
	case "debug":
		return logrus.DebugLevel
	default:
		return logrus.ErrorLevel
	}
}

func Use() *Configuration {
	return singleton()
}

func (c *Configuration) load(envFiles []string) error {
	n, err := LoadEnv(envFiles)
	if err != nil {
		return err
	}
	if n == 0 {
		wd, _ := os.Getwd()
		log.Println("No .env files found. Tried:")
		for _, file := range envFiles {
			log.Println(filepath.Join(wd, file))
		}
	}
	if err := env.Parse(c); err != nil {
		return err
	}

	if err := c.RateLimit.Validate(); err != nil {
		return fmt.Errorf("rate limit configuration error: %w", err)
	}
	if err := c.IEC.Validate(); err != nil {
		return fmt.Errorf("IEC configuration error: %w", err)
	}

	f, logger, err := logging.FileLogger(c.LogrusLogLevel(), c.LogPath)
	if err != nil {
		return err
	}
	c.logFile = f
	c.logger = logger

	c.Database.Opts = c.Database.ConnectionString()
	return nil
}

// Unload handles a graceful shutdown.
func (c *Configuration) Unload() {
	if c.logFile != nil {
		if err := c.logFile.Close(); err != nil {
			log.Printf("Failed to close log file: %v", err)
		}
	}
}
