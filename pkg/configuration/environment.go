package configuration

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/iota-uz/utils/fs"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/lead-rotation/pkg/logging"
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

// LoadEnv loads the given env files, looking first in the working directory
// and then in the nearest ancestor that holds a go.mod.
func LoadEnv(envFiles []string) (int, error) {
	root := moduleRoot()
	existingFiles := make([]string, 0, len(envFiles))
	for _, file := range envFiles {
		if fs.FileExists(file) {
			existingFiles = append(existingFiles, file)
			continue
		}
		if root == "" || filepath.IsAbs(file) {
			continue
		}
		if candidate := filepath.Join(root, file); fs.FileExists(candidate) {
			existingFiles = append(existingFiles, candidate)
		}
	}

	if len(existingFiles) == 0 {
		return 0, nil
	}

	return len(existingFiles), godotenv.Load(existingFiles...)
}

func moduleRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		if fs.FileExists(filepath.Join(dir, "go.mod")) {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

type DatabaseOptions struct {
	Opts     string `env:"-"`
	Name     string `env:"DB_NAME" envDefault:"lead_rotation"`
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

type RedisOptions struct {
	URL      string `env:"REDIS_URL" envDefault:"localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

type OpenTelemetryOptions struct {
	Enabled     bool   `env:"OTEL_ENABLED" envDefault:"false"`
	ServiceName string `env:"OTEL_SERVICE_NAME" envDefault:"lead-rotation"`
	TempoURL    string `env:"OTEL_TEMPO_URL" envDefault:"localhost:4318"`
}

type PrometheusOptions struct {
	Enabled bool   `env:"PROMETHEUS_METRICS_ENABLED" envDefault:"false"`
	Path    string `env:"PROMETHEUS_METRICS_PATH" envDefault:"/debug/prometheus"`
}

type RotationOptions struct {
	// Locker selects how per-key critical sections are enforced: "memory"
	// for a single process, "redis" when several instances share a database.
	Locker  string        `env:"ROTATION_LOCKER" envDefault:"memory"`
	LockTTL time.Duration `env:"ROTATION_LOCK_TTL" envDefault:"5s"`

	LedgerMaxAttempts   int           `env:"ROTATION_LEDGER_MAX_ATTEMPTS" envDefault:"5"`
	LedgerInitialDelay  time.Duration `env:"ROTATION_LEDGER_INITIAL_DELAY" envDefault:"50ms"`
	LedgerMaxDelay      time.Duration `env:"ROTATION_LEDGER_MAX_DELAY" envDefault:"2s"`
	ConflictRetryBudget int           `env:"ROTATION_CONFLICT_RETRIES" envDefault:"1"`
}

func (r *RotationOptions) Validate() error {
	switch r.Locker {
	case "memory", "redis":
	default:
		return fmt.Errorf("invalid ROTATION_LOCKER=%q (expected memory|redis)", r.Locker)
	}
	if r.LockTTL <= 0 {
		return fmt.Errorf("ROTATION_LOCK_TTL must be positive, got %s", r.LockTTL)
	}
	if r.LedgerMaxAttempts < 1 {
		return fmt.Errorf("ROTATION_LEDGER_MAX_ATTEMPTS must be at least 1, got %d", r.LedgerMaxAttempts)
	}
	if r.ConflictRetryBudget < 0 {
		return fmt.Errorf("ROTATION_CONFLICT_RETRIES must be non-negative, got %d", r.ConflictRetryBudget)
	}
	return nil
}

type Configuration struct {
	Database      DatabaseOptions
	Redis         RedisOptions
	OpenTelemetry OpenTelemetryOptions
	Prometheus    PrometheusOptions
	Rotation      RotationOptions

	ServerPort       int    `env:"PORT" envDefault:"3200"`
	GoAppEnvironment string `env:"GO_APP_ENV" envDefault:"development"`
	SocketAddress    string `env:"-"`
	LogLevel         string `env:"LOG_LEVEL" envDefault:"error"`
	LogPath          string `env:"LOG_PATH" envDefault:"./logs/app.log"`
	// Tenant used by the CLI when --tenant is not given, and by the API
	// when a request carries no tenant header.
	DefaultTenantID string `env:"DEFAULT_TENANT_ID"`
	TenantHeader    string `env:"TENANT_HEADER" envDefault:"X-Tenant-Id"`
	RequestIDHeader string `env:"REQUEST_ID_HEADER" envDefault:"X-Request-Id"`
	RealIPHeader    string `env:"REAL_IP_HEADER" envDefault:"X-Real-Ip"`

	logFile io.Closer
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

// Parse builds a Configuration from the environment without touching the
// filesystem logger; used by tests and tools that configure logging
// themselves.
func Parse() (*Configuration, error) {
	c := &Configuration{}
	if err := c.parse(); err != nil {
		return nil, err
	}
	c.logger = logging.ConsoleLogger(c.LogrusLogLevel())
	return c, nil
}

func (c *Configuration) parse() error {
	if err := env.Parse(c); err != nil {
		return err
	}
	c.Rotation.Locker = strings.ToLower(strings.TrimSpace(c.Rotation.Locker))
	if err := c.Rotation.Validate(); err != nil {
		return fmt.Errorf("rotation configuration error: %w", err)
	}

	c.Database.Opts = c.Database.ConnectionString()
	if c.GoAppEnvironment == Production {
		c.SocketAddress = fmt.Sprintf(":%d", c.ServerPort)
	} else {
		c.SocketAddress = fmt.Sprintf("localhost:%d", c.ServerPort)
	}
	return nil
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
	if err := c.parse(); err != nil {
		return err
	}

	f, logger, err := logging.FileLogger(c.LogrusLogLevel(), c.LogPath)
	if err != nil {
		return err
	}
	c.logFile = f
	c.logger = logger
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
