package models

import (
	"path"
	"time"

	"github.com/derWhity/devcamper/internal/geocoder"
	"github.com/derWhity/devcamper/internal/query"
	"github.com/kardianos/osext"
)

const (
	// EnvProduction is the environment name that enables production behaviour like secure cookies
	EnvProduction = "production"
	// EnvDevelopment is the default environment name
	EnvDevelopment = "development"

	// StorageSQLite selects the SQLite storage driver
	StorageSQLite = "sqlite"
	// StorageMongo selects the MongoDB storage driver
	StorageMongo = "mongo"
)

// AppConfig is the application's main configuration structure
type AppConfig struct {
	// The directory where devcamper stores all of its data - defaults to the /data subdirectory of the folder, the
	// executable resides in
	DataDir string `json:"dataDir" env:"DEVCAMPER_DATA_DIR, overwrite"`
	// The IP address to listen at - including the port number
	ListenAddress string `json:"listenAddress" env:"DEVCAMPER_LISTEN_ADDRESS, overwrite"`
	// The environment the application runs in: "development" or "production"
	Env string `json:"env" env:"DEVCAMPER_ENV, overwrite"`
	// The address under which the API can be reached from outside - used for links in e-mails
	PublicURL string `json:"publicUrl" env:"DEVCAMPER_PUBLIC_URL, overwrite"`

	Log          LogConfig          `json:"log"`
	Storage      StorageConfig      `json:"storage"`
	Auth         AuthConfig         `json:"auth"`
	Query        query.Options      `json:"query"`
	Geo          GeoConfig          `json:"geo"`
	Geocoder     geocoder.Config    `json:"geocoder"`
	Uploads      UploadConfig       `json:"uploads"`
	Mail         MailConfig         `json:"mail"`
	RateLimit    RateLimitConfig    `json:"rateLimit"`
	DefaultAdmin DefaultAdminConfig `json:"defaultAdmin"`
}

// LogConfig configures the application's logging
type LogConfig struct {
	// The minimum level to log: "debug", "info", "warning", "error"
	Level string `json:"level" env:"DEVCAMPER_LOG_LEVEL, overwrite"`
	// The output format: "text" or "json"
	Format string `json:"format" env:"DEVCAMPER_LOG_FORMAT, overwrite"`
}

// StorageConfig selects and configures the storage backend
type StorageConfig struct {
	// "sqlite" or "mongo"
	Driver string `json:"driver" env:"DEVCAMPER_STORAGE_DRIVER, overwrite"`
	// Name of the SQLite database file inside the data directory
	SQLiteFile string `json:"sqliteFile"`
	// Connection URI of the MongoDB server
	MongoURI string `json:"mongoUri" env:"DEVCAMPER_MONGO_URI, overwrite"`
	// Name of the MongoDB database to use
	MongoDatabase string `json:"mongoDatabase" env:"DEVCAMPER_MONGO_DATABASE, overwrite"`
	// Maximum duration of a single storage query in seconds - 0 disables the timeout
	QueryTimeoutSeconds int `json:"queryTimeout"`
}

// QueryTimeout returns the storage query timeout as duration
func (c StorageConfig) QueryTimeout() time.Duration {
	return time.Duration(c.QueryTimeoutSeconds) * time.Second
}

// AuthConfig configures the signed tokens used for authentication
type AuthConfig struct {
	// The secret used for signing the tokens
	JWTSecret string `json:"jwtSecret" env:"DEVCAMPER_JWT_SECRET, overwrite"`
	// How long a token is valid (Go duration syntax, e.g. "720h")
	JWTExpire string `json:"jwtExpire" env:"DEVCAMPER_JWT_EXPIRE, overwrite"`
	// Number of days the token cookie is kept by the browser
	CookieExpireDays int `json:"cookieExpireDays"`
}

// TokenLifetime returns the parsed token lifetime - invalid values fall back to 30 days
func (c AuthConfig) TokenLifetime() time.Duration {
	if d, err := time.ParseDuration(c.JWTExpire); err == nil && d > 0 {
		return d
	}
	return 30 * 24 * time.Hour
}

// GeoConfig configures the radius search
type GeoConfig struct {
	// The divisor that turns a search distance into an angular radius - its unit is the unit of the distance
	EarthRadius float64 `json:"earthRadius"`
}

// UploadConfig configures the storage of uploaded bootcamp photos
type UploadConfig struct {
	// Maximum size of an uploaded file in bytes
	MaxFileSize int64 `json:"maxFileSize"`
	// Directory to store the uploads in if no object storage is configured - relative to the data directory
	Dir   string      `json:"dir"`
	Minio MinioConfig `json:"minio"`
}

// MinioConfig configures an S3 compatible object storage for uploads. It is disabled as long as no endpoint is set.
type MinioConfig struct {
	Endpoint  string `json:"endpoint" env:"DEVCAMPER_MINIO_ENDPOINT, overwrite"`
	AccessKey string `json:"accessKey" env:"DEVCAMPER_MINIO_ACCESS_KEY, overwrite"`
	SecretKey string `json:"secretKey" env:"DEVCAMPER_MINIO_SECRET_KEY, overwrite"`
	Bucket    string `json:"bucket"`
	UseSSL    bool   `json:"useSSL"`
}

// MailConfig configures the SMTP server used for sending password reset mails. Mails are only logged if no host is
// configured.
type MailConfig struct {
	SMTPHost string `json:"smtpHost" env:"DEVCAMPER_SMTP_HOST, overwrite"`
	SMTPPort int    `json:"smtpPort" env:"DEVCAMPER_SMTP_PORT, overwrite"`
	User     string `json:"user" env:"DEVCAMPER_SMTP_USER, overwrite"`
	Password string `json:"password" env:"DEVCAMPER_SMTP_PASSWORD, overwrite"`
	FromName string `json:"fromName"`
	From     string `json:"from"`
}

// RateLimitConfig restricts the number of requests a single client IP may send
type RateLimitConfig struct {
	// Number of requests allowed per window - 0 disables rate limiting
	Requests int `json:"requests"`
	// Length of the window in minutes
	WindowMinutes int `json:"windowMinutes"`
	// Reverse proxies (IP addresses or CIDR networks) trusted to name the client in X-Forwarded-For. The header is
	// ignored if empty.
	TrustedProxies []string `json:"trustedProxies" env:"DEVCAMPER_TRUSTED_PROXIES, overwrite"`
}

// Window returns the rate limiting window as duration
func (c RateLimitConfig) Window() time.Duration {
	return time.Duration(c.WindowMinutes) * time.Minute
}

// DefaultAdminConfig describes the administrator account that is created on startup if no user with its e-mail
// address exists
type DefaultAdminConfig struct {
	Name     string `json:"name"`
	Email    string `json:"email" env:"DEVCAMPER_ADMIN_EMAIL, overwrite"`
	Password string `json:"password" env:"DEVCAMPER_ADMIN_PASSWORD, overwrite"`
}

// Production checks if the application runs in production mode
func (c *AppConfig) Production() bool {
	return c.Env == EnvProduction
}

// GetDefaultConfig returns the default configuration values for the application
func GetDefaultConfig() (*AppConfig, error) {
	execDir, err := osext.ExecutableFolder()
	if err != nil {
		return nil, err
	}
	return &AppConfig{
		DataDir:       path.Join(execDir, "data"),
		ListenAddress: ":5000",
		Env:           EnvDevelopment,
		PublicURL:     "http://localhost:5000",
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Storage: StorageConfig{
			Driver:              StorageSQLite,
			SQLiteFile:          "devcamper.db",
			MongoURI:            "mongodb://localhost:27017",
			MongoDatabase:       "devcamper",
			QueryTimeoutSeconds: 10,
		},
		Auth: AuthConfig{
			JWTSecret:        "changeme",
			JWTExpire:        "720h",
			CookieExpireDays: 30,
		},
		Query: query.DefaultOptions(),
		Geo: GeoConfig{
			EarthRadius: query.LegacyEarthRadius,
		},
		Geocoder: geocoder.Config{
			Provider: "static",
		},
		Uploads: UploadConfig{
			MaxFileSize: 1000000,
			Dir:         "uploads",
			Minio: MinioConfig{
				Bucket: "devcamper-uploads",
			},
		},
		Mail: MailConfig{
			SMTPPort: 587,
			FromName: "DevCamper",
			From:     "noreply@devcamper.io",
		},
		RateLimit: RateLimitConfig{
			Requests:      100,
			WindowMinutes: 10,
		},
		DefaultAdmin: DefaultAdminConfig{
			Name:     "Admin",
			Email:    "admin@devcamper.io",
			Password: "changeme",
		},
	}, nil
}
