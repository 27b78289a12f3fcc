package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

const minSecretLength = 32

type Config struct {
	Server   ServerConfig   `env:",prefix=SERVER_"`
	Mongo    MongoConfig    `env:",prefix=MONGODB_"`
	Redis    RedisConfig    `env:",prefix=REDIS_"`
	JWT      JWTConfig      `env:",prefix="`
	Security SecurityConfig `env:",prefix="`
	CORS     CORSConfig     `env:",prefix=CORS_"`
	Cookie   CookieConfig   `env:",prefix=COOKIE_"`
	Upload   UploadConfig   `env:",prefix=UPLOAD_"`
	Media    MediaConfig    `env:",prefix=MEDIA_"`
	Events   EventsConfig   `env:",prefix="`
	Env      string         `env:"ENV,default=development"`
}

// ServerConfig holds listener settings. TrustedProxies lists the proxy IPs/CIDRs
// whose X-Forwarded-For is honoured; empty trusts none.
type ServerConfig struct {
	Port            string   `env:"PORT,default=8000"`
	Host            string   `env:"HOST,default=0.0.0.0"`
	ReadTimeout     Duration `env:"READ_TIMEOUT,default=15s"`
	WriteTimeout    Duration `env:"WRITE_TIMEOUT,default=30s"`
	ShutdownTimeout Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`
	TrustedProxies  []string `env:"TRUSTED_PROXIES"`
}

type MongoConfig struct {
	URI            string   `env:"URI,default=mongodb://localhost:27017"`
	Database       string   `env:"DATABASE,default=videotube"`
	ConnectTimeout Duration `env:"CONNECT_TIMEOUT,default=10s"`
}

type RedisConfig struct {
	Host     string `env:"HOST,default=localhost"`
	Port     string `env:"PORT,default=6379"`
	Password string `env:"PASSWORD,default="`
	DB       int    `env:"DB,default=0"`
}

// JWTConfig keeps access and refresh tokens on separate secrets.
type JWTConfig struct {
	AccessTokenSecret  string   `env:"ACCESS_TOKEN_SECRET,required"`
	AccessTokenExpiry  Duration `env:"ACCESS_TOKEN_EXPIRY,default=15m"`
	RefreshTokenSecret string   `env:"REFRESH_TOKEN_SECRET,required"`
	RefreshTokenExpiry Duration `env:"REFRESH_TOKEN_EXPIRY,default=10d"`
}

type SecurityConfig struct {
	BCryptCost        int      `env:"BCRYPT_COST,default=12"`
	RateLimitRequests int      `env:"RATE_LIMIT_REQUESTS,default=10"`
	RateLimitWindow   Duration `env:"RATE_LIMIT_WINDOW,default=1m"`
}

type CORSConfig struct {
	AllowedOrigins []string `env:"ALLOWED_ORIGINS,default=http://localhost:3000"`
	AllowedMethods []string `env:"ALLOWED_METHODS,default=GET,POST,PATCH,DELETE,OPTIONS"`
	AllowedHeaders []string `env:"ALLOWED_HEADERS,default=Content-Type,Authorization"`
}

// CookieConfig controls the accessToken/refreshToken cookies.
// Secure should only be disabled for plain-HTTP local development.
type CookieConfig struct {
	Secure bool   `env:"SECURE,default=true"`
	Domain string `env:"DOMAIN,default="`
	Path   string `env:"PATH,default=/"`
}

type UploadConfig struct {
	Dir      string `env:"DIR,default=./public/temp"`
	MaxBytes int64  `env:"MAX_BYTES,default=10485760"`
}

// MediaConfig describes the S3-compatible bucket that hosts avatars and cover images.
type MediaConfig struct {
	Endpoint        string `env:"ENDPOINT,default="`
	Region          string `env:"REGION,default=auto"`
	AccessKeyID     string `env:"ACCESS_KEY_ID,default="`
	SecretAccessKey string `env:"SECRET_ACCESS_KEY,default="`
	Bucket          string `env:"BUCKET,default="`
	PublicURL       string `env:"PUBLIC_URL,default="`
	UsePathStyle    bool   `env:"USE_PATH_STYLE,default=true"`
	AvatarSize      int    `env:"AVATAR_SIZE,default=400"`
}

// EventsConfig enables domain event publishing when AMQP_URL is set.
type EventsConfig struct {
	AMQPURL  string `env:"AMQP_URL,default="`
	Exchange string `env:"AMQP_EXCHANGE,default=videotube.users"`
}

// Address returns Redis connection address
func (r RedisConfig) Address() string {
	return fmt.Sprintf("%s:%s", r.Host, r.Port)
}

// Enabled reports whether a broker URL was configured
func (e EventsConfig) Enabled() bool {
	return e.AMQPURL != ""
}

// Load reads an optional .env file and then loads configuration from environment variables.
// Variables already present in the environment win over the file.
func Load(ctx context.Context) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env file: %w", err)
	}

	var config Config

	if err := envconfig.Process(ctx, &config); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := config.JWT.validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// LoadWithDefaults loads configuration with default context
func LoadWithDefaults() (*Config, error) {
	return Load(context.Background())
}

func (j JWTConfig) validate() error {
	if len(j.AccessTokenSecret) < minSecretLength {
		return fmt.Errorf("ACCESS_TOKEN_SECRET must be at least %d characters long", minSecretLength)
	}
	if len(j.RefreshTokenSecret) < minSecretLength {
		return fmt.Errorf("REFRESH_TOKEN_SECRET must be at least %d characters long", minSecretLength)
	}
	if j.AccessTokenSecret == j.RefreshTokenSecret {
		return fmt.Errorf("ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET must differ")
	}
	return nil
}
