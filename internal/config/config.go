package config

import "time"

type Config struct {
	Environment Environment
	Log         Log
	HTTP        HTTPServer
	AdminAPIKey string `env:"ADMIN_API_KEY"`

	Database Database `envPrefix:"DATABASE_"`
	Stripe   Stripe   `envPrefix:"STRIPE_"`
	Resend   Resend   `envPrefix:"RESEND_"`
	Ticket   Ticket   `envPrefix:"TICKET_"`
	Redis    Redis    `envPrefix:"REDIS_"`
	S3       S3       `envPrefix:"S3_"`
	Assets   Assets   `envPrefix:"ASSETS_"`
}

type Environment struct {
	Name string `env:"ENVIRONMENT" envDefault:"development"`
}

type Log struct {
	Level string `env:"LOG_LEVEL" envDefault:"info"`
}

type HTTPServer struct {
	Host            string        `env:"HTTP_HOST" envDefault:"0.0.0.0"`
	Port            string        `env:"HTTP_PORT" envDefault:"8080"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	AllowedOrigins  []string      `env:"HTTP_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
}

type Database struct {
	Driver          string        `env:"DRIVER" envDefault:"postgres"` // postgres, mysql, sqlite
	URL             string        `env:"URL"`
	MaxIdleConns    int           `env:"MAX_IDLE_CONNS" envDefault:"10"`
	MaxOpenConns    int           `env:"MAX_OPEN_CONNS" envDefault:"50"`
	ConnMaxLifetime time.Duration `env:"CONN_MAX_LIFETIME" envDefault:"1h"`
}

type Stripe struct {
	SecretKey     string `env:"SECRET_KEY"`
	WebhookSecret string `env:"WEBHOOK_SECRET"`
}

type Resend struct {
	BaseApiURL string `env:"BASE_API_URL" envDefault:"https://api.resend.com"`
	APIKey     string `env:"API_KEY"`
	From       string `env:"FROM"`
	EventName  string `env:"EVENT_NAME" envDefault:"our event"`
}

type Ticket struct {
	CodeLength        int    `env:"CODE_LENGTH" envDefault:"8"`
	CodeScheme        string `env:"CODE_SCHEME" envDefault:"random"` // random, sequential
	MaxManualQuantity int    `env:"MAX_MANUAL_QUANTITY" envDefault:"10"`
	DefaultCurrency   string `env:"DEFAULT_CURRENCY" envDefault:"EUR"`
}

type Redis struct {
	Addr                  string `env:"ADDR"`
	Password              string `env:"PASSWORD"`
	DB                    int    `env:"DB" envDefault:"0"`
	ScannerLimitPerMinute int    `env:"SCANNER_LIMIT_PER_MINUTE" envDefault:"240"`
}

type S3 struct {
	Endpoint  string `env:"ENDPOINT"`
	AccessKey string `env:"ACCESS_KEY"`
	SecretKey string `env:"SECRET_KEY"`
	Bucket    string `env:"BUCKET"`
	UseSSL    bool   `env:"USE_SSL" envDefault:"true"`
}

// Assets locates the poster attached to ticket emails. ObjectKey wins over
// PosterPath when S3 is configured.
type Assets struct {
	PosterPath      string `env:"POSTER_PATH"`
	PosterObjectKey string `env:"POSTER_OBJECT_KEY"`
}
