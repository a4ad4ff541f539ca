package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config regroupe toute la configuration du serveur, lue depuis l'environnement
type Config struct {
	Env  string
	Port string

	JWTSecret     string
	InternalToken string

	ScyllaHosts      []string
	ScyllaUsername   string
	ScyllaPassword   string
	ScyllaLearningKS string
	ScyllaBillingKS  string
	ScyllaSSLEnabled bool
	ScyllaSSLCAPath  string
	ScyllaNumConns   int
	StorageTimeout   time.Duration

	RedisHost      string
	RedisPassword  string
	CouponCacheTTL time.Duration

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	MailFrom     string

	StripeSecretKey  string
	Currency         string
	ProcessorTimeout time.Duration

	CheckoutMaxRequests int
	CheckoutWindow      time.Duration
	IdempotencyTTL      time.Duration

	AllowedOrigins []string

	LogLevel string
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetTypeByDefaultValue(true)

	v.SetDefault("APP_ENV", "development")
	v.SetDefault("PORT", "8080")
	v.SetDefault("SCYLLA_HOSTS", "127.0.0.1")
	v.SetDefault("SCYLLA_KS_LEARNING_KEYSPACE", "ks_learning")
	v.SetDefault("SCYLLA_KS_BILLING_KEYSPACE", "ks_billing")
	v.SetDefault("SCYLLA_NUM_CONNS", 20)
	v.SetDefault("STORAGE_TIMEOUT", 5*time.Second)
	v.SetDefault("REDIS_HOST", "127.0.0.1:6379")
	v.SetDefault("COUPON_CACHE_TTL", 2*time.Minute)
	v.SetDefault("MINIO_BUCKET", "tutora-submissions")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("MAIL_FROM", "noreply@tutora.local")
	v.SetDefault("CURRENCY", "eur")
	v.SetDefault("PROCESSOR_TIMEOUT", 10*time.Second)
	v.SetDefault("CHECKOUT_MAX_REQUESTS", 10)
	v.SetDefault("CHECKOUT_WINDOW", time.Minute)
	v.SetDefault("IDEMPOTENCY_TTL", 24*time.Hour)
	v.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")
	v.SetDefault("LOG_LEVEL", "info")

	v.AutomaticEnv()
	return v
}

// Load charge le fichier .env s'il existe puis lit la configuration
func Load() Config {
	if err := godotenv.Load(".env"); err != nil {
		log.Println("⚠️  Aucun fichier .env trouvé — on continue avec les variables d'environnement du système")
	}
	return fromViper(newViper())
}

func fromViper(v *viper.Viper) Config {
	return Config{
		Env:  strings.ToLower(v.GetString("APP_ENV")),
		Port: v.GetString("PORT"),

		JWTSecret:     v.GetString("JWT_SECRET"),
		InternalToken: v.GetString("INTERNAL_TOKEN"),

		ScyllaHosts:      splitList(v.GetString("SCYLLA_HOSTS")),
		ScyllaUsername:   v.GetString("SCYLLA_USERNAME"),
		ScyllaPassword:   v.GetString("SCYLLA_PASSWORD"),
		ScyllaLearningKS: v.GetString("SCYLLA_KS_LEARNING_KEYSPACE"),
		ScyllaBillingKS:  v.GetString("SCYLLA_KS_BILLING_KEYSPACE"),
		ScyllaSSLEnabled: v.GetBool("SCYLLA_SSL_ENABLED"),
		ScyllaSSLCAPath:  v.GetString("SCYLLA_SSL_CA_PATH"),
		ScyllaNumConns:   v.GetInt("SCYLLA_NUM_CONNS"),
		StorageTimeout:   v.GetDuration("STORAGE_TIMEOUT"),

		RedisHost:      v.GetString("REDIS_HOST"),
		RedisPassword:  v.GetString("REDIS_PASSWORD"),
		CouponCacheTTL: v.GetDuration("COUPON_CACHE_TTL"),

		MinioEndpoint:  v.GetString("MINIO_ENDPOINT"),
		MinioAccessKey: v.GetString("MINIO_ACCESS_KEY"),
		MinioSecretKey: v.GetString("MINIO_SECRET_KEY"),
		MinioBucket:    v.GetString("MINIO_BUCKET"),
		MinioUseSSL:    v.GetBool("MINIO_USE_SSL"),

		SMTPHost:     v.GetString("SMTP_HOST"),
		SMTPPort:     v.GetInt("SMTP_PORT"),
		SMTPUsername: v.GetString("SMTP_USERNAME"),
		SMTPPassword: v.GetString("SMTP_PASSWORD"),
		MailFrom:     v.GetString("MAIL_FROM"),

		StripeSecretKey:  v.GetString("STRIPE_SECRET_KEY"),
		Currency:         strings.ToLower(v.GetString("CURRENCY")),
		ProcessorTimeout: v.GetDuration("PROCESSOR_TIMEOUT"),

		CheckoutMaxRequests: v.GetInt("CHECKOUT_MAX_REQUESTS"),
		CheckoutWindow:      v.GetDuration("CHECKOUT_WINDOW"),
		IdempotencyTTL:      v.GetDuration("IDEMPOTENCY_TTL"),

		AllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),

		LogLevel: v.GetString("LOG_LEVEL"),
	}
}

func splitList(raw string) []string {
	out := []string{}
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// IsProduction indique si le serveur tourne en production
func (c Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}
