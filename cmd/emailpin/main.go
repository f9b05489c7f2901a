// Package main runs the email PIN service: issuing short-lived PIN codes
// over email and confirming email-of-record changes against them.
//
// By default it runs fully in memory with a seeded demo account, which is
// useful for development and for exercising the API without a database.
// Set PERSISTENCE_TYPE to postgres, redis or file for durable PIN records.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/arguslocks/emailpin/pkg/emailchange"
	emailchangeapi "github.com/arguslocks/emailpin/pkg/emailchange/api"
	"github.com/arguslocks/emailpin/pkg/notice"
	"github.com/arguslocks/emailpin/pkg/notification"
	"github.com/arguslocks/emailpin/pkg/pin"
	"github.com/arguslocks/emailpin/pkg/reauth"
)

type ServerConfig struct {
	Port int `env:"PORT" env-default:"4000"`
}

type PersistenceConfig struct {
	Type    string `env:"PERSISTENCE_TYPE" env-default:"memory"`
	DataDir string `env:"DATA_DIR" env-default:"./data"`
}

type PgConfig struct {
	Host     string `env:"PIN_PG_HOST" env-default:"localhost"`
	Port     uint16 `env:"PIN_PG_PORT" env-default:"5432"`
	Database string `env:"PIN_PG_DATABASE" env-default:"pin_db"`
	User     string `env:"PIN_PG_USER" env-default:"pin"`
	Password string `env:"PIN_PG_PASSWORD" env-default:"pwd"`
}

func (c PgConfig) toDatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s", c.User, c.Password, c.Host, c.Port, c.Database)
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR" env-default:"localhost:6379"`
	Password string `env:"REDIS_PASSWORD" env-default:""`
	DB       int    `env:"REDIS_DB" env-default:"0"`
}

type SmtpConfig struct {
	Host     string `env:"SMTP_HOST" env-default:""`
	Port     int    `env:"SMTP_PORT" env-default:"587"`
	TLS      bool   `env:"SMTP_TLS" env-default:"true"`
	Username string `env:"SMTP_USERNAME" env-default:""`
	Password string `env:"SMTP_PASSWORD" env-default:""`
	From     string `env:"SMTP_FROM" env-default:"no-reply@example.com"`
}

type JwtConfig struct {
	JwtSecret string `env:"JWT_SECRET" env-default:"very-secure-jwt-secret"`
}

type PinConfig struct {
	TTL         time.Duration `env:"PIN_TTL" env-default:"60s"`
	MaxAttempts int           `env:"PIN_MAX_ATTEMPTS" env-default:"10"`
	Debounce    time.Duration `env:"PIN_RESEND_DEBOUNCE" env-default:"3s"`
}

type Config struct {
	ServerConfig      ServerConfig
	PersistenceConfig PersistenceConfig
	PgConfig          PgConfig
	RedisConfig       RedisConfig
	SmtpConfig        SmtpConfig
	JwtConfig         JwtConfig
	PinConfig         PinConfig
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	config := Config{}
	cleanenv.ReadEnv(&config)

	store, err := newPinStore(config)
	if err != nil {
		slog.Error("Failed creating pin store", "type", config.PersistenceConfig.Type, "error", err)
		os.Exit(-1)
	}

	sender, err := newEmailSender(config)
	if err != nil {
		slog.Error("Failed creating email sender", "error", err)
		os.Exit(-1)
	}

	credentials := reauth.NewInMemoryCredentialStore()
	reauthProvider := reauth.NewPasswordReauthProvider(credentials)

	pinService := pin.NewPinService(store, sender, reauthProvider,
		pin.WithTTL(config.PinConfig.TTL),
		pin.WithMaxAttempts(config.PinConfig.MaxAttempts),
		pin.WithResendPolicy(pin.NewDebounceResendPolicy(config.PinConfig.Debounce)),
	)

	users, err := newUserRepository(config)
	if err != nil {
		slog.Error("Failed creating user repository", "error", err)
		os.Exit(-1)
	}

	emailChangeService := emailchange.NewEmailChangeService(pinService, users)

	if seeder, ok := users.(*emailchange.InMemoryUserRepository); ok {
		seedDemoAccount(seeder, credentials, config.JwtConfig.JwtSecret)
	}

	jwtAuth := jwtauth.New("HS256", []byte(config.JwtConfig.JwtSecret), nil)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	handler := emailchangeapi.NewHandler(emailChangeService)
	r.Group(func(r chi.Router) {
		r.Use(jwtauth.Verifier(jwtAuth))
		r.Use(jwtauth.Authenticator(jwtAuth))
		r.Mount("/api/email", handler.Routes())
	})

	addr := fmt.Sprintf(":%d", config.ServerConfig.Port)
	slog.Info("Email PIN service ready",
		"addr", addr,
		"persistence", config.PersistenceConfig.Type,
		"pin_ttl", config.PinConfig.TTL,
		"max_attempts", config.PinConfig.MaxAttempts)

	if err := http.ListenAndServe(addr, r); err != nil {
		slog.Error("Server stopped", "error", err)
		os.Exit(-1)
	}
}

func newPinStore(config Config) (pin.PinStore, error) {
	storeConfig := pin.StoreConfig{
		DataDir: config.PersistenceConfig.DataDir,
	}

	switch config.PersistenceConfig.Type {
	case "postgres", "postgresql":
		pool, err := pgxpool.New(context.Background(), config.PgConfig.toDatabaseURL())
		if err != nil {
			return nil, err
		}
		storeConfig.Pool = pool
	case "redis":
		storeConfig.RedisClient = redis.NewClient(&redis.Options{
			Addr:     config.RedisConfig.Addr,
			Password: config.RedisConfig.Password,
			DB:       config.RedisConfig.DB,
		})
	}

	return pin.NewPinStore(config.PersistenceConfig.Type, storeConfig)
}

func newUserRepository(config Config) (emailchange.UserRepository, error) {
	if config.PersistenceConfig.Type == "file" {
		return emailchange.NewFileUserRepository(config.PersistenceConfig.DataDir)
	}
	return emailchange.NewInMemoryUserRepository(), nil
}

// newEmailSender wires PIN delivery over SMTP. Without an SMTP host
// configured the PIN is logged instead, which is enough for development.
func newEmailSender(config Config) (pin.EmailSender, error) {
	if config.SmtpConfig.Host == "" {
		slog.Warn("SMTP not configured, PIN codes will be logged instead of emailed")
		return logSender{}, nil
	}

	manager, err := notice.NewNotificationManager(notification.SMTPConfig{
		Host:     config.SmtpConfig.Host,
		Port:     config.SmtpConfig.Port,
		TLS:      config.SmtpConfig.TLS,
		Username: config.SmtpConfig.Username,
		Password: config.SmtpConfig.Password,
		From:     config.SmtpConfig.From,
	})
	if err != nil {
		return nil, err
	}

	return notice.NewPinEmailSender(manager, config.PinConfig.TTL), nil
}

type logSender struct{}

func (logSender) Send(ctx context.Context, toEmail, plaintextPin string) error {
	slog.Info("PIN issued", "to", toEmail, "pin", plaintextPin)
	return nil
}

func seedDemoAccount(users *emailchange.InMemoryUserRepository, credentials *reauth.InMemoryCredentialStore, jwtSecret string) {
	userID := uuid.New()
	users.SeedUser(emailchange.UserAccount{
		ID:            userID,
		Email:         "demo@example.com",
		EmailVerified: true,
	})

	hash, err := reauth.BcryptHasher{}.Hash("password123")
	if err != nil {
		slog.Error("Failed hashing demo password", "error", err)
		os.Exit(-1)
	}
	credentials.SetPasswordHash(userID, hash)

	// A ready-to-use bearer token so the API can be exercised with curl
	// right away.
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":     userID.String(),
		"user_id": userID.String(),
		"exp":     time.Now().Add(24 * time.Hour).Unix(),
	})
	tokenString, err := token.SignedString([]byte(jwtSecret))
	if err != nil {
		slog.Error("Failed signing demo token", "error", err)
		os.Exit(-1)
	}

	slog.Info("Seeded demo account")
	slog.Info("  User ID:  " + userID.String())
	slog.Info("  Email:    demo@example.com")
	slog.Info("  Password: password123")
	slog.Info("  Token:    " + tokenString)
}
