package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const DEFAULT_CONFIG_PATH string = "configs/gofest.toml"
const DEFAULT_SECRET_KEY string = "your-secret-key-change-this-in-production"

type Server struct {
	Port     int    `toml:"port"`
	LogLevel string `toml:"log_level"`
}

type Database struct {
	URL    string `toml:"mongodb_url"`
	Name   string `toml:"database_name"`
	Memory bool   `toml:"memory"`
}

type Auth struct {
	SecretKey string `toml:"secret_key"`
}

type Email struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	From     string `toml:"from"`
}

// Enabled reports whether enough is configured to actually send mail.
func (e Email) Enabled() bool {
	return e.Host != "" && e.User != "" && e.Password != ""
}

func (e Email) Sender() string {
	if e.From != "" {
		return e.From
	}
	return e.User
}

type Location struct {
	NominatimURL string `toml:"nominatim_url"`
	RedisURL     string `toml:"redis_url"`
}

type Config struct {
	Server   Server
	Database Database
	Auth     Auth
	Email    Email
	Location Location
}

func Default() Config {
	return Config{
		Server:   Server{Port: 8000, LogLevel: "info"},
		Database: Database{URL: "mongodb://localhost:27017", Name: "gofest"},
		Auth:     Auth{SecretKey: DEFAULT_SECRET_KEY},
		Email:    Email{Host: "smtp.gmail.com", Port: 587},
		Location: Location{NominatimURL: "https://nominatim.openstreetmap.org"},
	}
}

// New builds the configuration from defaults, the optional toml file at path and
// the environment (a .env file in the working directory is loaded first).
func New(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("cannot load .env: %w", err)
	}

	cfg := Default()
	if path == "" {
		path = DEFAULT_CONFIG_PATH
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("cannot decode %v: %w", path, err)
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	strs := []struct {
		key string
		dst *string
	}{
		{"MONGODB_URL", &cfg.Database.URL},
		{"DATABASE_NAME", &cfg.Database.Name},
		{"SECRET_KEY", &cfg.Auth.SecretKey},
		{"EMAIL_HOST", &cfg.Email.Host},
		{"EMAIL_USER", &cfg.Email.User},
		{"EMAIL_PASSWORD", &cfg.Email.Password},
		{"EMAIL_FROM", &cfg.Email.From},
		{"NOMINATIM_URL", &cfg.Location.NominatimURL},
		{"REDIS_URL", &cfg.Location.RedisURL},
		{"LOG_LEVEL", &cfg.Server.LogLevel},
	}
	for _, s := range strs {
		if val, err := GetSecret(s.key); err == nil && val != "" {
			*s.dst = val
		}
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"PORT", &cfg.Server.Port},
		{"EMAIL_PORT", &cfg.Email.Port},
	}
	for _, i := range ints {
		val, err := GetSecret(i.key)
		if err != nil || val == "" {
			continue
		}
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("env variable %v is not a number: %w", i.key, err)
		}
		*i.dst = n
	}
	return nil
}

func GetSecret(key string) (string, error) {
	val, exist := os.LookupEnv(key)
	if exist {
		return val, nil
	}
	return "", fmt.Errorf("no env variable with key %v", key)
}
