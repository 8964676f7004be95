package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds every knob the interview service reads at startup.
type Config struct {
	Port        string   `yaml:"port"`
	LogLevel    string   `yaml:"log_level"`
	FrontendURL string   `yaml:"frontend_url"`
	CORSOrigins []string `yaml:"cors_origins"`

	Database Database `yaml:"database"`
	Redis    Redis    `yaml:"redis"`
	Auth     Auth     `yaml:"auth"`
	WebRTC   WebRTC   `yaml:"webrtc"`
	SMTP     SMTP     `yaml:"smtp"`
	Rooms    Rooms    `yaml:"rooms"`
	Events   Events   `yaml:"events"`
	Reminder Reminder `yaml:"reminder"`

	UserServiceURL string `yaml:"user_service_url"`
}

type Database struct {
	URL      string `yaml:"url"`
	Host     string `yaml:"host"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	Port     string `yaml:"port"`
	SSLMode  string `yaml:"sslmode"`
}

// DSN returns the explicit URL when set, otherwise a key/value DSN built from the parts.
func (d Database) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		d.Host, d.User, d.Password, d.Name, d.Port, d.SSLMode)
}

// Redis is optional; an empty Addr disables pub/sub fan-out.
type Redis struct {
	Addr string `yaml:"addr"`
}

type Auth struct {
	JWTSecret string `yaml:"jwt_secret"`
}

type WebRTC struct {
	STUNServers  []string `yaml:"stun_servers"`
	TURNURL      string   `yaml:"turn_url"`
	TURNUsername string   `yaml:"turn_username"`
	TURNPassword string   `yaml:"turn_password"`
}

type SMTP struct {
	Host string `yaml:"host"`
	Port string `yaml:"port"`
	User string `yaml:"user"`
	Pass string `yaml:"pass"`
	From string `yaml:"from"`
}

// Enabled reports whether outbound mail can actually be sent.
func (s SMTP) Enabled() bool {
	return s.Host != "" && s.User != "" && s.Pass != ""
}

type Rooms struct {
	// MaxParticipants caps sessions per room; 0 means unlimited.
	MaxParticipants     int  `yaml:"max_participants"`
	Shards              int  `yaml:"shards"`
	SendBufferSize      int  `yaml:"send_buffer_size"`
	AllowAdminObservers bool `yaml:"allow_admin_observers"`
}

type Events struct {
	BufferSize int `yaml:"buffer_size"`
}

type Reminder struct {
	Enabled  bool          `yaml:"enabled"`
	Schedule string        `yaml:"schedule"`
	LeadTime time.Duration `yaml:"lead_time"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Port:        "8080",
		LogLevel:    "info",
		FrontendURL: "http://localhost:5173",
		CORSOrigins: []string{"http://localhost:5173"},
		Database: Database{
			Host:     "localhost",
			User:     "postgres",
			Password: "postgres",
			Name:     "postgres",
			Port:     "5432",
			SSLMode:  "disable",
		},
		Auth: Auth{JWTSecret: "dev"},
		WebRTC: WebRTC{
			STUNServers: []string{
				"stun:stun.l.google.com:19302",
				"stun:stun1.l.google.com:19302",
			},
		},
		SMTP: SMTP{Port: "587"},
		Rooms: Rooms{
			Shards:              16,
			SendBufferSize:      128,
			AllowAdminObservers: true,
		},
		Events: Events{BufferSize: 256},
		Reminder: Reminder{
			Enabled:  true,
			Schedule: "*/5 * * * *",
			LeadTime: 30 * time.Minute,
		},
	}
}

// LoadConfig layers defaults, an optional .env file, an optional YAML file named by
// CONFIG_FILE and finally environment variables.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}
	applyEnv(cfg)

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.Port = getEnvOrDefault("PORT", cfg.Port)
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", cfg.LogLevel)
	cfg.FrontendURL = getEnvOrDefault("FRONTEND_URL", cfg.FrontendURL)
	cfg.CORSOrigins = getEnvList("CORS_ORIGINS", cfg.CORSOrigins)

	cfg.Database.URL = getEnvOrDefault("DATABASE_URL", cfg.Database.URL)
	cfg.Database.Host = getEnvOrDefault("POSTGRES_HOST", cfg.Database.Host)
	cfg.Database.User = getEnvOrDefault("POSTGRES_USER", cfg.Database.User)
	cfg.Database.Password = getEnvOrDefault("POSTGRES_PASSWORD", cfg.Database.Password)
	cfg.Database.Name = getEnvOrDefault("POSTGRES_DB", cfg.Database.Name)
	cfg.Database.Port = getEnvOrDefault("POSTGRES_PORT", cfg.Database.Port)
	cfg.Database.SSLMode = getEnvOrDefault("POSTGRES_SSLMODE", cfg.Database.SSLMode)

	cfg.Redis.Addr = getEnvOrDefault("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Auth.JWTSecret = getEnvOrDefault("JWT_SECRET", cfg.Auth.JWTSecret)

	cfg.WebRTC.STUNServers = getEnvList("STUN_SERVERS", cfg.WebRTC.STUNServers)
	cfg.WebRTC.TURNURL = getEnvOrDefault("TURN_URL", cfg.WebRTC.TURNURL)
	cfg.WebRTC.TURNUsername = getEnvOrDefault("TURN_USERNAME", cfg.WebRTC.TURNUsername)
	cfg.WebRTC.TURNPassword = getEnvOrDefault("TURN_PASSWORD", cfg.WebRTC.TURNPassword)

	cfg.SMTP.Host = getEnvOrDefault("SMTP_HOST", cfg.SMTP.Host)
	cfg.SMTP.Port = getEnvOrDefault("SMTP_PORT", cfg.SMTP.Port)
	cfg.SMTP.User = getEnvOrDefault("SMTP_USER", cfg.SMTP.User)
	cfg.SMTP.Pass = getEnvOrDefault("SMTP_PASS", cfg.SMTP.Pass)
	cfg.SMTP.From = getEnvOrDefault("SMTP_FROM", cfg.SMTP.From)
	if cfg.SMTP.From == "" {
		cfg.SMTP.From = cfg.SMTP.User
	}

	cfg.UserServiceURL = getEnvOrDefault("USER_SERVICE_URL", cfg.UserServiceURL)

	cfg.Rooms.MaxParticipants = getEnvInt("ROOM_MAX_PARTICIPANTS", cfg.Rooms.MaxParticipants)
	cfg.Rooms.Shards = getEnvInt("ROOM_SHARDS", cfg.Rooms.Shards)
	cfg.Rooms.SendBufferSize = getEnvInt("SEND_BUFFER_SIZE", cfg.Rooms.SendBufferSize)
	cfg.Rooms.AllowAdminObservers = getEnvBool("ALLOW_ADMIN_OBSERVERS", cfg.Rooms.AllowAdminObservers)

	cfg.Events.BufferSize = getEnvInt("EVENT_BUFFER_SIZE", cfg.Events.BufferSize)

	cfg.Reminder.Enabled = getEnvBool("REMINDER_ENABLED", cfg.Reminder.Enabled)
	cfg.Reminder.Schedule = getEnvOrDefault("REMINDER_SCHEDULE", cfg.Reminder.Schedule)
	cfg.Reminder.LeadTime = getEnvDuration("REMINDER_LEAD_TIME", cfg.Reminder.LeadTime)
}

func validateConfig(cfg *Config) error {
	if cfg.Port == "" {
		return errors.New("PORT must not be empty")
	}
	if cfg.Auth.JWTSecret == "" {
		return errors.New("JWT_SECRET must not be empty")
	}
	if cfg.Rooms.MaxParticipants < 0 {
		return fmt.Errorf("ROOM_MAX_PARTICIPANTS must be >= 0, got %d", cfg.Rooms.MaxParticipants)
	}
	if cfg.Rooms.Shards <= 0 {
		return fmt.Errorf("ROOM_SHARDS must be positive, got %d", cfg.Rooms.Shards)
	}
	if cfg.Rooms.SendBufferSize <= 0 {
		return fmt.Errorf("SEND_BUFFER_SIZE must be positive, got %d", cfg.Rooms.SendBufferSize)
	}
	if cfg.Events.BufferSize <= 0 {
		return fmt.Errorf("EVENT_BUFFER_SIZE must be positive, got %d", cfg.Events.BufferSize)
	}
	if cfg.Reminder.Enabled {
		if cfg.Reminder.Schedule == "" {
			return errors.New("REMINDER_SCHEDULE is required when reminders are enabled")
		}
		if cfg.Reminder.LeadTime <= 0 {
			return errors.New("REMINDER_LEAD_TIME must be positive")
		}
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

// getEnvList splits a comma separated variable, dropping blanks.
func getEnvList(key string, defaultVal []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}
