package core

import (
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

type (
	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		Name          string
		DisableTLS    bool
		MaxOpenConns  int
	}

	ServerConfig struct {
		Host                      string
		DebugHost                 string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
		LoginRatePerMin           int
	}

	RedisConfig struct {
		Addr string
	}

	LogConfig struct {
		File       string
		MaxSizeMB  int
		MaxBackups int
		MaxAgeDays int
	}

	AttendanceConfig struct {
		AlertThreshold float64 // percent
	}

	FeesConfig struct {
		ReminderWindowDays int
		ReminderSchedule   string // cron spec
	}

	Config struct {
		Env             string // DEV (local; default), TEST, QA, PROD
		Build           string
		Debug           bool
		TestMode        bool
		AppName         string
		SecretKey       string
		Timezone        string
		FrontendBaseURL string
		SendgridApiKey  string
		RollbarToken    string

		defaultFromEmail string

		Database   DatabaseConfig
		Server     ServerConfig
		Redis      RedisConfig
		Log        LogConfig
		Attendance AttendanceConfig
		Fees       FeesConfig

		location *time.Location
	}
)

func (db DatabaseConfig) Address() string {
	return net.JoinHostPort(db.Host, db.Port)
}

// DefaultFromEmail parses the configured sender, falling back to a bare address.
func (c *Config) DefaultFromEmail() mail.Address {
	if addr, err := mail.ParseAddress(c.defaultFromEmail); err == nil {
		return *addr
	}
	return mail.Address{Name: c.AppName, Address: c.defaultFromEmail}
}

// Location is the campus timezone. Calendar days ("today") are computed in it.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.UTC
	}
	return c.location
}

func (c *Config) Validate() error {
	return vala.BeginValidation().Validate(
		vala.StringNotEmpty(c.SecretKey, "secretKey"),
		vala.StringNotEmpty(c.Database.Name, "database.name"),
		vala.StringNotEmpty(c.AppName, "appName"),
	).Check()
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("debug", true)
	v.SetDefault("build", "develop")
	v.SetDefault("appName", "ShankerDev Campus")
	v.SetDefault("secretKey", "l8s#0d-vq@p2$w!m^k7z3ne(x&r6u)ya+5jc9hgf1b4t=io")
	v.SetDefault("timezone", "UTC")
	v.SetDefault("defaultFromEmail", "ShankerDev Campus <noreply@localhost>")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "campus")
	v.SetDefault("database.password", "campus")
	v.SetDefault("database.name", "campus")
	v.SetDefault("database.disableTLS", true)
	v.SetDefault("database.maxOpenConns", 20)

	v.SetDefault("server.host", ":8000")
	v.SetDefault("server.debugHost", ":4000")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("server.jwtRefreshExpirationDelta", 4*time.Hour)
	v.SetDefault("server.loginRatePerMin", 10)

	v.SetDefault("log.maxSizeMB", 100)
	v.SetDefault("log.maxBackups", 3)
	v.SetDefault("log.maxAgeDays", 28)

	v.SetDefault("attendance.alertThreshold", 80.0)

	v.SetDefault("fees.reminderWindowDays", 3)
	v.SetDefault("fees.reminderSchedule", "@daily")
}

// NewConfig loads the configuration of the current ENV from the environment,
// optionally seeded by config/.env.<env> in the working directory.
func NewConfig() (*Config, error) {
	v := viper.New()
	v.SetTypeByDefaultValue(true)
	setDefaults(v)

	env := strings.ToUpper(os.Getenv("ENV"))
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	case "PROD":
		v.SetDefault("debug", false)
	}

	// load .env if it exists (ignore if it does not)
	wd, err := os.Getwd()
	if err != nil {
		return nil, errors.Wrap(err, "getting working directory")
	}
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			return nil, errors.Wrapf(err, "loading %s", dotEnvPath)
		}
	} else if !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "stat %s", dotEnvPath)
	}

	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	conf := &Config{
		Env:              env,
		Build:            v.GetString("build"),
		Debug:            v.GetBool("debug"),
		TestMode:         v.GetBool("testMode"),
		AppName:          v.GetString("appName"),
		SecretKey:        v.GetString("secretKey"),
		Timezone:         v.GetString("timezone"),
		FrontendBaseURL:  v.GetString("frontendBaseURL"),
		SendgridApiKey:   v.GetString("sendgridApiKey"),
		RollbarToken:     v.GetString("rollbarToken"),
		defaultFromEmail: v.GetString("defaultFromEmail"),
		Database: DatabaseConfig{
			Engine:        v.GetString("database.engine"),
			Host:          v.GetString("database.host"),
			Port:          v.GetString("database.port"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			Name:          v.GetString("database.name"),
			DisableTLS:    v.GetBool("database.disableTLS"),
			MaxOpenConns:  v.GetInt("database.maxOpenConns"),
		},
		Server: ServerConfig{
			Host:                      v.GetString("server.host"),
			DebugHost:                 v.GetString("server.debugHost"),
			ShutdownTimeout:           v.GetDuration("server.shutdownTimeout"),
			JWTExpirationDelta:        v.GetDuration("server.jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("server.jwtRefreshExpirationDelta"),
			LoginRatePerMin:           v.GetInt("server.loginRatePerMin"),
		},
		Redis: RedisConfig{Addr: v.GetString("redis.addr")},
		Log: LogConfig{
			File:       v.GetString("log.file"),
			MaxSizeMB:  v.GetInt("log.maxSizeMB"),
			MaxBackups: v.GetInt("log.maxBackups"),
			MaxAgeDays: v.GetInt("log.maxAgeDays"),
		},
		Attendance: AttendanceConfig{AlertThreshold: v.GetFloat64("attendance.alertThreshold")},
		Fees: FeesConfig{
			ReminderWindowDays: v.GetInt("fees.reminderWindowDays"),
			ReminderSchedule:   v.GetString("fees.reminderSchedule"),
		},
	}

	loc, err := time.LoadLocation(conf.Timezone)
	if err != nil {
		return nil, errors.Wrapf(err, "loading timezone %q", conf.Timezone)
	}
	conf.location = loc

	if err := conf.Validate(); err != nil {
		return nil, errors.Wrap(err, "validating config")
	}
	return conf, nil
}

// NewTestConfig returns the configuration used by tests: debug off, test mode on, UTC.
func NewTestConfig() *Config {
	v := viper.New()
	setDefaults(v)
	return &Config{
		Env:              "TEST",
		Build:            "test",
		TestMode:         true,
		AppName:          v.GetString("appName"),
		SecretKey:        "test-secret",
		Timezone:         "UTC",
		FrontendBaseURL:  v.GetString("frontendBaseURL"),
		defaultFromEmail: v.GetString("defaultFromEmail"),
		Database:         DatabaseConfig{Engine: "postgres", Name: "campus_test", DisableTLS: true},
		Server: ServerConfig{
			JWTExpirationDelta:        time.Hour,
			JWTRefreshExpirationDelta: 4 * time.Hour,
			LoginRatePerMin:           1000,
		},
		Attendance: AttendanceConfig{AlertThreshold: 80},
		Fees:       FeesConfig{ReminderWindowDays: 3, ReminderSchedule: "@daily"},
		location:   time.UTC,
	}
}
