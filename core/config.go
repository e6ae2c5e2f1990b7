package core

import (
	"fmt"
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	ServerConfig struct {
		Host            string
		Port            int
		ShutdownTimeout time.Duration
	}

	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          int
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	// SeederConfig tunes the write pacing of the outcome writer.
	SeederConfig struct {
		WriteDelay       time.Duration // pause between consecutive document writes
		LargeBatchSize   int           // outcome count past which LargeBatchDelay kicks in
		LargeBatchDelay  time.Duration // extra pause per write for large batches
		MaxWriteAttempts int           // retry cap for rate-limited writes
		RetryBaseDelay   time.Duration // first retry delay; doubles per attempt
		SeedDataDir      string        // bulk mode input directory
		ReportDir        string        // bulk mode JSON report directory
		ReportRecipient  string        // bulk report email; empty disables the mail
	}

	Config struct {
		Env      string // DEV (local; default), TEST, QA, PROD
		Debug    bool
		TestMode bool
		AppName  string
		Build    string
		WorkDir  string

		SecretKey        string
		DefaultFromEmail mail.Address
		SendgridAPIKey   string
		RollbarToken     string

		Server   ServerConfig
		Database DatabaseConfig
		Seeder   SeederConfig
	}
)

func (c ServerConfig) Address() string {
	return net.JoinHostPort(c.Host, fmt.Sprintf("%d", c.Port))
}

func (c DatabaseConfig) Address() string {
	return net.JoinHostPort(c.Host, fmt.Sprintf("%d", c.Port))
}

// CheckRequired reports every missing connection setting at once so a
// misconfigured deploy fails with a full checklist instead of one item per run.
func (c *Config) CheckRequired() error {
	var missing []string
	if c.Database.Host == "" {
		missing = append(missing, "DATABASE_HOST")
	}
	if c.Database.Name == "" {
		missing = append(missing, "DATABASE_NAME")
	}
	if c.Database.User == "" {
		missing = append(missing, "DATABASE_USER")
	}
	if c.Database.Password == "" {
		missing = append(missing, "DATABASE_PASSWORD")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required settings:\n  - %s", strings.Join(missing, "\n  - "))
	}
	return nil
}

func NewConfig() *Config {
	v := viper.New()
	v.SetTypeByDefaultValue(true)

	// defaults
	v.SetDefault("debug", true)
	v.SetDefault("appName", "Mtaala")
	v.SetDefault("build", "dev")
	v.SetDefault("secretKey", "f8z&2(h!x)#*c2(#yg4h^$cegm2emy-poq5-wer)enb$+57=dz")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.shutdownTimeout", 10*time.Second)
	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.port", 5432)
	v.SetDefault("seeder.writeDelay", 200*time.Millisecond)
	v.SetDefault("seeder.largeBatchSize", 30)
	v.SetDefault("seeder.largeBatchDelay", 100*time.Millisecond)
	v.SetDefault("seeder.maxWriteAttempts", 5)
	v.SetDefault("seeder.retryBaseDelay", time.Second)
	v.SetDefault("seeder.seedDataDir", "seeds")
	v.SetDefault("seeder.reportDir", "reports")

	env := os.Getenv("ENV") // DEV (local; default), TEST, QA, PROD
	if env == "" {
		env = "DEV"
	}
	wd := Getwd()

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return &Config{
		Env:              env,
		Debug:            v.GetBool("debug"),
		TestMode:         env == "TEST",
		AppName:          v.GetString("appName"),
		Build:            v.GetString("build"),
		WorkDir:          wd,
		SecretKey:        v.GetString("secretKey"),
		DefaultFromEmail: mail.Address{Name: v.GetString("appName"), Address: v.GetString("defaultFromEmail")},
		SendgridAPIKey:   v.GetString("sendgridApiKey"),
		RollbarToken:     v.GetString("rollbarToken"),
		Server: ServerConfig{
			Host:            v.GetString("server.host"),
			Port:            v.GetInt("server.port"),
			ShutdownTimeout: v.GetDuration("server.shutdownTimeout"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("database.engine"),
			Host:          v.GetString("database.host"),
			Port:          v.GetInt("database.port"),
			Name:          v.GetString("database.name"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			DisableTLS:    v.GetBool("database.disableTls"),
		},
		Seeder: SeederConfig{
			WriteDelay:       v.GetDuration("seeder.writeDelay"),
			LargeBatchSize:   v.GetInt("seeder.largeBatchSize"),
			LargeBatchDelay:  v.GetDuration("seeder.largeBatchDelay"),
			MaxWriteAttempts: v.GetInt("seeder.maxWriteAttempts"),
			RetryBaseDelay:   v.GetDuration("seeder.retryBaseDelay"),
			SeedDataDir:      v.GetString("seeder.seedDataDir"),
			ReportDir:        v.GetString("seeder.reportDir"),
			ReportRecipient:  v.GetString("seeder.reportRecipient"),
		},
	}
}

// Getwd tries to find the project root "mtaala".
// go-test changes the working directory to the test package being run during tests... this breaks our code...
// see: https://stackoverflow.com/questions/23847003/golang-tests-and-working-directory
// this is a temporary fix for now :(
func Getwd() string {
	root := "mtaala"
	wd, err := os.Getwd()
	if err != nil {
		log.Fatal(err)
	}
	currDir := wd
	for {
		if fi, err := os.Stat(currDir); err == nil {
			dirBase := filepath.Base(currDir)
			if dirBase == root && fi.IsDir() {
				return currDir
			}
		}
		newDir := filepath.Dir(currDir)
		if newDir == string(os.PathSeparator) || newDir == currDir {
			return wd // fall back to the caller's working directory
		}
		currDir = newDir
	}
}
