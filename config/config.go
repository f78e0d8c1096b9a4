// Package config contains code to set the default values and read
// config files to be used throughout the whole application
package config

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/spf13/pflag"
	v "github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	sweepCodes     = pflag.Bool("sweep-codes", false, "Deletes all expired verification codes on startup")
	validLogLevels = []string{"debug", "info", "warn", "error", "fatal"}
	validRoles     = []string{"user", "admin"}
)

// Setup prepares everything config-related so that the app can
// start working. Function will return an error if something
// is critically wrong and the application can't run because of
// that.
func Setup() error {
	pflag.Parse()
	v.BindPFlags(pflag.CommandLine)

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")

	v.AutomaticEnv()

	//
	// ENVS
	//
	v.BindEnv("app.log_level", "app_log_level")

	v.BindEnv("host.port", "host_port")
	v.BindEnv("host.cors_origins", "host_cors_origins")

	v.BindEnv("security.jwt_secret", "security_jwt_secret")

	v.BindEnv("auth.otp_ttl", "auth_otp_ttl")
	v.BindEnv("auth.resend_cooldown", "auth_resend_cooldown")
	v.BindEnv("auth.session_ttl", "auth_session_ttl")
	v.BindEnv("auth.sweep_interval", "auth_sweep_interval")

	v.BindEnv("storage.sqlite_path", "storage_sqlite_path")
	v.BindEnv("storage.postgres_dsn", "storage_postgres_dsn")

	v.BindEnv("mail.host", "mail_host")
	v.BindEnv("mail.port", "mail_port")
	v.BindEnv("mail.sender", "mail_sender")
	v.BindEnv("mail.password", "mail_password")

	v.BindEnv("gemini.api_key", "gemini_api_key")

	v.BindEnv("chat.model", "chat_model")
	v.BindEnv("chat.cooldown", "chat_cooldown")
	v.BindEnv("chat.request_timeout", "chat_request_timeout")
	v.BindEnv("chat.max_resources", "chat_max_resources")
	v.BindEnv("chat.prompt_template", "chat_prompt_template")

	v.BindEnv("resources.base_url", "resources_base_url")
	v.BindEnv("resources.bucket", "resources_bucket")
	v.BindEnv("resources.account_id", "resources_account_id")
	v.BindEnv("resources.access_key_id", "resources_access_key_id")
	v.BindEnv("resources.secret_access_key", "resources_secret_access_key")

	//
	// Defaults
	//
	v.SetDefault("app.log_level", "info")

	v.SetDefault("host.port", 8080)
	v.SetDefault("host.cors_origins", []string{"http://localhost:5173"})

	v.SetDefault("auth.otp_ttl", 10*time.Minute)
	v.SetDefault("auth.resend_cooldown", time.Minute)
	v.SetDefault("auth.session_ttl", 24*time.Hour)
	v.SetDefault("auth.sweep_interval", time.Minute)

	v.SetDefault("storage.sqlite_path", "lab.db")

	v.SetDefault("mail.port", 587)

	v.SetDefault("chat.model", "gemini-2.0-flash")
	v.SetDefault("chat.cooldown", 2*time.Second)
	v.SetDefault("chat.request_timeout", 30*time.Second)
	v.SetDefault("chat.max_resources", 5)
	v.SetDefault("chat.prompt_template", defaultPromptTemplate)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(v.ConfigFileNotFoundError); ok {
			return errors.New("config.toml file is missing")
		}

		return fmt.Errorf("failed to read config file, %w", err)
	}

	if !slices.Contains(validLogLevels, v.GetString("app.log_level")) {
		return errors.New("invalid log level provided")
	}

	if v.GetInt("host.port") <= 0 {
		return errors.New("invalid port provided")
	}

	if v.GetString("security.jwt_secret") == "" {
		return errors.New("security.jwt_secret is missing, sessions can't be signed without it")
	}

	if v.GetString("gemini.api_key") == "" {
		return errors.New("gemini.api_key is missing, the chat endpoint can't work without it")
	}

	if v.GetDuration("auth.otp_ttl") <= 0 {
		return errors.New("auth.otp_ttl must be bigger than 0")
	}

	if v.GetDuration("auth.session_ttl") <= 0 {
		return errors.New("auth.session_ttl must be bigger than 0")
	}

	if v.GetDuration("chat.cooldown") < 0 {
		return errors.New("chat.cooldown can't be negative")
	}

	if v.GetInt("chat.max_resources") <= 0 {
		return errors.New("chat.max_resources must be bigger than 0")
	}

	if v.GetString("mail.sender") == "" {
		zap.L().Warn("No mail.sender configured, verification codes will only be logged")
	} else if v.GetString("mail.host") == "" {
		return errors.New("mail.host can't be empty when a sender is configured")
	}

	if v.GetString("resources.bucket") != "" {
		if v.GetString("resources.account_id") == "" {
			return errors.New("resources.account_id can't be empty")
		}
		if v.GetString("resources.access_key_id") == "" {
			return errors.New("resources.access_key_id can't be empty")
		}
		if v.GetString("resources.secret_access_key") == "" {
			return errors.New("resources.secret_access_key can't be empty")
		}
		if v.GetString("resources.base_url") == "" {
			return errors.New("resources.base_url can't be empty when listing a bucket")
		}
	}

	return nil
}

// SweepOnStartup reports whether the --sweep-codes flag was passed
func SweepOnStartup() bool {
	return *sweepCodes
}

const defaultPromptTemplate = `You are a lab assistant for a university physics lab. ` +
	`Answer the student's question concisely. When relevant resources are listed below, ` +
	`reference them by their full URL so the student can open them.`
