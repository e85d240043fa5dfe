// Copyright (c) 2026 blairtcg
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package cloudlog

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnv names the variable holding an explicit config file path.
const ConfigPathEnv = "CONFIG_PATH"

// DefaultConfigPaths are searched, in order, when ConfigPathEnv is unset.
var DefaultConfigPaths = []string{"cloudlog.yaml"}

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid cloudlog configuration")

// Transport names accepted by Config.Transport.
const (
	TransportConsole    = "console"
	TransportCloudWatch = "cloudwatch"
)

// Config is the process-wide logging configuration.
//
// Level is deliberately not validated here: an unknown threshold is reported
// by the first log call that meets it.
type Config struct {
	AppName          string        `koanf:"app_name" validate:"required"`
	Environment      string        `koanf:"environment" validate:"required"`
	Level            string        `koanf:"level"`
	Silent           bool          `koanf:"silent"`
	EnforceEnums     bool          `koanf:"enforce_enums"`
	EnumViolation    string        `koanf:"enum_violation" validate:"oneof=process logging"`
	NotOnAWS         bool          `koanf:"not_on_aws"`
	MetadataEndpoint string        `koanf:"metadata_endpoint" validate:"omitempty,url"`
	MetadataTimeout  time.Duration `koanf:"metadata_timeout" validate:"gt=0,lte=5s"`
	Transport        string        `koanf:"transport" validate:"oneof=console cloudwatch"`
	Async            bool          `koanf:"async"`
	AWS              AWSConfig     `koanf:"aws"`
}

// AWSConfig is handed to the CloudWatch transport as is.
type AWSConfig struct {
	Region          string `koanf:"region"`
	AccessKeyID     string `koanf:"access_key_id"`
	SecretAccessKey string `koanf:"secret_access_key"`
	SessionToken    string `koanf:"session_token"`
	Endpoint        string `koanf:"endpoint" validate:"omitempty,url"`
}

// DefaultConfig returns the configuration used when no source overrides it.
func DefaultConfig() *Config {
	return &Config{
		AppName:         "app",
		Environment:     "development",
		Level:           string(InfoLevel),
		EnumViolation:   PolicyCrashProcess.String(),
		MetadataTimeout: MaxMetadataTimeout,
		Transport:       TransportConsole,
	}
}

// LoadConfig layers defaults, an optional YAML file and the environment, in
// that order of increasing priority, and validates the result.
func LoadConfig() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(DefaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	cfg.Level = strings.ToLower(strings.TrimSpace(cfg.Level))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints. The CloudWatch transport also needs a region.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.Transport == TransportCloudWatch && c.AWS.Region == "" {
		return fmt.Errorf("%w: aws.region is required for the %s transport", ErrInvalidConfig, TransportCloudWatch)
	}
	return nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnv); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

var _envMappings = map[string]string{
	"app_name":              "app_name",
	"environment":           "environment",
	"log_level":             "level",
	"log_silent":            "silent",
	"enforce_enums":         "enforce_enums",
	"enum_violation":        "enum_violation",
	"not_on_aws":            "not_on_aws",
	"metadata_endpoint":     "metadata_endpoint",
	"metadata_timeout":      "metadata_timeout",
	"log_transport":         "transport",
	"log_async":             "async",
	"aws_region":            "aws.region",
	"aws_access_key_id":     "aws.access_key_id",
	"aws_secret_access_key": "aws.secret_access_key",
	"aws_session_token":     "aws.session_token",
	"cloudwatch_endpoint":   "aws.endpoint",
}

// envTransformFunc maps a variable name to its config path. Unmapped
// variables return "" and are skipped.
func envTransformFunc(key string) string {
	return _envMappings[strings.ToLower(key)]
}
