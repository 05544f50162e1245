package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// RegisterCustomValidators registers Palisade-specific validation rules.
// Must be called before validating Config.
func RegisterCustomValidators(v *validator.Validate) error {
	// access_output: validates "stdout", "file://<absolute-dir>", or
	// "sqlite://<absolute-path>"
	if err := v.RegisterValidation("access_output", validateAccessOutput); err != nil {
		return fmt.Errorf("failed to register access_output validator: %w", err)
	}
	return nil
}

// validateAccessOutput validates the access_log output field.
// Valid values: "stdout", "file://<absolute-dir>", or "sqlite://<absolute-path>"
func validateAccessOutput(fl validator.FieldLevel) bool {
	output := fl.Field().String()

	if output == "stdout" {
		return true
	}

	for _, scheme := range []string{"file://", "sqlite://"} {
		if strings.HasPrefix(output, scheme) {
			path := strings.TrimPrefix(output, scheme)
			return path != "" && filepath.IsAbs(path)
		}
	}

	return false
}

// Validate validates the Config using struct tags and cross-field rules.
// Returns an error if validation fails, with actionable error messages.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())

	if err := RegisterCustomValidators(v); err != nil {
		return err
	}

	if err := v.Struct(c); err != nil {
		return formatValidationErrors(err)
	}

	if err := c.validateDurations(); err != nil {
		return err
	}

	if err := c.validateMetricsAuth(); err != nil {
		return err
	}

	if err := c.validateTLSPair(); err != nil {
		return err
	}

	return nil
}

// validateDurations parses the duration-typed string fields.
func (c *Config) validateDurations() error {
	if _, err := time.ParseDuration(c.Server.ShutdownTimeout); err != nil {
		return fmt.Errorf("server.shutdown_timeout: invalid duration %q", c.Server.ShutdownTimeout)
	}
	if _, err := time.ParseDuration(c.AccessLog.FlushInterval); err != nil {
		return fmt.Errorf("access_log.flush_interval: invalid duration %q", c.AccessLog.FlushInterval)
	}
	return nil
}

// validateMetricsAuth ensures that requiring auth on /metrics comes with at
// least one key to authenticate against. Dev mode relaxes this so local
// exploration works without minting keys.
func (c *Config) validateMetricsAuth() error {
	if c.Metrics.RequireAuth && len(c.Metrics.Keys) == 0 && !c.DevMode {
		return errors.New("metrics: require_auth is set but no keys are configured\n" +
			"Generate one with: palisade hash-key <key>")
	}
	return nil
}

// validateTLSPair ensures cert and key are configured together.
func (c *Config) validateTLSPair() error {
	hasCert := c.Server.CertFile != ""
	hasKey := c.Server.KeyFile != ""
	if hasCert != hasKey {
		return errors.New("server: cert_file and key_file must be set together")
	}
	return nil
}

// formatValidationErrors converts validator errors to actionable messages.
func formatValidationErrors(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "access_output":
			msgs = append(msgs, fmt.Sprintf("%s: must be \"stdout\", \"file://<absolute dir>\", or \"sqlite://<absolute path>\"", fe.Namespace()))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s: must be one of [%s]", fe.Namespace(), fe.Param()))
		case "min":
			msgs = append(msgs, fmt.Sprintf("%s: must be at least %s", fe.Namespace(), fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s: failed %s validation", fe.Namespace(), fe.Tag()))
		}
	}
	return fmt.Errorf("config validation failed:\n  %s", strings.Join(msgs, "\n  "))
}
