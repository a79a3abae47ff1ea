package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/hay-kot/criterio"

	"github.com/hay-kot/chanfeed/internal/core/validate"
)

const maxSuggestedWorkers = 64

// ValidationWarning represents a non-fatal configuration issue.
type ValidationWarning struct {
	Category string `json:"category"`
	Item     string `json:"item,omitempty"`
	Message  string `json:"message"`
}

// Validate checks that the configuration is usable. Errors are returned as
// criterio.FieldErrors keyed by YAML path.
func (c *Config) Validate() error {
	var errs criterio.FieldErrorsBuilder

	if err := validate.Server(c.ServerJID); err != nil {
		errs = errs.Append("server_jid", err)
	}

	if c.DataDir == "" {
		errs = errs.Append("data_dir", fmt.Errorf("data directory cannot be empty"))
	}

	if c.QueryTimeout <= 0 {
		errs = errs.Append("query_timeout", fmt.Errorf("must be positive, got %s", c.QueryTimeout))
	}

	if c.DecryptWorkers < 1 {
		errs = errs.Append("decrypt_workers", fmt.Errorf("must be at least 1"))
	}

	if !isValidRole(c.ViewRole) {
		errs = errs.Append("view_role", fmt.Errorf("invalid role %q", c.ViewRole))
	}

	if c.AutoFollow.Enabled {
		if err := validate.ChannelJID(c.AutoFollow.Channel); err != nil {
			errs = errs.Append("auto_follow.channel", err)
		}
	}

	return errs.ToError()
}

// ValidateDeep runs Validate and also checks the config file and data
// directory on disk.
func (c *Config) ValidateDeep(configPath string) error {
	var errs criterio.FieldErrorsBuilder

	if err := c.Validate(); err != nil {
		var fieldErrs criterio.FieldErrors
		if !errors.As(err, &fieldErrs) {
			return err
		}
		for _, fe := range fieldErrs {
			errs = errs.Append(fe.Field, fe.Err)
		}
	}

	if configPath != "" {
		if info, err := os.Stat(configPath); err == nil {
			if info.IsDir() {
				errs = errs.Append("config_file", fmt.Errorf("%s is a directory, not a file", configPath))
			}
		} else if !os.IsNotExist(err) {
			errs = errs.Append("config_file", fmt.Errorf("cannot access %s: %w", configPath, err))
		}
	}

	if c.DataDir != "" {
		if info, err := os.Stat(c.DataDir); err == nil {
			if !info.IsDir() {
				errs = errs.Append("data_dir", fmt.Errorf("%s exists but is not a directory", c.DataDir))
			}
		} else if !os.IsNotExist(err) {
			errs = errs.Append("data_dir", fmt.Errorf("cannot access %s: %w", c.DataDir, err))
		}
	}

	return errs.ToError()
}

// Warnings returns non-fatal issues with the configuration.
func (c *Config) Warnings() []ValidationWarning {
	var warnings []ValidationWarning

	if c.DecryptWorkers > maxSuggestedWorkers {
		warnings = append(warnings, ValidationWarning{
			Category: "Feed",
			Item:     "decrypt_workers",
			Message:  fmt.Sprintf("%d workers is unusually high; fetched batches rarely exceed %d items", c.DecryptWorkers, maxSuggestedWorkers),
		})
	}

	if c.QueryTimeout > 0 && c.QueryTimeout < time.Second {
		warnings = append(warnings, ValidationWarning{
			Category: "Transport",
			Item:     "query_timeout",
			Message:  fmt.Sprintf("%s is likely too short for server round trips", c.QueryTimeout),
		})
	}

	if !c.AutoFollow.Enabled {
		warnings = append(warnings, ValidationWarning{
			Category: "Auto Follow",
			Item:     "auto_follow.enabled",
			Message:  "auto-follow is disabled",
		})
	}

	return warnings
}

func isValidRole(role string) bool {
	switch role {
	case RoleGuest, RoleSubscriber, RoleAdmin, RoleOwner:
		return true
	default:
		return false
	}
}
