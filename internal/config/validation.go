package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validate checks the struct tags and then the rules that span fields.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return formatValidationError(err)
	}
	return c.validateCustomRules()
}

func (c *Config) validateCustomRules() error {
	if err := validateRoot(c.UploadsRoot); err != nil {
		return err
	}
	if c.Cache.Durable == DurablePostgres && c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required when CACHE_DURABLE=%s", DurablePostgres)
	}
	// A cached listing must never hand out a URL that has already expired.
	if c.Storage.PresignExpiry <= c.Cache.TTL {
		return fmt.Errorf("STORAGE_PRESIGN_EXPIRY (%s) must be longer than CACHE_TTL (%s)", c.Storage.PresignExpiry, c.Cache.TTL)
	}
	if c.GitHub.PrivateKeyFile != "" && (c.GitHub.AppID == "" || c.GitHub.InstallationID == "") {
		return errors.New("GITHUB_APP_ID and GITHUB_APP_INSTALLATION_ID are required with GITHUB_APP_PRIVATE_KEY_FILE")
	}
	return nil
}

// formatValidationError converts validator errors into user-friendly messages.
func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		e := validationErrs[0]
		return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)", e.Namespace(), e.Tag(), e.Value())
	}
	return err
}
