package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/zoom-oss/rtms-ingestion/pkg/wire"
)

var structValidator = validator.New(validator.WithRequiredStructEnabled())

// validate runs go-playground/validator struct-tag validation over
// cfg, then the cross-field checks tags can't express, mirroring the
// teacher's ValidateAll: fail fast at the first error, wrapped so
// callers get a clear field path.
func validate(cfg *Config) error {
	if err := structValidator.Struct(cfg); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			fe := verrs[0]
			return &ValidationError{Field: fe.Namespace(), Err: fmt.Errorf("failed on %q", fe.Tag())}
		}
		return &ValidationError{Field: "", Err: err}
	}

	if len(cfg.Credentials) == 0 && cfg.DefaultCredential == nil {
		return &ValidationError{Field: "credentials", Err: fmt.Errorf("at least one product credential or a default_credential is required")}
	}

	mask, err := wire.ParseMaskNames(cfg.MediaMaskRaw)
	if err != nil {
		return &ValidationError{Field: "media_mask", Err: err}
	}
	cfg.MediaMask = mask

	if !cfg.LogLevel.IsValid() {
		return &ValidationError{Field: "log_level", Err: fmt.Errorf("invalid log level %q", cfg.LogLevel)}
	}

	return nil
}
