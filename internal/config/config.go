// Package config holds the configuration of the cloak command line.
package config

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/idelchi/gogen/pkg/validator"

	"github.com/idelchi/cloak/internal/kdf"
)

// ErrUsage marks a configuration that is valid on its own but incomplete for the command at hand.
var ErrUsage = errors.New("invalid usage")

// Config carries every setting of the cloak command line. Values come from flags,
// CLOAK_* environment variables and defaults, in that order of precedence.
type Config struct {
	// Common flags
	DB       string     `mapstructure:"db"           validate:"required"                                label:"--db"`
	BlobDir  string     `mapstructure:"blob-dir"     validate:"required"                                label:"--blob-dir"`
	LogLevel string     `mapstructure:"log-level"    validate:"oneof=trace debug info warn error"       label:"--log-level"`
	Pepper   string     `mapstructure:"token-pepper" validate:"omitempty,hexadecimal,min=32"            label:"--token-pepper"`
	User     string     `mapstructure:"user"                                                            label:"--user"`
	KDF      kdf.Params `mapstructure:"kdf"`
	Quiet    bool
	Show     bool

	// Seal flags
	Password string `mapstructure:"password" validate:"omitempty,min=4,exclusive=manifest" label:"--password"`
	Manifest string `mapstructure:"manifest" validate:"omitempty,file"                     label:"--manifest"`
	Plain    bool
	Folder   string
	Parallel int `validate:"min=1" label:"--parallel"`
	Stats    bool

	// Open flags
	ID    string `mapstructure:"id"`
	Token string
	Out   string

	// Audit flags
	Limit int `validate:"min=0" label:"--limit"`

	// Serve flags
	Addr string `validate:"omitempty,hostname_port" label:"--addr"`

	// Positional arguments
	Files []string
}

// Validate validates the configuration against the struct tags.
// Every failing field is reported, each wrapped in validator.ErrValidation.
func (c Config) Validate() error {
	validate := validator.NewValidator()

	if err := registerExclusive(validate); err != nil {
		return err
	}

	if errs := validate.Validate(c); len(errs) > 0 {
		return fmt.Errorf("validating configuration: %w", errors.Join(errs...))
	}

	if err := c.KDF.Validate(); err != nil {
		return fmt.Errorf("validating configuration: %w", err)
	}

	return nil
}

// PepperBytes decodes the token pepper. It fails when no pepper is configured.
func (c Config) PepperBytes() ([]byte, error) {
	if c.Pepper == "" {
		return nil, fmt.Errorf("%w: --token-pepper (or CLOAK_TOKEN_PEPPER) is required, see 'cloak keygen'", ErrUsage)
	}

	pepper, err := hex.DecodeString(c.Pepper)
	if err != nil {
		return nil, fmt.Errorf("invalid token pepper format: %w", err)
	}

	return pepper, nil
}

// RequireSeal checks the flags of the seal command.
func (c Config) RequireSeal() error {
	switch {
	case c.Manifest != "" && len(c.Files) > 0:
		return fmt.Errorf("%w: files are taken from --manifest, do not pass them as arguments", ErrUsage)
	case c.Manifest == "" && len(c.Files) == 0:
		return fmt.Errorf("%w: nothing to seal, pass files or --manifest", ErrUsage)
	case !c.Plain && c.Manifest == "" && c.Password == "":
		return fmt.Errorf("%w: --password or --manifest is required unless --plain is set", ErrUsage)
	}

	return nil
}
