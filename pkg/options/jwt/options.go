// Package jwt provides JWT verification options.
package jwt

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"
)

const (
	// DefaultSigningMethod is the default JWT signing algorithm.
	DefaultSigningMethod = "HS256"

	// MinKeyLength is the minimum required key length.
	MinKeyLength = 32
)

// Options contains JWT verification configuration.
type Options struct {
	// Key is the shared signing key used to verify tokens.
	Key string `json:"-" mapstructure:"key"`

	// SigningMethod is the expected signing algorithm.
	SigningMethod string `json:"signing-method" mapstructure:"signing-method"`

	// Issuer, when non-empty, must match the token issuer claim.
	Issuer string `json:"issuer" mapstructure:"issuer"`

	// Leeway tolerated when validating time-based claims.
	Leeway time.Duration `json:"leeway" mapstructure:"leeway"`
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{
		SigningMethod: DefaultSigningMethod,
		Leeway:        30 * time.Second,
	}
}

// Validate checks if the options are valid.
func (o *Options) Validate() []error {
	if o.Key == "" {
		o.Key = os.Getenv("JWT_KEY")
	}

	var errs []error
	if len(o.Key) < MinKeyLength {
		errs = append(errs, fmt.Errorf("jwt key must be at least %d characters", MinKeyLength))
	}
	if o.SigningMethod != "HS256" && o.SigningMethod != "HS384" && o.SigningMethod != "HS512" {
		errs = append(errs, fmt.Errorf("unsupported jwt signing method %q", o.SigningMethod))
	}
	return errs
}

// AddFlags adds flags for JWT options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.Key, "jwt.key", o.Key, "JWT signing key (prefer JWT_KEY env var)")
	fs.StringVar(&o.SigningMethod, "jwt.signing-method", o.SigningMethod, "JWT signing method (HS256|HS384|HS512)")
	fs.StringVar(&o.Issuer, "jwt.issuer", o.Issuer, "Expected JWT issuer claim (optional)")
	fs.DurationVar(&o.Leeway, "jwt.leeway", o.Leeway, "Leeway for time-based claim validation")
}
