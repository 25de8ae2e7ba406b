// Package chatbot assembles the Providentia chat service: configuration,
// dependency wiring, and the HTTP server lifecycle.
package chatbot

import (
	"time"

	"github.com/spf13/pflag"

	jwtopts "github.com/kart-io/providentia/pkg/options/jwt"
	llmopts "github.com/kart-io/providentia/pkg/options/llm"
	logopts "github.com/kart-io/providentia/pkg/options/logger"
	milvusopts "github.com/kart-io/providentia/pkg/options/milvus"
	mysqlopts "github.com/kart-io/providentia/pkg/options/mysql"
	redisopts "github.com/kart-io/providentia/pkg/options/redis"
)

// ServerOptions contains the configuration options for the server.
type ServerOptions struct {
	// Addr is the HTTP listen address.
	Addr string `json:"addr" mapstructure:"addr"`

	// Collection is the knowledge-base collection searched per query.
	Collection string `json:"collection" mapstructure:"collection"`

	// TopK is the number of passages retrieved per query.
	TopK int `json:"top-k" mapstructure:"top-k"`

	// ChatRateLimit is the per-user request budget per minute on chat routes.
	ChatRateLimit int `json:"chat-rate-limit" mapstructure:"chat-rate-limit"`

	// StatsRateLimit is the per-user request budget per minute on stats.
	StatsRateLimit int `json:"stats-rate-limit" mapstructure:"stats-rate-limit"`

	// ShutdownTimeout is the timeout for graceful shutdown.
	ShutdownTimeout time.Duration `json:"shutdown-timeout" mapstructure:"shutdown-timeout"`

	// LogOptions contains logger configuration.
	LogOptions *logopts.Options `json:"log" mapstructure:"log"`

	// MilvusOptions contains Milvus database configuration.
	MilvusOptions *milvusopts.Options `json:"milvus" mapstructure:"milvus"`

	// EmbeddingOptions contains embedding provider configuration.
	EmbeddingOptions *llmopts.ProviderOptions `json:"embedding" mapstructure:"embedding"`

	// GenerationOptions contains generation provider configuration.
	GenerationOptions *llmopts.ProviderOptions `json:"generation" mapstructure:"generation"`

	// MySQLOptions contains interaction store configuration.
	MySQLOptions *mysqlopts.Options `json:"mysql" mapstructure:"mysql"`

	// RedisOptions contains rate-limiter backend configuration.
	RedisOptions *redisopts.Options `json:"redis" mapstructure:"redis"`

	// JWTOptions contains token verification configuration.
	JWTOptions *jwtopts.Options `json:"jwt" mapstructure:"jwt"`
}

// NewServerOptions creates a ServerOptions instance with default values.
func NewServerOptions() *ServerOptions {
	return &ServerOptions{
		Addr:              ":8080",
		Collection:        "epfo_knowledge",
		TopK:              8,
		ChatRateLimit:     10,
		StatsRateLimit:    5,
		ShutdownTimeout:   30 * time.Second,
		LogOptions:        logopts.NewOptions(),
		MilvusOptions:     milvusopts.NewOptions(),
		EmbeddingOptions:  llmopts.NewEmbeddingOptions(),
		GenerationOptions: llmopts.NewGenerationOptions(),
		MySQLOptions:      mysqlopts.NewOptions(),
		RedisOptions:      redisopts.NewOptions(),
		JWTOptions:        jwtopts.NewOptions(),
	}
}

// AddFlags adds all server flags to the given FlagSet.
func (o *ServerOptions) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.Addr, "addr", o.Addr, "HTTP listen address")
	fs.StringVar(&o.Collection, "collection", o.Collection, "Knowledge base collection name")
	fs.IntVar(&o.TopK, "top-k", o.TopK, "Number of passages retrieved per query")
	fs.IntVar(&o.ChatRateLimit, "chat-rate-limit", o.ChatRateLimit, "Per-user chat requests per minute")
	fs.IntVar(&o.StatsRateLimit, "stats-rate-limit", o.StatsRateLimit, "Per-user stats requests per minute")
	fs.DurationVar(&o.ShutdownTimeout, "shutdown-timeout", o.ShutdownTimeout, "Graceful shutdown timeout")

	o.LogOptions.AddFlags(fs)
	o.MilvusOptions.AddFlags(fs)
	o.EmbeddingOptions.AddFlags(fs, "embedding")
	o.GenerationOptions.AddFlags(fs, "generation")
	o.MySQLOptions.AddFlags(fs)
	o.RedisOptions.AddFlags(fs)
	o.JWTOptions.AddFlags(fs)
}

// Validate checks all options and aggregates every failure.
func (o *ServerOptions) Validate() []error {
	var errs []error

	if err := o.LogOptions.Validate(); err != nil {
		errs = append(errs, err)
	}
	errs = append(errs, o.MilvusOptions.Validate()...)
	errs = append(errs, o.EmbeddingOptions.Validate()...)
	errs = append(errs, o.GenerationOptions.Validate()...)
	errs = append(errs, o.MySQLOptions.Validate()...)
	errs = append(errs, o.RedisOptions.Validate()...)
	errs = append(errs, o.JWTOptions.Validate()...)

	return errs
}
