// Package qdrant provides Qdrant client configuration options.
package qdrant

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/kart-io/storybook-rag/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Options contains Qdrant gRPC client configuration.
type Options struct {
	Host   string `json:"host" mapstructure:"host"`
	Port   int    `json:"port" mapstructure:"port"`
	APIKey string `json:"-" mapstructure:"api-key"`
	UseTLS bool   `json:"use-tls" mapstructure:"use-tls"`
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{
		Host: "localhost",
		Port: 6334,
	}
}

// AddFlags adds flags for Qdrant options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...) + "qdrant."

	fs.StringVar(&o.Host, p+"host", o.Host, "Qdrant host.")
	fs.IntVar(&o.Port, p+"port", o.Port, "Qdrant gRPC port.")
	fs.StringVar(&o.APIKey, p+"api-key", o.APIKey, "Qdrant API key (or QDRANT_API_KEY).")
	fs.BoolVar(&o.UseTLS, p+"use-tls", o.UseTLS, "Connect to Qdrant over TLS.")
}

// Complete fills the API key from the environment when unset.
func (o *Options) Complete() error {
	if o.APIKey == "" {
		o.APIKey = os.Getenv("QDRANT_API_KEY")
	}
	return nil
}

// Validate validates the Qdrant options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.Host == "" {
		errs = append(errs, fmt.Errorf("qdrant.host is required"))
	}
	if o.Port <= 0 || o.Port > 65535 {
		errs = append(errs, fmt.Errorf("qdrant.port must be between 1 and 65535"))
	}
	return errs
}
