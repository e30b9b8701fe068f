// Package options holds the contract shared by the per-section option structs.
package options

import (
	"strings"

	"github.com/spf13/pflag"
)

// IOptions is implemented by every config section (http, log, qdrant, rag...).
type IOptions interface {
	// Validate reports every problem in the section, not only the first.
	Validate() []error

	// AddFlags registers the section flags, namespaced by prefixes.
	AddFlags(fs *pflag.FlagSet, prefixes ...string)
}

// Join builds a flag namespace: Join("checkpoint") is "checkpoint." so
// the redis section registers "checkpoint.redis.host". No prefixes yields "".
func Join(prefixes ...string) string {
	joined := strings.Join(prefixes, ".")
	if joined != "" {
		joined += "."
	}
	return joined
}

// ValidateAll collects the validation errors of several sections in order.
func ValidateAll(sections ...IOptions) []error {
	var errs []error
	for _, s := range sections {
		errs = append(errs, s.Validate()...)
	}
	return errs
}
