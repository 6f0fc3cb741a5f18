// Package options defines the pflag-bound configuration groups shared by
// shadowbridge's command surface. Each group implements IOptions so it can
// be assembled, flagged, and validated uniformly by pkg/app.
package options

import (
	"fmt"
	"net"

	"github.com/spf13/pflag"
)

// IOptions is implemented by every flag-bound configuration group.
type IOptions interface {
	// Validate checks the group's values, returning one error per problem.
	Validate() []error

	// AddFlags registers the group's flags on fs.
	AddFlags(fs *pflag.FlagSet, prefixes ...string)
}

// ValidateAddress checks that addr is a well-formed host:port pair.
func ValidateAddress(addr string) error {
	if addr == "" {
		return fmt.Errorf("address must not be empty")
	}
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid address %q: %w", addr, err)
	}
	if port == "" {
		return fmt.Errorf("invalid address %q: missing port", addr)
	}
	_ = host
	return nil
}
