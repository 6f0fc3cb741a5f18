package app

import (
	"bytes"
	"strings"

	"github.com/spf13/pflag"
)

// NamedFlagSets groups flag sets by name so a command's usage output can
// print them under per-concern headings ("mqtt", "google", "log", ...)
// instead of one flat alphabetical list. The teacher sources this from
// k8s.io/component-base/cli/flag, a dependency this module does not
// carry; this is a direct reimplementation of that type's public shape
// since nothing in the example pack provides flag-set grouping and
// pflag itself has no notion of named groups.
type NamedFlagSets struct {
	// Order preserves the sequence FlagSet was first called in.
	Order []string
	// FlagSets holds every group's flags, keyed by name.
	FlagSets map[string]*pflag.FlagSet
}

// FlagSet returns the named flag set, creating it on first use.
func (nfs *NamedFlagSets) FlagSet(name string) *pflag.FlagSet {
	if nfs.FlagSets == nil {
		nfs.FlagSets = map[string]*pflag.FlagSet{}
	}
	if _, ok := nfs.FlagSets[name]; !ok {
		nfs.FlagSets[name] = pflag.NewFlagSet(name, pflag.ContinueOnError)
		nfs.Order = append(nfs.Order, name)
	}
	return nfs.FlagSets[name]
}

// FlagUsages renders every group's flags under its own heading, in
// registration order.
func (nfs NamedFlagSets) FlagUsages() string {
	var buf bytes.Buffer
	for _, name := range nfs.Order {
		fs := nfs.FlagSets[name]
		if fs == nil || !fs.HasFlags() {
			continue
		}
		buf.WriteString(strings.ToUpper(name[:1]) + name[1:] + " flags:\n")
		buf.WriteString(fs.FlagUsages())
		buf.WriteString("\n")
	}
	return buf.String()
}
