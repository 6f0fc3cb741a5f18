package options

import (
	"errors"

	"github.com/peeredge-io/shadowbridge/internal/bridge"
	"github.com/peeredge-io/shadowbridge/pkg/app"
	"github.com/peeredge-io/shadowbridge/pkg/log"
	"github.com/peeredge-io/shadowbridge/pkg/options"
)

// BridgeOptions is shadowbridge's top-level option aggregator, mirroring
// the teacher's cmd/bridge/app/options.HubOptions: one field per
// sub-option group, a Flags/Complete/Validate/Config lifecycle.
type BridgeOptions struct {
	ProcessorOptions *options.ProcessorOptions `json:"processor" mapstructure:"processor"`
	BackendOptions   *options.BackendOptions   `json:"backend" mapstructure:"backend"`
	HttpOptions      *options.HttpOptions      `json:"http" mapstructure:"http"`
	GoogleOptions    *options.GoogleOptions    `json:"google" mapstructure:"google"`
	WatsonOptions    *options.WatsonOptions    `json:"watson" mapstructure:"watson"`
	GenericOptions   *options.GenericOptions   `json:"generic" mapstructure:"generic"`
	Log              *log.Options              `json:"log" mapstructure:"log"`
}

var _ app.NamedFlagSetOptions = (*BridgeOptions)(nil)

// NewBridgeOptions builds a BridgeOptions with every sub-option group
// defaulted.
func NewBridgeOptions() *BridgeOptions {
	return &BridgeOptions{
		ProcessorOptions: options.NewProcessorOptions(),
		BackendOptions:   options.NewBackendOptions(),
		HttpOptions:      options.NewHttpOptions(),
		GoogleOptions:    options.NewGoogleOptions(),
		WatsonOptions:    options.NewWatsonOptions(),
		GenericOptions:   options.NewGenericOptions(),
		Log:              log.NewOptions(),
	}
}

func (o *BridgeOptions) Flags() app.NamedFlagSets {
	fss := app.NamedFlagSets{}
	o.ProcessorOptions.AddFlags(fss.FlagSet("processor"))
	o.BackendOptions.AddFlags(fss.FlagSet("backend"))
	o.HttpOptions.AddFlags(fss.FlagSet("http"))
	o.GoogleOptions.AddFlags(fss.FlagSet("google"))
	o.WatsonOptions.AddFlags(fss.FlagSet("watson"))
	o.GenericOptions.AddFlags(fss.FlagSet("generic"))
	o.Log.AddFlags(fss.FlagSet("log"))
	return fss
}

func (o *BridgeOptions) Complete() error {
	return nil
}

func (o *BridgeOptions) Validate() error {
	var errs []error
	errs = append(errs, o.ProcessorOptions.Validate()...)
	errs = append(errs, o.BackendOptions.Validate()...)
	errs = append(errs, o.HttpOptions.Validate()...)
	errs = append(errs, o.GoogleOptions.Validate()...)
	errs = append(errs, o.WatsonOptions.Validate()...)
	errs = append(errs, o.GenericOptions.Validate()...)
	errs = append(errs, o.Log.Validate()...)
	return errors.Join(errs...)
}

// Config builds the internal/bridge.Config this process runs from.
func (o *BridgeOptions) Config() (*bridge.Config, error) {
	return &bridge.Config{
		Processor: o.ProcessorOptions,
		Backend:   o.BackendOptions,
		Http:      o.HttpOptions,
		Google:    o.GoogleOptions,
		Watson:    o.WatsonOptions,
		Generic:   o.GenericOptions,
	}, nil
}
