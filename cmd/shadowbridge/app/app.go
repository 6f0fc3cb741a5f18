package app

import (
	"context"
	"fmt"

	"github.com/peeredge-io/shadowbridge/cmd/shadowbridge/app/options"
	"github.com/peeredge-io/shadowbridge/pkg/app"
	"github.com/peeredge-io/shadowbridge/pkg/log"
)

const (
	commandName = "shadowbridge"
	commandDesc = `shadowbridge mirrors LwM2M/CoAP device shadows onto MQTT-based cloud
IoT platforms (Google Cloud IoT Core, IBM Watson IoT, or a generic MQTT
broker), translating between the device management backend's REST/
long-poll surface and each cloud's native topic and payload format.`
)

// NewApp builds the shadowbridge command.
func NewApp() *app.App {
	opts := options.NewBridgeOptions()
	application := app.NewApp(
		commandName,
		"Run the shadowbridge device-cloud bridge",
		app.WithDescription(commandDesc),
		app.WithOptions(opts),
		app.WithDefaultValidArgs(),
		app.WithRunFunc(run(opts)),
		app.WithLoggerContextExtractor(map[string]func(context.Context) string{}),
		app.WithSubCommands(newStatusCommand()),
	)
	return application
}

func run(opts *options.BridgeOptions) app.RunFunc {
	return func() error {
		log.Init(opts.Log)
		ctx := app.SetupSignalContext()

		cfg, err := opts.Config()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		b, err := cfg.NewBridge()
		if err != nil {
			return fmt.Errorf("failed to create bridge: %w", err)
		}

		return b.Run(ctx)
	}
}
