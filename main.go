package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	MQTT "github.com/eclipse/paho.mqtt.golang"
	"github.com/elijahnyp/relay_controller/clock"
	"github.com/elijahnyp/relay_controller/device"
	"github.com/elijahnyp/relay_controller/display"
	"github.com/elijahnyp/relay_controller/hw"
	"github.com/elijahnyp/relay_controller/state"
	. "github.com/elijahnyp/relay_controller/util"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "relay_controller",
	Short: "Smart relay with an LED matrix, controlled by button and MQTT",
	Long: `relay_controller switches a relay from a push button or MQTT commands,
reports its state to the broker and shows it on a 5x5 LED matrix.

Examples:
  relay_controller                                   # simulator, console display
  relay_controller --hardware gpio --display matrix  # on the device
  relay_controller --config /etc/relay.yaml`,
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	f := rootCmd.Flags()
	f.String("config", "", "config file (default relay_controller.{yaml,json,toml} in the usual paths)")
	f.String("broker-uri", "tcp://mqtt:1883", "MQTT broker URI")
	f.String("device-id", "", "device id used in topics (default random)")
	f.String("namespace", "hab", "topic namespace")
	f.String("hardware", "sim", "relay and button backend: sim or gpio")
	f.String("display", "console", "LED output: console, matrix or none")
	f.Int("details-port", 8080, "monitor HTTP port, 0 disables it")
	f.String("log-level", "info", "trace, debug, info, warn or error")

	configCmd.Flags().String("config", "", "config file to load")
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	LogInit("info")
	SetupConfig(cmd.Flags())
	LogInit(Config.GetString("log_level"))
	RegisterNewConfigListener(func() { LogInit(Config.GetString("log_level")) })

	var model DeviceModel
	if err := model.BuildModel(); err != nil {
		return err
	}
	Logger.Info().Msgf("device %v, status on %v, commands on %v", model.DeviceID, model.StatusTopic(), model.CommandTopic())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	output, button, err := openHardware(ctx, stop)
	if err != nil {
		return err
	}
	flusher, closer, err := openDisplay(os.Stdout)
	if err != nil {
		return err
	}
	if closer != nil {
		defer closer.Close()
	}

	animator, err := display.NewAnimator(
		rand.New(rand.NewSource(time.Now().UnixNano())),
		time.Duration(Config.GetInt("cycle_ms"))*time.Millisecond,
		configByte("brightness_peak"),
	)
	if err != nil {
		return err
	}

	link := NewMQTTLink(model)
	if Config.GetBool("ha_discovery") {
		link.RegisterMQTTConnectHook("haadvertise", func(client MQTT.Client) {
			AdvertiseHA(model, client)
		})
	}
	defer link.Disconnect()

	clk := clock.NewSystem()
	dc := device.NewDeviceContext(
		state.NewMachine(output, nil),
		display.NewIconRenderer(configByte("brightness_low"), configByte("brightness_high")),
		animator,
		device.NewPublishTimer(clk, link),
	)
	sched := device.NewScheduler(dc, clk, button, link, flusher, device.OptionsFromConfig())

	hub := NewStatusHub()
	go hub.Run(ctx)
	sched.AddObserver(hub.Update)
	if Config.GetInt("details_port") != 0 {
		monitor := NewMonitorServer()
		hub.Register(monitor)
		if err := monitor.Start(); err != nil {
			Logger.Error().Msgf("Error starting monitor server: %v", err)
		}
		RegisterNewConfigListener(func() { monitor.Restart() })
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			monitor.Shutdown(shutdownCtx)
		}()
	}

	Logger.Info().Msg("ready")
	err = sched.Run(ctx)
	Logger.Info().Msg("shutting down")
	return err
}

// openHardware returns the relay output and the button for the configured
// backend. The simulator reads button presses from stdin.
func openHardware(ctx context.Context, quit func()) (state.Output, device.Button, error) {
	switch hardware := Config.GetString("hardware"); hardware {
	case "gpio":
		relay, err := hw.OpenRelay(Config.GetString("relay_pin"))
		if err != nil {
			return nil, nil, err
		}
		button, err := hw.OpenButton(Config.GetString("button_pin"))
		if err != nil {
			return nil, nil, err
		}
		return relay, button, nil
	case "sim", "":
		console := hw.NewConsole(quit)
		go func() {
			if err := console.Run(ctx, os.Stdin); err != nil && !errors.Is(err, context.Canceled) {
				Logger.Warn().Err(err).Msg("console stopped")
			}
		}()
		Logger.Info().Msg("simulator: type press to toggle the relay, quit to exit")
		return &hw.SimRelay{}, console, nil
	default:
		return nil, nil, fmt.Errorf("unknown hardware %q", hardware)
	}
}

func openDisplay(out io.Writer) (display.Flusher, io.Closer, error) {
	switch kind := Config.GetString("display"); kind {
	case "console":
		return display.NewConsoleFlusher(out), nil, nil
	case "matrix":
		m, err := display.OpenMatrix(Config.GetString("spi_port"))
		if err != nil {
			return nil, nil, err
		}
		return m, m, nil
	case "none", "":
		return display.NopFlusher{}, nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown display %q", kind)
	}
}

func configByte(key string) uint8 {
	v := Config.GetInt(key)
	if v < 0 {
		return 0
	}
	if v > 255 {
		Logger.Warn().Msgf("%v = %d out of range, using 255", key, v)
		return 255
	}
	return uint8(v)
}
