package util

import (
	"crypto/rand"
	"reflect"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const ENV_PREFIX = "RELAY"

var Config = viper.New()

var config_listeners []func()

func RegisterNewConfigListener(new_listener func()) {
	for _, listener := range config_listeners {
		if reflect.ValueOf(new_listener).Pointer() == reflect.ValueOf(listener).Pointer() {
			Logger.Warn().Msg("config listener already registered")
			return
		}
	}
	config_listeners = append(config_listeners, new_listener)
}

func OnNewConfig() {
	for _, listener := range config_listeners {
		listener()
	}
}

func GetRandString(n int) string {
	const letterBytes = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	b := make([]byte, n)
	for i := range b {
		randBytes := make([]byte, 1)
		if _, err := rand.Read(randBytes); err != nil {
			b[i] = letterBytes[i%len(letterBytes)]
		} else {
			b[i] = letterBytes[int(randBytes[0])%len(letterBytes)]
		}
	}
	return string(b)
}

func SetDefaults() {
	// remote link
	Config.SetDefault("Broker_URI", "tcp://mqtt:1883")
	Config.SetDefault("Cleansess", true)
	Config.SetDefault("Username", "")
	Config.SetDefault("Password", "")
	Config.SetDefault("Device_ID", GetRandString(10))
	Config.SetDefault("Namespace", "hab")
	Config.SetDefault("Relay_index", 0)
	Config.SetDefault("HA_Discovery", true)

	// scheduling
	Config.SetDefault("Tick_ms", 50)
	Config.SetDefault("Heartbeat_seconds", 10)
	Config.SetDefault("Reconnect_seconds", 5)

	// display
	Config.SetDefault("Cycle_ms", 2000)
	Config.SetDefault("Brightness_low", 32)
	Config.SetDefault("Brightness_high", 48)
	Config.SetDefault("Brightness_peak", 200)
	Config.SetDefault("Display", "console")
	Config.SetDefault("SPI_port", "")

	// hardware
	Config.SetDefault("Hardware", "sim")
	Config.SetDefault("Relay_pin", "GPIO26")
	Config.SetDefault("Button_pin", "GPIO17")

	Config.SetDefault("Details_port", 8080)
	Config.SetDefault("Log_level", "info")
}

// SetupConfig loads defaults, the config file, environment and flags, in
// increasing order of precedence. flags may be nil.
func SetupConfig(flags *pflag.FlagSet) {
	Config.SetEnvPrefix(ENV_PREFIX)
	SetDefaults()

	// flags (bound first so --config can pick the file)
	if flags != nil {
		BindFlags(flags)
	}

	// config file
	if file := Config.GetString("config"); file != "" {
		Config.SetConfigFile(file)
	} else {
		Config.SetConfigName("relay_controller")
		Config.AddConfigPath("/")
		Config.AddConfigPath("./")
		Config.AddConfigPath("./config")
		Config.AddConfigPath("/etc")
		Config.AddConfigPath("/relay_controller")
	}

	err := Config.ReadInConfig()
	if err != nil {
		Logger.Warn().Err(err).Msg("unable to read config file, using defaults")
	}

	// environment variables
	Config.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	Config.AutomaticEnv()

	// watch for changes
	if err == nil {
		Config.WatchConfig()
		Config.OnConfigChange(func(e fsnotify.Event) {
			Logger.Info().Msgf("Config file changed: %v", e.Name)
			Logger.Debug().Msgf("Config Additional Info: %v", e.String())
			OnNewConfig()
		})
	}
}

// BindFlags binds every flag to the config key of the same name with dashes
// turned into underscores, so --log-level overrides log_level.
func BindFlags(flags *pflag.FlagSet) {
	flags.VisitAll(func(f *pflag.Flag) {
		key := strings.ReplaceAll(f.Name, "-", "_")
		if err := Config.BindPFlag(key, f); err != nil {
			Logger.Error().Err(err).Msgf("unable to bind flag %v", f.Name)
		}
	})
}
