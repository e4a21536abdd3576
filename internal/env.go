// Package internal holds the environment configuration shared by every
// cobot command.
//
// Each knob is a Flag: a cobra command line flag coupled to a COBOT_*
// environment variable. ValidateEnv resolves every Flag once, in order of
// precedence: an explicitly set command line flag, the environment
// variable, the config file named by --config/COBOT_CONFIG, the compiled
// default.
package internal

import (
	"os"
	"strconv"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/kaushalagrawal2/een1097-assignment2/internal/pkg/validate"
)

// Flag couples a command line flag with an environment variable.
type Flag struct {
	Name    string // command line flag name
	Env     string // environment variable name
	Default string
	Usage   string

	flag *pflag.Flag
}

// Command line flags shared by the cobot commands.
var (
	EnvFlag = Flag{
		Name:    "env",
		Env:     "COBOT_ENV",
		Default: "dev",
		Usage:   "deployment environment (dev, staging or prod)",
	}
	LogLevelFlag = Flag{
		Name:    "log-level",
		Env:     "COBOT_LOG_LEVEL",
		Default: "info",
		Usage:   "log level (trace, debug, info, warn or error)",
	}
	LogFileFlag = Flag{
		Name:    "log-file",
		Env:     "COBOT_LOG_FILE",
		Default: "",
		Usage:   "write logs to this rotating file instead of stderr",
	}
	ConfigFlag = Flag{
		Name:    "config",
		Env:     "COBOT_CONFIG",
		Default: "",
		Usage:   "path to an optional YAML config file",
	}
	HostFlag = Flag{
		Name:    "host",
		Env:     "COBOT_HOST",
		Default: "127.0.0.1",
		Usage:   "hub host to bind (server) or dial (client)",
	}
	PortFlag = Flag{
		Name:    "port",
		Env:     "COBOT_PORT",
		Default: "5050",
		Usage:   "hub TCP port",
	}

	APIPortFlag = Flag{
		Name:    "api-port",
		Env:     "COBOT_API_PORT",
		Default: "8080",
		Usage:   "control API HTTP port",
	}
	ServerTickerMSFlag = Flag{
		Name:    "server-ticker-ms",
		Env:     "COBOT_SERVER_TICKER_MS",
		Default: "100",
		Usage:   "safety monitor cadence in milliseconds",
	}

	ClientTickerMSFlag = Flag{
		Name:    "client-ticker-ms",
		Env:     "COBOT_CLIENT_TICKER_MS",
		Default: "100",
		Usage:   "telemetry cadence in milliseconds",
	}
	ClientKillswitchMSFlag = Flag{
		Name:    "client-killswitch-ms",
		Env:     "COBOT_CLIENT_KILLSWITCH_MS",
		Default: "0",
		Usage:   "disconnect after this many milliseconds (0 disables)",
	}
)

// Environment values resolved by ValidateEnv.
var (
	Env      string
	LogLevel string
	LogFile  string
	Host     string
	Port     uint16
	APIPort  uint16

	ServerTickerMS     uint
	ClientTickerMS     uint
	ClientKillswitchMS uint
)

// environment carries the resolved values through validation.
type environment struct {
	Env      string `validate:"required,oneof=dev staging prod"`
	LogLevel string `validate:"required,oneof=trace debug info warn error"`
	LogFile  string
	Host     string `validate:"required"`
	Port     uint16 `validate:"required"`
	APIPort  uint16 `validate:"required"`

	ServerTickerMS     uint `validate:"required"`
	ClientTickerMS     uint `validate:"required"`
	ClientKillswitchMS uint
}

// RegisterCommandFlags registers the given flags on the command.
func RegisterCommandFlags(cmd *cobra.Command, flags []*Flag) error {
	for _, f := range flags {
		if cmd.PersistentFlags().Lookup(f.Name) != nil {
			return errors.Errorf("flag %q registered twice", f.Name)
		}
		cmd.PersistentFlags().String(f.Name, f.Default, f.Usage)
		f.flag = cmd.PersistentFlags().Lookup(f.Name)
	}
	return nil
}

// value resolves the flag against the file values loaded by ValidateEnv.
func (f *Flag) value(file map[string]string) string {
	if f.flag != nil && f.flag.Changed {
		return f.flag.Value.String()
	}
	if v, ok := os.LookupEnv(f.Env); ok && v != "" {
		return v
	}
	if v, ok := file[f.Name]; ok {
		return v
	}
	return f.Default
}

// uint16Value resolves the flag and parses it as a uint16.
func (f *Flag) uint16Value(file map[string]string) (uint16, error) {
	v, err := strconv.ParseUint(f.value(file), 10, 16)
	if err != nil {
		return 0, errors.Wrapf(err, "parse %s failed", f.Name)
	}
	return uint16(v), nil
}

// uintValue resolves the flag and parses it as a uint.
func (f *Flag) uintValue(file map[string]string) (uint, error) {
	v, err := strconv.ParseUint(f.value(file), 10, 32)
	if err != nil {
		return 0, errors.Wrapf(err, "parse %s failed", f.Name)
	}
	return uint(v), nil
}

// ValidateEnv resolves every Flag into its typed package variable and
// validates the result. Commands call it once before running an app.
func ValidateEnv() error {
	file := map[string]string{}
	if path := ConfigFlag.value(nil); path != "" {
		loaded, err := loadConfigFile(path)
		if err != nil {
			return errors.Wrap(err, "load config file failed")
		}
		file = loaded
	}

	var err error
	env := environment{
		Env:      EnvFlag.value(file),
		LogLevel: LogLevelFlag.value(file),
		LogFile:  LogFileFlag.value(file),
		Host:     HostFlag.value(file),
	}
	if env.Port, err = PortFlag.uint16Value(file); err != nil {
		return err
	}
	if env.APIPort, err = APIPortFlag.uint16Value(file); err != nil {
		return err
	}
	if env.ServerTickerMS, err = ServerTickerMSFlag.uintValue(file); err != nil {
		return err
	}
	if env.ClientTickerMS, err = ClientTickerMSFlag.uintValue(file); err != nil {
		return err
	}
	if env.ClientKillswitchMS, err = ClientKillswitchMSFlag.uintValue(file); err != nil {
		return err
	}
	if err := validate.Validate().Struct(env); err != nil {
		return errors.Wrap(err, "validate environment failed")
	}

	Env = env.Env
	LogLevel = env.LogLevel
	LogFile = env.LogFile
	Host = env.Host
	Port = env.Port
	APIPort = env.APIPort
	ServerTickerMS = env.ServerTickerMS
	ClientTickerMS = env.ClientTickerMS
	ClientKillswitchMS = env.ClientKillswitchMS
	return nil
}
