package internal

import (
	"os"
	"strconv"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// fileConfig is the YAML shape of the optional config file.
type fileConfig struct {
	Env string `yaml:"env"`
	Log struct {
		Level string `yaml:"level"`
		File  string `yaml:"file"`
	} `yaml:"log"`
	Server struct {
		Host     string `yaml:"host"`
		Port     uint16 `yaml:"port"`
		APIPort  uint16 `yaml:"apiPort"`
		TickerMS uint   `yaml:"tickerMs"`
	} `yaml:"server"`
	Client struct {
		TickerMS     uint `yaml:"tickerMs"`
		KillswitchMS uint `yaml:"killswitchMs"`
	} `yaml:"client"`
}

// loadConfigFile reads the YAML file at path into a flag-name-keyed map.
// Keys absent from the file are absent from the map, so flag defaults
// still apply to them.
func loadConfigFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s failed", path)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, errors.Wrapf(err, "parse %s failed", path)
	}

	values := map[string]string{}
	setString := func(f *Flag, v string) {
		if v != "" {
			values[f.Name] = v
		}
	}
	setUint := func(f *Flag, v uint64) {
		if v != 0 {
			values[f.Name] = strconv.FormatUint(v, 10)
		}
	}
	setString(&EnvFlag, fc.Env)
	setString(&LogLevelFlag, fc.Log.Level)
	setString(&LogFileFlag, fc.Log.File)
	setString(&HostFlag, fc.Server.Host)
	setUint(&PortFlag, uint64(fc.Server.Port))
	setUint(&APIPortFlag, uint64(fc.Server.APIPort))
	setUint(&ServerTickerMSFlag, uint64(fc.Server.TickerMS))
	setUint(&ClientTickerMSFlag, uint64(fc.Client.TickerMS))
	setUint(&ClientKillswitchMSFlag, uint64(fc.Client.KillswitchMS))
	return values, nil
}
