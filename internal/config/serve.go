package config

import (
	"time"

	"github.com/spf13/pflag"
)

// ServeConfig adds HTTP server settings to Config.
type ServeConfig struct {
	Config
	Listen          string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// LoadServe merges config file, environment variables, and flags into ServeConfig.
func LoadServe(cfgFile string, flags *pflag.FlagSet) (ServeConfig, error) {
	v, err := newViper(cfgFile, flags)
	if err != nil {
		return ServeConfig{}, err
	}
	base, err := fromViper(v)
	if err != nil {
		return ServeConfig{}, err
	}
	return ServeConfig{
		Config:          base,
		Listen:          v.GetString("listen"),
		ReadTimeout:     v.GetDuration("read-timeout"),
		WriteTimeout:    v.GetDuration("write-timeout"),
		ShutdownTimeout: v.GetDuration("shutdown-timeout"),
	}, nil
}
