package config

import (
	"os"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment overrides, e.g. ISORENDER_SERVER_PORT.
const EnvPrefix = "ISORENDER"

// BindEnv enables ISORENDER_* environment overrides on v.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Init points v at the configuration file and reads it.
//
// Priority: explicit path, then ISORENDER_CONFIG_FILE, then .isorender.yml
// in the working directory. A missing default file is not an error. It
// returns the file used, or "".
func Init(v *viper.Viper, path string) (string, error) {
	explicit := true
	switch {
	case path != "":
		v.SetConfigFile(path)
	case os.Getenv(EnvPrefix+"_CONFIG_FILE") != "":
		v.SetConfigFile(os.Getenv(EnvPrefix + "_CONFIG_FILE"))
	default:
		explicit = false
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName(".isorender")
	}

	BindEnv(v)

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); notFound && !explicit {
			return "", nil
		}
		return "", err
	}
	return v.ConfigFileUsed(), nil
}
