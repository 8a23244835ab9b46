// Package config initializes the process-wide Viper instance. It sets search
// paths and defaults and binds environment variables; the typed view lives in
// internal/config.
package config

import (
	"errors"
	"strings"

	"github.com/spf13/viper"

	internalconfig "github.com/JakeFAU/toyota-maintenance-collector/internal/config"
)

// EnvPrefix is prepended to every environment override, e.g. MAINT_OUTPUT_DIR.
const EnvPrefix = "MAINT"

// InitConfig prepares v for use. An explicit file path takes precedence over
// the search paths. A missing config file is not an error; a malformed one is.
// v.ConfigFileUsed reports which file, if any, was read.
func InitConfig(v *viper.Viper, file string) error {
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/maintenance-collector/")
		v.AddConfigPath("$HOME/.maintenance-collector")
	}

	internalconfig.SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return err
	}
	return nil
}
