package cmd

import (
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// bindFlags binds each flag to its configuration key. Only flags the user
// actually set override file and env values.
func bindFlags(v *viper.Viper, fs *pflag.FlagSet, keys map[string]string) {
	for name, key := range keys {
		if flag := fs.Lookup(name); flag != nil {
			// Lookup succeeded, so BindPFlag cannot fail.
			_ = v.BindPFlag(key, flag)
		}
	}
}
