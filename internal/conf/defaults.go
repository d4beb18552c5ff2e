// conf/defaults.go default values for settings
package conf

import (
	"github.com/spf13/viper"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("main.name", "camtrap")

	viper.SetDefault("consolidate.execute", false)
	viper.SetDefault("consolidate.reportlimit", 5)
	viper.SetDefault("consolidate.copyworkers", 4)

	viper.SetDefault("extract.outputfile", "")
}
