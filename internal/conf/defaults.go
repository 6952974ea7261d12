// defaults.go: viper defaults for all settings.
package conf

import (
	"time"

	"github.com/spf13/viper"
)

// setDefaultConfig registers the default value for every setting.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("main.name", "FairLens")
	viper.SetDefault("main.log.enabled", true)
	viper.SetDefault("main.log.path", "fairlens.log")
	viper.SetDefault("main.log.maxsize", 100)
	viper.SetDefault("main.log.maxbackups", 3)
	viper.SetDefault("main.log.maxage", 28)

	// Fast-path quick monitor
	viper.SetDefault("realtime.monitor.interval", 2*time.Second)
	viper.SetDefault("realtime.monitor.windowsize", 5)
	viper.SetDefault("realtime.monitor.cachettl", 30*time.Second)
	viper.SetDefault("realtime.monitor.scoreerrlog", false)

	// Comprehensive analysis scheduling
	viper.SetDefault("realtime.analysis.interval", 5*time.Second)
	viper.SetDefault("realtime.analysis.pollinterval", 1*time.Second)
	viper.SetDefault("realtime.analysis.maxconcurrent", 5)
	viper.SetDefault("realtime.analysis.fastpathsize", 10)
	viper.SetDefault("realtime.analysis.buffersize", 100)
	viper.SetDefault("realtime.analysis.stopgrace", 3*time.Second)

	// Detection thresholds and feedback adaptation
	viper.SetDefault("realtime.detection.warningthreshold", 0.3)
	viper.SetDefault("realtime.detection.thresholdmin", 0.1)
	viper.SetDefault("realtime.detection.thresholdmax", 0.5)
	viper.SetDefault("realtime.detection.learningrate", 0.1)
	viper.SetDefault("realtime.detection.minadjustment", 0.01)

	viper.SetDefault("realtime.queuesize", 256)

	viper.SetDefault("output.sqlite.enabled", false)
	viper.SetDefault("output.sqlite.path", "fairlens.db")

	viper.SetDefault("metrics.enabled", false)
	viper.SetDefault("metrics.listen", ":9090")
}
