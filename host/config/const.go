package config

const (
	ConfigDir          = ".quadpwm"
	ConfigFile         = "config.yaml"
	DefaultDevice      = "/dev/ttyACM0"
	DefaultBaud        = 115200
	DefaultReadTimeout = 500 // milliseconds
	DefaultBulkSize    = 1024 * 1024
	DefaultFrequency   = 1
	DefaultLogLevel    = "info"
)
