package config

const (
	defaultDataDir               = "~/.local/share/symsync"
	defaultLogDir                = "~/.local/share/symsync/logs"
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
	defaultRescanIntervalSeconds = 10
	defaultRescanTickMillis      = 100
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Engine: Engine{
			RescanIntervalSeconds: defaultRescanIntervalSeconds,
			RescanTickMillis:      defaultRescanTickMillis,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
