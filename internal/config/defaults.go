package config

const (
	defaultDataDir              = "~/.local/share/tally"
	defaultLogDir               = "~/.local/share/tally/logs"
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultDaemonThreads        = 1
	defaultDaemonSleepSeconds   = 10
	defaultDaemonLimit          = 1000
	defaultPartitionWaitSeconds = 1
	defaultHeartbeatInterval    = 10
	defaultHeartbeatExpiry      = 60
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Daemon: Daemon{
			Threads:              defaultDaemonThreads,
			SleepSeconds:         defaultDaemonSleepSeconds,
			Limit:                defaultDaemonLimit,
			PartitionWaitSeconds: defaultPartitionWaitSeconds,
		},
		Heartbeat: Heartbeat{
			IntervalSeconds: defaultHeartbeatInterval,
			ExpirySeconds:   defaultHeartbeatExpiry,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
