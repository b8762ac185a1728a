package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeDaemon()
	c.normalizeHeartbeat()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeDaemon() {
	if c.Daemon.Threads <= 0 {
		c.Daemon.Threads = defaultDaemonThreads
	}
	if c.Daemon.SleepSeconds <= 0 {
		c.Daemon.SleepSeconds = defaultDaemonSleepSeconds
	}
	// Limit <= 0 is meaningful (disables the sleep heuristic); leave it.
	if c.Daemon.PartitionWaitSeconds < 0 {
		c.Daemon.PartitionWaitSeconds = defaultPartitionWaitSeconds
	}
}

func (c *Config) normalizeHeartbeat() {
	if c.Heartbeat.IntervalSeconds <= 0 {
		c.Heartbeat.IntervalSeconds = defaultHeartbeatInterval
	}
	if c.Heartbeat.ExpirySeconds <= 0 {
		c.Heartbeat.ExpirySeconds = defaultHeartbeatExpiry
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
