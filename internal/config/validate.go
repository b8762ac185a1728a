package config

import "errors"

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateDaemon(); err != nil {
		return err
	}
	return c.validateHeartbeat()
}

func (c *Config) validatePaths() error {
	if c.Paths.DataDir == "" {
		return errors.New("paths.data_dir must be set")
	}
	if c.Paths.LogDir == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validateDaemon() error {
	if c.Daemon.Threads <= 0 {
		return errors.New("daemon.threads must be positive")
	}
	if c.Daemon.SleepSeconds <= 0 {
		return errors.New("daemon.sleep_seconds must be positive")
	}
	if c.Daemon.PartitionWaitSeconds < 0 {
		return errors.New("daemon.partition_wait_seconds must be >= 0")
	}
	return nil
}

func (c *Config) validateHeartbeat() error {
	if c.Heartbeat.IntervalSeconds <= 0 {
		return errors.New("heartbeat.interval_seconds must be positive")
	}
	if c.Heartbeat.ExpirySeconds <= 0 {
		return errors.New("heartbeat.expiry_seconds must be positive")
	}
	if c.Heartbeat.ExpirySeconds <= c.Heartbeat.IntervalSeconds {
		return errors.New("heartbeat.expiry_seconds must be greater than heartbeat.interval_seconds")
	}
	return nil
}
