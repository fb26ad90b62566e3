package configuration

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	// EnvPrefix is prepended to every environment override, e.g. CORTNET_LOG_LEVEL.
	EnvPrefix = "CORTNET"
	// EnvConfigPath is the env var key for an optional config file.
	EnvConfigPath = "CORTNET_CONFIGURATION_PATH"

	FirewallIptables = "iptables"
	FirewallNftables = "nftables"

	DefaultLogPath = "/var/log/cortnet.log"
)

// ErrInvalidConfig is returned when a configuration value is out of range.
var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	LogLevel            string        `mapstructure:"log-level"`
	LogPath             string        `mapstructure:"log-path"`
	LogMaxSizeMB        int           `mapstructure:"log-max-size-mb"`
	LogMaxBackups       int           `mapstructure:"log-max-backups"`
	LogConsole          bool          `mapstructure:"log-console"`
	StatePath           string        `mapstructure:"state-path"`
	NetnsDir            string        `mapstructure:"netns-dir"`
	FirewallBackend     string        `mapstructure:"firewall-backend"`
	ContainerRuntime    string        `mapstructure:"container-runtime"`
	ProbeAddress        string        `mapstructure:"probe-address"`
	LockTimeout         time.Duration `mapstructure:"lock-timeout"`
	MoveConfirmAttempts uint          `mapstructure:"move-confirm-attempts"`
	MoveConfirmDelay    time.Duration `mapstructure:"move-confirm-delay"`
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	c := &Config{LogPath: DefaultLogPath, LogConsole: true}
	SetDefaults(c)
	return c
}

// SetDefaults fills zero valued fields. An empty LogPath is kept: it turns file logging off.
func SetDefaults(c *Config) {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogMaxSizeMB == 0 {
		c.LogMaxSizeMB = 5 //nolint:gomnd // default size
	}
	if c.LogMaxBackups == 0 {
		c.LogMaxBackups = 8 //nolint:gomnd // default count
	}
	if c.StatePath == "" {
		c.StatePath = "/var/lib/cortnet/state.json"
	}
	if c.NetnsDir == "" {
		c.NetnsDir = "/run/netns"
	}
	if c.FirewallBackend == "" {
		c.FirewallBackend = FirewallIptables
	}
	if c.ContainerRuntime == "" {
		c.ContainerRuntime = "docker"
	}
	if c.ProbeAddress == "" {
		c.ProbeAddress = "8.8.8.8"
	}
	if c.LockTimeout == 0 {
		c.LockTimeout = 10 * time.Second //nolint:gomnd // default times
	}
	if c.MoveConfirmAttempts == 0 {
		c.MoveConfirmAttempts = 5 //nolint:gomnd // default attempts
	}
	if c.MoveConfirmDelay == 0 {
		c.MoveConfirmDelay = 50 * time.Millisecond //nolint:gomnd // default times
	}
}

// Validate checks values that have no sane fallback.
func (c *Config) Validate() error {
	switch c.FirewallBackend {
	case FirewallIptables, FirewallNftables:
	default:
		return errors.Wrapf(ErrInvalidConfig, "firewall backend %q must be %s or %s", c.FirewallBackend, FirewallIptables, FirewallNftables)
	}
	if !strings.HasPrefix(c.NetnsDir, "/") {
		return errors.Wrapf(ErrInvalidConfig, "netns dir %q must be absolute", c.NetnsDir)
	}
	if c.StatePath == "" {
		return errors.Wrap(ErrInvalidConfig, "state path must be set")
	}
	if c.LockTimeout < 0 {
		return errors.Wrapf(ErrInvalidConfig, "lock timeout %s must not be negative", c.LockTimeout)
	}
	return nil
}

// Load decodes v into a Config, reading the file named by EnvConfigPath when set.
// Every key can be overridden from the environment, e.g. CORTNET_LOCK_TIMEOUT=3s.
func Load(v *viper.Viper) (*Config, error) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AllowEmptyEnv(true)
	v.AutomaticEnv()
	setViperDefaults(v)

	if path := v.GetString("configuration-path"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "failed to read config file %s", path)
		}
	}

	c := &Config{}
	if err := v.Unmarshal(c); err != nil {
		return nil, errors.Wrap(err, "failed to decode config")
	}
	SetDefaults(c)
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// setViperDefaults registers every Config key so AutomaticEnv can resolve it during Unmarshal.
func setViperDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("configuration-path", "")
	v.SetDefault("log-level", d.LogLevel)
	v.SetDefault("log-path", d.LogPath)
	v.SetDefault("log-max-size-mb", d.LogMaxSizeMB)
	v.SetDefault("log-max-backups", d.LogMaxBackups)
	v.SetDefault("log-console", d.LogConsole)
	v.SetDefault("state-path", d.StatePath)
	v.SetDefault("netns-dir", d.NetnsDir)
	v.SetDefault("firewall-backend", d.FirewallBackend)
	v.SetDefault("container-runtime", d.ContainerRuntime)
	v.SetDefault("probe-address", d.ProbeAddress)
	v.SetDefault("lock-timeout", d.LockTimeout)
	v.SetDefault("move-confirm-attempts", d.MoveConfirmAttempts)
	v.SetDefault("move-confirm-delay", d.MoveConfirmDelay)
}
