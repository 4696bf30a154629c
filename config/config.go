package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"washika-dao/models"
)

type ctxKey string

const configContextKey ctxKey = "washika.config"

// DefaultConfigFile is read when no --config flag is given and the file exists
const DefaultConfigFile = "config/config.yaml"

// EnvPrefix prefixes environment overrides, e.g. WASHIKA_SERVER_PORT
const EnvPrefix = "WASHIKA"

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Log        LogConfig        `mapstructure:"log"`
	LevelDB    LevelDBConfig    `mapstructure:"leveldb"`
	Governance GovernanceConfig `mapstructure:"governance"`
	Timelock   TimelockConfig   `mapstructure:"timelock"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type LogConfig struct {
	AppLogFile string `mapstructure:"app_log_file"`
	Level      string `mapstructure:"level"`
}

type LevelDBConfig struct {
	Path string `mapstructure:"path"`
}

// GovernanceConfig holds the genesis settings. They only take effect on an
// empty store; afterwards parameters change through the authority.
type GovernanceConfig struct {
	Authority         string `mapstructure:"authority"`
	VotingDelay       uint64 `mapstructure:"voting_delay"`
	VotingPeriod      uint64 `mapstructure:"voting_period"`
	ProposalThreshold uint64 `mapstructure:"proposal_threshold"`
	QuorumVotes       uint64 `mapstructure:"quorum_votes"`
}

type TimelockConfig struct {
	Principal   string `mapstructure:"principal"`
	Delay       uint64 `mapstructure:"delay"`
	GracePeriod uint64 `mapstructure:"grace_period"`
}

// Params converts the genesis governance settings
func (g GovernanceConfig) Params() models.Params {
	return models.Params{
		VotingDelay:       g.VotingDelay,
		VotingPeriod:      g.VotingPeriod,
		ProposalThreshold: g.ProposalThreshold,
		QuorumVotes:       g.QuorumVotes,
	}
}

func setDefaults(v *viper.Viper) {
	params := models.DefaultParams()
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.app_log_file", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("leveldb.path", "data/washika")
	v.SetDefault("governance.authority", "")
	v.SetDefault("governance.voting_delay", params.VotingDelay)
	v.SetDefault("governance.voting_period", params.VotingPeriod)
	v.SetDefault("governance.proposal_threshold", params.ProposalThreshold)
	v.SetDefault("governance.quorum_votes", params.QuorumVotes)
	v.SetDefault("timelock.principal", "washika-timelock")
	v.SetDefault("timelock.delay", 144)
	v.SetDefault("timelock.grace_period", 2016)
}

// Load reads configFile (or DefaultConfigFile when it exists), then applies
// WASHIKA_* environment overrides. A .env file in the working directory is
// loaded into the environment first.
func Load(configFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile == "" {
		if _, err := os.Stat(DefaultConfigFile); err == nil {
			configFile = DefaultConfigFile
		}
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", c.Server.Port)
	}
	if c.LevelDB.Path == "" {
		return errors.New("leveldb.path is required")
	}
	if a := models.Principal(c.Governance.Authority); a != models.NoDelegate && !a.Valid() {
		return fmt.Errorf("invalid governance.authority %q", c.Governance.Authority)
	}
	if !models.Principal(c.Timelock.Principal).Valid() {
		return fmt.Errorf("invalid timelock.principal %q", c.Timelock.Principal)
	}
	return nil
}

func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configContextKey, cfg)
}

func FromContext(ctx context.Context) *Config {
	cfg, ok := ctx.Value(configContextKey).(*Config)
	if !ok {
		return nil
	}
	return cfg
}
