package config

import (
	"log"
	"time"
)

type Config struct {
	EndpointURL string
	Transport   string
	Quiet       bool
	Display     DisplayConfig
	Network     NetworkConfig
}

type DisplayConfig struct {
	ChannelCount int
	// MaxChannels bounds the channels cleared on reset. It may exceed
	// ChannelCount; missing channels are skipped.
	MaxChannels int
}

type NetworkConfig struct {
	PollIntervalMs   int
	RetryDelayMs     int
	RequestTimeoutMs int
	DialTimeoutMs    int
}

func (n NetworkConfig) PollInterval() time.Duration {
	return time.Duration(n.PollIntervalMs) * time.Millisecond
}

func (n NetworkConfig) RetryDelay() time.Duration {
	return time.Duration(n.RetryDelayMs) * time.Millisecond
}

func (n NetworkConfig) RequestTimeout() time.Duration {
	return time.Duration(n.RequestTimeoutMs) * time.Millisecond
}

func (n NetworkConfig) DialTimeout() time.Duration {
	return time.Duration(n.DialTimeoutMs) * time.Millisecond
}

// Load loads configuration from CLI flags, environment variables and an
// optional config file, in that order of precedence.
func Load(args []string) (*Config, error) {
	flagSource, configFile, showHelp, err := parseCLIFlags(args)
	if err != nil {
		return nil, err
	}
	if showHelp {
		printUsage()
		return nil, nil // Return nil to indicate help was shown
	}

	fileSource, err := NewFileSource(configFile, "peakmeter")
	if err != nil {
		return nil, err
	}
	if used := fileSource.Used(); used != "" {
		log.Printf("Using config file: %s", used)
	}

	resolver := NewConfigResolver(flagSource, &EnvSource{}, fileSource)
	cfg := resolve(resolver)
	if err := resolver.Err(); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func resolve(resolver *ConfigResolver) *Config {
	channels := resolver.ResolveInt(KeyChannelCount, DefaultChannelCount)
	return &Config{
		EndpointURL: resolver.ResolveString(KeyEndpointURL, ""),
		Transport:   resolver.ResolveString(KeyTransport, DefaultTransport),
		Quiet:       resolver.ResolveBool(KeyQuiet, false),
		Display: DisplayConfig{
			ChannelCount: channels,
			MaxChannels:  resolver.ResolveInt(KeyMaxChannels, channels),
		},
		Network: NetworkConfig{
			PollIntervalMs:   resolver.ResolveInt(KeyPollIntervalMs, DefaultPollIntervalMs),
			RetryDelayMs:     resolver.ResolveInt(KeyRetryDelayMs, DefaultRetryDelayMs),
			RequestTimeoutMs: resolver.ResolveInt(KeyRequestTimeoutMs, DefaultRequestTimeoutMs),
			DialTimeoutMs:    resolver.ResolveInt(KeyDialTimeoutMs, DefaultDialTimeoutMs),
		},
	}
}
