package config

import (
	"log"
	"time"
)

// ServerConfig configures the snapshot relay.
type ServerConfig struct {
	ListenAddr      string
	PeaksFile       string
	DefaultChannels int
	PushIntervalMs  int
	PollPath        string
	PushPath        string
}

func (s ServerConfig) PushInterval() time.Duration {
	return time.Duration(s.PushIntervalMs) * time.Millisecond
}

// LoadServer loads the relay configuration with the same precedence as Load.
func LoadServer(args []string) (*ServerConfig, error) {
	flagSource, configFile, showHelp, err := parseServerFlags(args)
	if err != nil {
		return nil, err
	}
	if showHelp {
		printServerUsage()
		return nil, nil
	}

	fileSource, err := NewFileSource(configFile, "peakserve")
	if err != nil {
		return nil, err
	}
	if used := fileSource.Used(); used != "" {
		log.Printf("Using config file: %s", used)
	}

	resolver := NewConfigResolver(flagSource, &EnvSource{}, fileSource)
	cfg := &ServerConfig{
		ListenAddr:      resolver.ResolveString(KeyListenAddr, DefaultListenAddr),
		PeaksFile:       resolver.ResolveString(KeyPeaksFile, DefaultPeaksFile),
		DefaultChannels: resolver.ResolveInt(KeyDefaultChannels, DefaultDefaultChannels),
		PushIntervalMs:  resolver.ResolveInt(KeyPushIntervalMs, DefaultPushIntervalMs),
		PollPath:        resolver.ResolveString(KeyPollPath, DefaultPollPath),
		PushPath:        resolver.ResolveString(KeyPushPath, DefaultPushPath),
	}
	if err := resolver.Err(); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
