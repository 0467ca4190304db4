package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrInvalidConfig is matched by every UserError.
var ErrInvalidConfig = errors.New("invalid configuration")

// UserError reports a configuration value that cannot be used.
type UserError struct {
	Key    string
	Reason string
}

func (e *UserError) Error() string {
	return fmt.Sprintf("%s %s", e.Key, e.Reason)
}

func (e *UserError) Is(target error) bool { return target == ErrInvalidConfig }

func (c *Config) validate() error {
	if c.Display.ChannelCount <= 0 {
		return &UserError{Key: KeyChannelCount, Reason: fmt.Sprintf("must be greater than 0, got %d", c.Display.ChannelCount)}
	}
	if c.Display.MaxChannels < c.Display.ChannelCount {
		return &UserError{Key: KeyMaxChannels, Reason: fmt.Sprintf("must be at least %s (%d), got %d",
			KeyChannelCount, c.Display.ChannelCount, c.Display.MaxChannels)}
	}
	if c.Network.PollIntervalMs <= 0 {
		return &UserError{Key: KeyPollIntervalMs, Reason: "must be greater than 0"}
	}
	if c.Network.RetryDelayMs <= 0 {
		return &UserError{Key: KeyRetryDelayMs, Reason: "must be greater than 0"}
	}
	if c.Network.RequestTimeoutMs <= 0 {
		return &UserError{Key: KeyRequestTimeoutMs, Reason: "must be greater than 0"}
	}
	if c.Network.DialTimeoutMs <= 0 {
		return &UserError{Key: KeyDialTimeoutMs, Reason: "must be greater than 0"}
	}

	if c.EndpointURL == "" {
		return &UserError{Key: KeyEndpointURL, Reason: "is required"}
	}
	u, err := url.Parse(c.EndpointURL)
	if err != nil || u.Host == "" {
		return &UserError{Key: KeyEndpointURL, Reason: fmt.Sprintf("is not an absolute URL: %q", c.EndpointURL)}
	}
	scheme := strings.ToLower(u.Scheme)

	switch c.Transport {
	case TransportPoll:
		if scheme != "http" && scheme != "https" {
			return &UserError{Key: KeyEndpointURL, Reason: fmt.Sprintf("must use http or https for poll transport, got %q", u.Scheme)}
		}
	case TransportPush:
		if scheme != "ws" && scheme != "wss" {
			return &UserError{Key: KeyEndpointURL, Reason: fmt.Sprintf("must use ws or wss for push transport, got %q", u.Scheme)}
		}
	default:
		return &UserError{Key: KeyTransport, Reason: fmt.Sprintf("must be %q or %q, got %q", TransportPoll, TransportPush, c.Transport)}
	}
	return nil
}

func (s *ServerConfig) validate() error {
	if s.ListenAddr == "" {
		return &UserError{Key: KeyListenAddr, Reason: "is required"}
	}
	if s.PeaksFile == "" {
		return &UserError{Key: KeyPeaksFile, Reason: "is required"}
	}
	if s.DefaultChannels < 0 {
		return &UserError{Key: KeyDefaultChannels, Reason: "must not be negative"}
	}
	if s.PushIntervalMs <= 0 {
		return &UserError{Key: KeyPushIntervalMs, Reason: "must be greater than 0"}
	}
	if !strings.HasPrefix(s.PollPath, "/") {
		return &UserError{Key: KeyPollPath, Reason: fmt.Sprintf("must start with /, got %q", s.PollPath)}
	}
	if !strings.HasPrefix(s.PushPath, "/") {
		return &UserError{Key: KeyPushPath, Reason: fmt.Sprintf("must start with /, got %q", s.PushPath)}
	}
	if s.PollPath == s.PushPath {
		return &UserError{Key: KeyPushPath, Reason: "must differ from the poll path"}
	}
	return nil
}
