package config

// Configuration key constants
// These constants centralize all environment variable and configuration key names
// to eliminate magic strings and improve maintainability.

const (
	// Client configuration keys
	KeyEndpointURL      = "PEAKMON_ENDPOINT_URL"
	KeyTransport        = "PEAKMON_TRANSPORT"
	KeyChannelCount     = "PEAKMON_CHANNEL_COUNT"
	KeyMaxChannels      = "PEAKMON_MAX_CHANNELS"
	KeyPollIntervalMs   = "PEAKMON_POLL_INTERVAL_MS"
	KeyRetryDelayMs     = "PEAKMON_RETRY_DELAY_MS"
	KeyRequestTimeoutMs = "PEAKMON_REQUEST_TIMEOUT_MS"
	KeyDialTimeoutMs    = "PEAKMON_DIAL_TIMEOUT_MS"
	KeyQuiet            = "PEAKMON_QUIET"

	// Relay server configuration keys
	KeyListenAddr      = "PEAKSERVE_LISTEN_ADDR"
	KeyPeaksFile       = "PEAKSERVE_PEAKS_FILE"
	KeyDefaultChannels = "PEAKSERVE_DEFAULT_CHANNELS"
	KeyPushIntervalMs  = "PEAKSERVE_PUSH_INTERVAL_MS"
	KeyPollPath        = "PEAKSERVE_POLL_PATH"
	KeyPushPath        = "PEAKSERVE_PUSH_PATH"
)

// Transport names
const (
	TransportPoll = "poll"
	TransportPush = "push"
)

// Default values for configuration
const (
	DefaultTransport        = TransportPoll
	DefaultChannelCount     = 8
	DefaultPollIntervalMs   = 100
	DefaultRetryDelayMs     = 100
	DefaultRequestTimeoutMs = 2000
	DefaultDialTimeoutMs    = 5000

	DefaultListenAddr      = ":8000"
	DefaultPeaksFile       = "/tmp/peaks.json"
	DefaultDefaultChannels = 8
	DefaultPushIntervalMs  = 100
	DefaultPollPath        = "/meterpeak"
	DefaultPushPath        = "/ws"
)

// CLI flag name constants
const (
	FlagEndpointURL      = "endpoint-url"
	FlagTransport        = "transport"
	FlagChannelCount     = "channels"
	FlagMaxChannels      = "max-channels"
	FlagPollIntervalMs   = "poll-interval-ms"
	FlagRetryDelayMs     = "retry-delay-ms"
	FlagRequestTimeoutMs = "request-timeout-ms"
	FlagDialTimeoutMs    = "dial-timeout-ms"
	FlagQuiet            = "quiet"

	FlagListenAddr      = "listen"
	FlagPeaksFile       = "peaks-file"
	FlagDefaultChannels = "default-channels"
	FlagPushIntervalMs  = "push-interval-ms"
	FlagPollPath        = "poll-path"
	FlagPushPath        = "push-path"

	FlagConfigFile = "config"
	FlagHelp       = "help"
)

// Help message constants
const (
	AppName        = "Peak Monitor"
	AppDescription = "Live multichannel audio peak meters"
	UsageFormat    = "peakmon [OPTIONS]"

	ServerAppName        = "Peak Relay"
	ServerAppDescription = "Serve peak snapshots for polling and push clients"
	ServerUsageFormat    = "peakserve [OPTIONS]"

	HelpEndpointURL      = "Snapshot endpoint URL, http(s) for poll, ws(s) for push (required)"
	HelpTransport        = "Transport: poll or push"
	HelpChannelCount     = "Number of meter channels"
	HelpMaxChannels      = "Upper channel bound cleared on reset (default: channels)"
	HelpPollIntervalMs   = "Poll interval in milliseconds"
	HelpRetryDelayMs     = "Delay before retrying a failed poll in milliseconds"
	HelpRequestTimeoutMs = "Poll request timeout in milliseconds"
	HelpDialTimeoutMs    = "Push connection timeout in milliseconds"
	HelpQuiet            = "Log status lines instead of drawing meters"

	HelpListenAddr      = "Listen address"
	HelpPeaksFile       = "Producer peaks file"
	HelpDefaultChannels = "Channels in the snapshot served when the peaks file is missing"
	HelpPushIntervalMs  = "Peaks file re-read interval in milliseconds"
	HelpPollPath        = "Poll endpoint path"
	HelpPushPath        = "Push endpoint path"

	HelpConfigFile = "Path to a YAML config file"
	HelpShowHelp   = "Show this help message"

	// Help section headers
	HelpOptions         = "Options:"
	HelpEnvironmentVars = "Environment Variables:"
	HelpUsage           = "Usage:"
	HelpNote            = "Note: CLI options override environment variables, which override the config file"
)
