package config

import (
	"flag"
	"fmt"
	"io"
)

// parseCLIFlags parses client flags and returns a FlagSource, the config file
// path and the help flag
func parseCLIFlags(args []string) (*FlagSource, string, bool, error) {
	flagSource := NewFlagSource()
	fs := flag.NewFlagSet("peakmon", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	endpointURL := fs.String(FlagEndpointURL, "", HelpEndpointURL)
	transport := fs.String(FlagTransport, "", HelpTransport)
	channelCount := fs.Int(FlagChannelCount, 0, HelpChannelCount)
	maxChannels := fs.Int(FlagMaxChannels, 0, HelpMaxChannels)
	pollIntervalMs := fs.Int(FlagPollIntervalMs, 0, HelpPollIntervalMs)
	retryDelayMs := fs.Int(FlagRetryDelayMs, 0, HelpRetryDelayMs)
	requestTimeoutMs := fs.Int(FlagRequestTimeoutMs, 0, HelpRequestTimeoutMs)
	dialTimeoutMs := fs.Int(FlagDialTimeoutMs, 0, HelpDialTimeoutMs)
	quiet := fs.Bool(FlagQuiet, false, HelpQuiet)
	configFile := fs.String(FlagConfigFile, "", HelpConfigFile)
	help := fs.Bool(FlagHelp, false, HelpShowHelp)

	if err := fs.Parse(args); err != nil {
		return nil, "", false, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if *help {
		return flagSource, *configFile, true, nil
	}

	// Store non-zero/non-empty values in flag source
	if *endpointURL != "" {
		flagSource.Set(KeyEndpointURL, *endpointURL)
	}
	if *transport != "" {
		flagSource.Set(KeyTransport, *transport)
	}
	if *channelCount != 0 {
		flagSource.Set(KeyChannelCount, *channelCount)
	}
	if *maxChannels != 0 {
		flagSource.Set(KeyMaxChannels, *maxChannels)
	}
	if *pollIntervalMs != 0 {
		flagSource.Set(KeyPollIntervalMs, *pollIntervalMs)
	}
	if *retryDelayMs != 0 {
		flagSource.Set(KeyRetryDelayMs, *retryDelayMs)
	}
	if *requestTimeoutMs != 0 {
		flagSource.Set(KeyRequestTimeoutMs, *requestTimeoutMs)
	}
	if *dialTimeoutMs != 0 {
		flagSource.Set(KeyDialTimeoutMs, *dialTimeoutMs)
	}
	if *quiet {
		flagSource.Set(KeyQuiet, true)
	}

	return flagSource, *configFile, false, nil
}

// parseServerFlags parses relay flags
func parseServerFlags(args []string) (*FlagSource, string, bool, error) {
	flagSource := NewFlagSource()
	fs := flag.NewFlagSet("peakserve", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	listenAddr := fs.String(FlagListenAddr, "", HelpListenAddr)
	peaksFile := fs.String(FlagPeaksFile, "", HelpPeaksFile)
	defaultChannels := fs.Int(FlagDefaultChannels, 0, HelpDefaultChannels)
	pushIntervalMs := fs.Int(FlagPushIntervalMs, 0, HelpPushIntervalMs)
	pollPath := fs.String(FlagPollPath, "", HelpPollPath)
	pushPath := fs.String(FlagPushPath, "", HelpPushPath)
	configFile := fs.String(FlagConfigFile, "", HelpConfigFile)
	help := fs.Bool(FlagHelp, false, HelpShowHelp)

	if err := fs.Parse(args); err != nil {
		return nil, "", false, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if *help {
		return flagSource, *configFile, true, nil
	}

	if *listenAddr != "" {
		flagSource.Set(KeyListenAddr, *listenAddr)
	}
	if *peaksFile != "" {
		flagSource.Set(KeyPeaksFile, *peaksFile)
	}
	if *defaultChannels != 0 {
		flagSource.Set(KeyDefaultChannels, *defaultChannels)
	}
	if *pushIntervalMs != 0 {
		flagSource.Set(KeyPushIntervalMs, *pushIntervalMs)
	}
	if *pollPath != "" {
		flagSource.Set(KeyPollPath, *pollPath)
	}
	if *pushPath != "" {
		flagSource.Set(KeyPushPath, *pushPath)
	}

	return flagSource, *configFile, false, nil
}

// printUsage prints the client usage message
func printUsage() {
	fmt.Printf("%s - %s\n", AppName, AppDescription)
	fmt.Println()
	fmt.Printf("%s\n", HelpUsage)
	fmt.Printf("  %s\n", UsageFormat)
	fmt.Println()
	fmt.Printf("%s\n", HelpOptions)
	fmt.Printf("  --%-22s %s\n", FlagEndpointURL+" string", HelpEndpointURL)
	fmt.Printf("  --%-22s %s (default: %s)\n", FlagTransport+" string", HelpTransport, DefaultTransport)
	fmt.Printf("  --%-22s %s (default: %d)\n", FlagChannelCount+" int", HelpChannelCount, DefaultChannelCount)
	fmt.Printf("  --%-22s %s\n", FlagMaxChannels+" int", HelpMaxChannels)
	fmt.Printf("  --%-22s %s (default: %d)\n", FlagPollIntervalMs+" int", HelpPollIntervalMs, DefaultPollIntervalMs)
	fmt.Printf("  --%-22s %s (default: %d)\n", FlagRetryDelayMs+" int", HelpRetryDelayMs, DefaultRetryDelayMs)
	fmt.Printf("  --%-22s %s (default: %d)\n", FlagRequestTimeoutMs+" int", HelpRequestTimeoutMs, DefaultRequestTimeoutMs)
	fmt.Printf("  --%-22s %s (default: %d)\n", FlagDialTimeoutMs+" int", HelpDialTimeoutMs, DefaultDialTimeoutMs)
	fmt.Printf("  --%-22s %s\n", FlagQuiet, HelpQuiet)
	fmt.Printf("  --%-22s %s\n", FlagConfigFile+" string", HelpConfigFile)
	fmt.Printf("  --%-22s %s\n", FlagHelp, HelpShowHelp)
	fmt.Println()
	fmt.Printf("%s\n", HelpEnvironmentVars)
	for _, key := range []string{
		KeyEndpointURL, KeyTransport, KeyChannelCount, KeyMaxChannels, KeyPollIntervalMs,
		KeyRetryDelayMs, KeyRequestTimeoutMs, KeyDialTimeoutMs, KeyQuiet,
	} {
		fmt.Printf("  %s\n", key)
	}
	fmt.Println()
	fmt.Printf("%s\n", HelpNote)
}

// printServerUsage prints the relay usage message
func printServerUsage() {
	fmt.Printf("%s - %s\n", ServerAppName, ServerAppDescription)
	fmt.Println()
	fmt.Printf("%s\n", HelpUsage)
	fmt.Printf("  %s\n", ServerUsageFormat)
	fmt.Println()
	fmt.Printf("%s\n", HelpOptions)
	fmt.Printf("  --%-22s %s (default: %s)\n", FlagListenAddr+" string", HelpListenAddr, DefaultListenAddr)
	fmt.Printf("  --%-22s %s (default: %s)\n", FlagPeaksFile+" string", HelpPeaksFile, DefaultPeaksFile)
	fmt.Printf("  --%-22s %s (default: %d)\n", FlagDefaultChannels+" int", HelpDefaultChannels, DefaultDefaultChannels)
	fmt.Printf("  --%-22s %s (default: %d)\n", FlagPushIntervalMs+" int", HelpPushIntervalMs, DefaultPushIntervalMs)
	fmt.Printf("  --%-22s %s (default: %s)\n", FlagPollPath+" string", HelpPollPath, DefaultPollPath)
	fmt.Printf("  --%-22s %s (default: %s)\n", FlagPushPath+" string", HelpPushPath, DefaultPushPath)
	fmt.Printf("  --%-22s %s\n", FlagConfigFile+" string", HelpConfigFile)
	fmt.Printf("  --%-22s %s\n", FlagHelp, HelpShowHelp)
	fmt.Println()
	fmt.Printf("%s\n", HelpEnvironmentVars)
	for _, key := range []string{
		KeyListenAddr, KeyPeaksFile, KeyDefaultChannels, KeyPushIntervalMs, KeyPollPath, KeyPushPath,
	} {
		fmt.Printf("  %s\n", key)
	}
	fmt.Println()
	fmt.Printf("%s\n", HelpNote)
}
