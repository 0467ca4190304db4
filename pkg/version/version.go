package version

import "fmt"

// Set at build time with -ldflags "-X peakmeter/pkg/version.Version=...".
var (
	Version = "dev"
	Commit  = "none"
	Built   = "unknown"
)

type BuildInfo struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Built   string `json:"built"`
}

func Info() BuildInfo {
	return BuildInfo{Version: Version, Commit: Commit, Built: Built}
}

// Line formats the build info for a --version flag.
func Line(program string) string {
	info := Info()
	return fmt.Sprintf("%s version %s, commit %s, built %s", program, info.Version, info.Commit, info.Built)
}
