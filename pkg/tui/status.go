package tui

import (
	"fmt"
	"strings"

	"peakmeter/pkg/render"
	"peakmeter/pkg/telemetry"
	"peakmeter/pkg/utils"
)

// formatStatus renders the status line shown under the meters.
func formatStatus(snap telemetry.Snapshot, state render.State, xruns int) string {
	var b strings.Builder

	stateColor := "green"
	switch snap.TransportState {
	case "connecting":
		stateColor = "yellow"
	case "stopped", "idle":
		stateColor = "gray"
	}
	fmt.Fprintf(&b, "[::b]%s[::-] [%s]%s[-] | meter %s", snap.Transport, stateColor, snap.TransportState, state)
	fmt.Fprintf(&b, " | snapshots %s (%.1f/s)", utils.FormatNumber(snap.SnapshotsReceived), snap.SnapshotsPerSecond)
	if snap.RequestsCompleted > 0 {
		fmt.Fprintf(&b, " | latency avg %.1fms p95 %.1fms", snap.AvgLatencyMs, snap.P95LatencyMs)
	}
	fmt.Fprintf(&b, " | cleared %s closed %s", utils.FormatNumber(snap.ClearedTotal), utils.FormatNumber(snap.ClosedTotal))
	if xruns >= 0 {
		fmt.Fprintf(&b, " | xruns %d", xruns)
	}
	if snap.ErrorsTotal > 0 {
		fmt.Fprintf(&b, " | [red]errors %s[-] (%s)", utils.FormatNumber(snap.ErrorsTotal), utils.FormatErrorBreakdown(snap.ErrorsByContext))
	}
	fmt.Fprintf(&b, " | up %s", utils.FormatUptime(snap.UptimeSeconds))
	if snap.LastCloseCause != "" && snap.TransportState == "stopped" {
		fmt.Fprintf(&b, "\n[gray]last close: %s[-]", tviewEscape(snap.LastCloseCause))
	}
	return b.String()
}

// tviewEscape keeps server-supplied text from being read as colour tags.
func tviewEscape(s string) string {
	return strings.ReplaceAll(s, "[", "[[")
}
