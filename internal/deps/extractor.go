package deps

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

const versionProbeTimeout = 5 * time.Second

// CheckExtractor reports whether the yt-dlp binary resolves and, when it
// answers --version, which release is installed. A binary that resolves but
// fails the probe is still reported available with the failure as detail.
func CheckExtractor(ctx context.Context, binary string) Status {
	result := CheckBinaries([]Requirement{{
		Name:        "yt-dlp",
		Command:     binary,
		Description: "Subtitle download fallback when every caption source fails",
		Optional:    true,
	}})[0]
	if !result.Available {
		return result
	}
	probeCtx, cancel := context.WithTimeout(ctx, versionProbeTimeout)
	defer cancel()
	output, err := exec.CommandContext(probeCtx, result.Path, "--version").Output() //nolint:gosec
	if err != nil {
		result.Detail = fmt.Sprintf("version probe failed: %v", err)
		return result
	}
	result.Version = firstLine(string(output))
	return result
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return strings.TrimSpace(s[:idx])
	}
	return s
}
