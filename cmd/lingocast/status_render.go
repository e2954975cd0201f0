package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"lingocast/internal/deps"
	"lingocast/internal/preflight"
)

type health int

const (
	healthInfo health = iota
	healthUp
	healthDegraded
	healthDown
)

func (h health) tag() string {
	switch h {
	case healthUp:
		return "OK"
	case healthDegraded:
		return "WARN"
	case healthDown:
		return "ERROR"
	default:
		return "INFO"
	}
}

func (h health) color() string {
	switch h {
	case healthUp:
		return "\x1b[32m"
	case healthDegraded:
		return "\x1b[33m"
	case healthDown:
		return "\x1b[31m"
	default:
		return "\x1b[34m"
	}
}

const (
	ansiReset       = "\x1b[0m"
	statusLabelWide = 28
)

// statusPrinter writes the sectioned report behind `lingocast status`.
type statusPrinter struct {
	out      io.Writer
	colorize bool
	sections int
}

func newStatusPrinter(out io.Writer) *statusPrinter {
	return &statusPrinter{out: out, colorize: shouldColorize(out)}
}

func (p *statusPrinter) section(title string) {
	if p.sections > 0 {
		fmt.Fprintln(p.out)
	}
	p.sections++
	header := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	rule := strings.Repeat("-", len(header))
	if p.colorize {
		header = healthInfo.color() + header + ansiReset
		rule = healthInfo.color() + rule + ansiReset
	}
	fmt.Fprintln(p.out, header)
	fmt.Fprintln(p.out, rule)
}

func (p *statusPrinter) line(label string, h health, detail string) {
	fmt.Fprintln(p.out, formatStatusLine(label, h, detail, p.colorize))
}

// check prints a preflight result. Failed source probes are reported as
// degraded because failover can still reach another instance.
func (p *statusPrinter) check(result preflight.Result) {
	h := healthUp
	if !result.Passed {
		h = healthDown
		if isSourceCheck(result) {
			h = healthDegraded
		}
	}
	p.line(result.Name, h, result.Detail)
}

func (p *statusPrinter) dependency(dep deps.Status) {
	if dep.Available {
		detail := dep.Path
		if dep.Version != "" {
			detail = fmt.Sprintf("%s (%s)", dep.Path, dep.Version)
		}
		p.line(dep.Name, healthUp, detail)
		return
	}
	h := healthDown
	if dep.Optional {
		h = healthDegraded
	}
	p.line(dep.Name, h, dep.Detail)
}

func formatStatusLine(label string, h health, detail string, colorize bool) string {
	text := "[" + h.tag() + "]"
	if detail != "" {
		text += " " + detail
	}
	line := fmt.Sprintf("  %-*s %s", statusLabelWide, label+":", text)
	if colorize {
		return h.color() + line + ansiReset
	}
	return line
}

func isSourceCheck(result preflight.Result) bool {
	return strings.HasPrefix(result.Name, "Source")
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
