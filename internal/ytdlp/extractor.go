// Package ytdlp extracts captions by running yt-dlp as a subprocess.
//
// Each extraction writes into its own scratch directory under the configured
// scratch root; the directory is removed when Extract returns, on success and
// failure alike.
package ytdlp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"lingocast/internal/logging"
	"lingocast/internal/services"
	"lingocast/internal/transcript"
)

const (
	defaultBinary  = "yt-dlp"
	defaultTimeout = 30 * time.Second
	watchURLPrefix = "https://www.youtube.com/watch?v="
)

// subtitleExtensions is the fixed lookup order for produced files: plain
// names first, then language-qualified names.
var subtitleExtensions = []string{".vtt", ".srt", ".json3"}

// CommandRunner executes an external command.
type CommandRunner func(ctx context.Context, name string, args ...string) error

// Config describes the extractor.
type Config struct {
	Binary     string
	ScratchDir string
	Timeout    time.Duration
	Logger     *slog.Logger
	Runner     CommandRunner
}

// Extractor runs yt-dlp to fetch subtitle files.
type Extractor struct {
	binary     string
	scratchDir string
	timeout    time.Duration
	logger     *slog.Logger
	run        CommandRunner
}

// New constructs an Extractor, filling defaults for unset fields.
func New(cfg Config) *Extractor {
	binary := strings.TrimSpace(cfg.Binary)
	if binary == "" {
		binary = defaultBinary
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	scratch := strings.TrimSpace(cfg.ScratchDir)
	if scratch == "" {
		scratch = os.TempDir()
	}
	runner := cfg.Runner
	if runner == nil {
		runner = defaultCommandRunner
	}
	return &Extractor{
		binary:     binary,
		scratchDir: scratch,
		timeout:    timeout,
		logger:     logging.NewComponentLogger(cfg.Logger, "ytdlp"),
		run:        runner,
	}
}

// Binary returns the executable name invoked by the extractor.
func (e *Extractor) Binary() string {
	return e.binary
}

// Extract downloads subtitles for videoID in lang and parses them.
func (e *Extractor) Extract(ctx context.Context, videoID, lang string) ([]transcript.Entry, error) {
	if e == nil {
		return nil, services.Wrap(services.ErrConfiguration, "ytdlp", "extract", "extractor not configured", nil)
	}
	lang = strings.TrimSpace(lang)
	if lang == "" {
		lang = "en"
	}
	if err := os.MkdirAll(e.scratchDir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "ytdlp", "scratch", "create scratch root", err)
	}
	workDir, err := os.MkdirTemp(e.scratchDir, "ytdlp-"+videoID+"-")
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "ytdlp", "scratch", "create work dir", err)
	}
	defer func() {
		if rmErr := os.RemoveAll(workDir); rmErr != nil {
			e.logger.Warn("scratch cleanup failed", logging.String("path", workDir), logging.Error(rmErr))
		}
	}()

	runCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	args := []string{
		"--skip-download",
		"--write-subs",
		"--write-auto-subs",
		"--sub-langs", lang,
		"--sub-format", "vtt/srt/json3",
		"--no-progress",
		"-o", filepath.Join(workDir, videoID+".%(ext)s"),
		watchURLPrefix + videoID,
	}
	started := time.Now()
	if err := e.run(runCtx, e.binary, args...); err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return nil, services.Wrap(services.ErrTimeout, "ytdlp", "run", fmt.Sprintf("exceeded %s", e.timeout), err)
		}
		return nil, services.Wrap(services.ErrExternalTool, "ytdlp", "run", "", err)
	}

	path, data, err := locateSubtitle(workDir, videoID, lang)
	if err != nil {
		return nil, err
	}
	entries, err := transcript.Parse(data, transcript.DetectFormat(data, path))
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, services.Wrap(services.ErrParse, "ytdlp", "parse", "subtitle file has no cues", nil)
	}
	e.logger.Debug("extracted captions",
		logging.String(logging.FieldVideoID, videoID),
		logging.String(logging.FieldLanguage, lang),
		logging.String("file", filepath.Base(path)),
		logging.Int("entries", len(entries)),
		logging.Duration("elapsed", time.Since(started)),
	)
	return entries, nil
}

// CandidateNames lists the file names probed after a run, in order.
func CandidateNames(videoID, lang string) []string {
	names := make([]string, 0, len(subtitleExtensions)*2)
	for _, ext := range subtitleExtensions {
		names = append(names, videoID+ext)
	}
	for _, ext := range subtitleExtensions {
		names = append(names, videoID+"."+lang+ext)
	}
	return names
}

func locateSubtitle(dir, videoID, lang string) (string, []byte, error) {
	for _, name := range CandidateNames(videoID, lang) {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err == nil {
			return path, data, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", nil, services.Wrap(services.ErrExternalTool, "ytdlp", "read", name, err)
		}
	}
	return "", nil, services.Wrap(services.ErrNotFound, "ytdlp", "locate", fmt.Sprintf("no subtitle file for %s (%s)", videoID, lang), nil)
}

func defaultCommandRunner(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	var stderr strings.Builder
	cmd.Stdout = io.Discard
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}
	return nil
}
