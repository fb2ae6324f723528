package converter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"docstore/internal/models"
)

const (
	// DefaultBinary is looked up on PATH when SOfficeOptions.Binary is unset.
	DefaultBinary = "soffice"
	// DefaultTimeout bounds one conversion process.
	DefaultTimeout = 2 * time.Minute
	// DefaultMaxProcesses caps concurrent soffice processes.
	DefaultMaxProcesses = 2

	stderrLimit = 2048
	waitDelay   = 5 * time.Second
	inputBase   = "input"
)

// Document families the office suite imports, each exportable to pdf.
var sofficeFamilies = map[string][]string{
	"text":         {"odt", "doc", "docx", "rtf", "txt", "html"},
	"spreadsheet":  {"ods", "xls", "xlsx"},
	"presentation": {"odp", "ppt", "pptx"},
}

// SOfficeOptions configures the office-suite converter.
type SOfficeOptions struct {
	Binary       string
	Timeout      time.Duration
	MaxProcesses int
	// ScratchDir holds per-call working directories; empty means os.TempDir.
	ScratchDir string
	Logger     *slog.Logger
}

// SOffice converts documents with a headless LibreOffice/OpenOffice process.
type SOffice struct {
	binary     string
	timeout    time.Duration
	scratchDir string
	sem        chan struct{}
	pairs      map[Pair]bool
	logger     *slog.Logger
}

// NewSOffice builds the converter. Each call spawns one process with its own
// user profile so concurrent calls do not contend on a profile lock.
func NewSOffice(opts SOfficeOptions) *SOffice {
	if opts.Binary == "" {
		opts.Binary = DefaultBinary
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxProcesses <= 0 {
		opts.MaxProcesses = DefaultMaxProcesses
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	pairs := map[Pair]bool{}
	for _, exts := range sofficeFamilies {
		for _, ext := range exts {
			pairs[newPair(ext, models.ExtPDF)] = true
		}
	}

	return &SOffice{
		binary:     opts.Binary,
		timeout:    opts.Timeout,
		scratchDir: opts.ScratchDir,
		sem:        make(chan struct{}, opts.MaxProcesses),
		pairs:      pairs,
		logger:     opts.Logger.With("component", "soffice"),
	}
}

// Available reports whether the configured binary can be found.
func (s *SOffice) Available() bool {
	_, err := exec.LookPath(s.binary)
	return err == nil
}

func (s *SOffice) Supports(source, target string) bool {
	return s.pairs[newPair(source, target)]
}

func (s *SOffice) Convert(ctx context.Context, in io.Reader, out io.Writer, source, target string) error {
	if !s.Supports(source, target) {
		return unsupported(source, target)
	}
	source = models.NormalizeExtension(source)
	target = models.NormalizeExtension(target)

	select {
	case s.sem <- struct{}{}:
		defer func() { <-s.sem }()
	case <-ctx.Done():
		return &ConversionError{Source: source, Target: target, Reason: "waiting for converter slot", Err: ctx.Err()}
	}

	workDir, err := os.MkdirTemp(s.scratchDir, "convert-")
	if err != nil {
		return fmt.Errorf("create scratch dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	inputPath := filepath.Join(workDir, inputBase+"."+source)
	if err := spoolInput(inputPath, in); err != nil {
		return err
	}
	outDir := filepath.Join(workDir, "out")
	profileDir := filepath.Join(workDir, "profile")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	profileURL := url.URL{Scheme: "file", Path: profileDir}
	cmd := exec.CommandContext(runCtx, s.binary,
		"--headless", "--norestore", "--nolockcheck", "--nodefault",
		"-env:UserInstallation="+profileURL.String(),
		"--convert-to", target,
		"--outdir", outDir,
		inputPath,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	cmd.Stdout = io.Discard
	cmd.WaitDelay = waitDelay

	started := time.Now()
	runErr := cmd.Run()
	elapsed := time.Since(started)

	if runErr != nil {
		reason := "engine failed"
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			reason = fmt.Sprintf("engine timed out after %s", s.timeout)
		} else if errors.Is(ctx.Err(), context.Canceled) {
			reason = "canceled"
		}
		if msg := truncate(stderr.String(), stderrLimit); msg != "" {
			reason += " (" + msg + ")"
		}
		s.logger.Warn("conversion failed", "source", source, "target", target, "duration", elapsed, "error", runErr)
		return &ConversionError{Source: source, Target: target, Reason: reason, Err: runErr}
	}

	// soffice exits zero on input it cannot import; missing or empty output
	// is the only reliable failure signal.
	outputPath := filepath.Join(outDir, inputBase+"."+target)
	result, err := os.Open(outputPath)
	if err != nil {
		reason := "engine produced no output"
		if msg := truncate(stderr.String(), stderrLimit); msg != "" {
			reason += " (" + msg + ")"
		}
		return &ConversionError{Source: source, Target: target, Reason: reason}
	}
	defer result.Close()

	info, err := result.Stat()
	if err != nil {
		return fmt.Errorf("stat converted output: %w", err)
	}
	if info.Size() == 0 {
		return &ConversionError{Source: source, Target: target, Reason: "engine produced empty output"}
	}

	if _, err := io.Copy(out, result); err != nil {
		return fmt.Errorf("copy converted output: %w", err)
	}
	s.logger.Debug("conversion finished", "source", source, "target", target, "bytes", info.Size(), "duration", elapsed)
	return nil
}

func spoolInput(path string, in io.Reader) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("create conversion input: %w", err)
	}
	if _, err := io.Copy(f, in); err != nil {
		f.Close()
		return fmt.Errorf("read conversion input: %w", err)
	}
	return f.Close()
}
