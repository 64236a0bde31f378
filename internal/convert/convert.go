// Package convert wraps the external office-to-PDF converter. The converter
// is a headless LibreOffice invocation producing <basename>.pdf in the output
// directory. There is no retry and no partial-output handling: any failure
// (non-zero exit, missing binary, timeout) is a single uniform error.
package convert

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"
)

// DefaultTimeout bounds a single conversion. LibreOffice can hang on
// malformed input, so the process is killed at the deadline.
const DefaultTimeout = 30 * time.Second

// ErrConversionFailed is returned for every conversion failure mode.
var ErrConversionFailed = errors.New("conversion to PDF failed")

type Converter struct {
	Bin     string
	Timeout time.Duration
}

func New(bin string) *Converter {
	if bin == "" {
		bin = "libreoffice"
	}
	return &Converter{Bin: bin, Timeout: DefaultTimeout}
}

// ToPDF converts srcPath into outDir and returns the produced PDF path.
func (c *Converter) ToPDF(ctx context.Context, srcPath, outDir string) (string, error) {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.Bin, "--headless", "--convert-to", "pdf", "--outdir", outDir, srcPath)
	// libreoffice is a wrapper that spawns soffice.bin, which inherits the
	// output pipes. Killing only the direct child leaves the pipes open and
	// Wait blocks past the deadline, so kill the whole process group and cap
	// the pipe drain with WaitDelay.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
	cmd.WaitDelay = time.Second
	if out, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrConversionFailed, strings.TrimSpace(string(out)), err)
	}

	base := filepath.Base(srcPath)
	pdfPath := filepath.Join(outDir, strings.TrimSuffix(base, filepath.Ext(base))+".pdf")
	if fi, err := os.Stat(pdfPath); err != nil || fi.IsDir() {
		return "", fmt.Errorf("%w: converter produced no output for %s", ErrConversionFailed, base)
	}
	return pdfPath, nil
}
