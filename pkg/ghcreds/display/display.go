package display

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
)

const (
	ModeAuto  = "auto"
	ModePlain = "plain"
	ModeRich  = "rich"
)

var ErrClipboardUnavailable = errors.New("clipboard is not available")

// Presenter is everything the CLI shows to the operator during a run.
type Presenter interface {
	Show(msg string)
	Success(msg string)
	Tick()
	CopyToClipboard(text string) error
	ConfirmAndOpen(url string) (bool, error)
}

// Options tune the presenter returned by New.
type Options struct {
	Out       io.Writer
	In        io.Reader
	NoBrowser bool
	// Confirm and Open replace the interactive prompt and the browser launcher.
	Confirm func(question string) (bool, error)
	Open    func(url string) error
}

// New returns the presenter for mode. Auto selects the rich presenter when both
// In and Out are terminals.
func New(mode string, opts Options) (Presenter, error) {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.In == nil {
		opts.In = os.Stdin
	}
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", ModeAuto:
		if IsInteractive(opts.In, opts.Out) {
			return NewRich(opts), nil
		}
		return NewPlain(opts.Out), nil
	case ModePlain:
		return NewPlain(opts.Out), nil
	case ModeRich:
		return NewRich(opts), nil
	default:
		return nil, fmt.Errorf("unsupported display mode %q (expected %s, %s or %s)", mode, ModeAuto, ModePlain, ModeRich)
	}
}

// IsInteractive reports whether every stream is attached to a terminal.
func IsInteractive(streams ...any) bool {
	for _, s := range streams {
		f, ok := s.(interface{ Fd() uintptr })
		if !ok {
			return false
		}
		fd := f.Fd()
		if !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd) {
			return false
		}
	}
	return len(streams) > 0
}

// Report prints the outcome of a successful run.
func Report(p Presenter, ttl time.Duration, appURL string) {
	if p == nil {
		return
	}
	if ttl > 0 {
		p.Success(fmt.Sprintf("Success! Authentication will expire in %.1f hours.", ttl.Hours()))
	} else {
		p.Success("Success! Authentication does not expire.")
	}
	if appURL = strings.TrimSpace(appURL); appURL != "" {
		p.Show(fmt.Sprintf("Visit %s to manage list of repositories you can push to from this location", appURL))
	}
	p.Show("Tip: Use https:// URLs to clone and push to repos, not ssh URLs!")
}

// Nop discards everything. Used when the caller runs headless.
type Nop struct{}

func (Nop) Show(string) {}
func (Nop) Success(string) {}
func (Nop) Tick() {}
func (Nop) CopyToClipboard(string) error { return ErrClipboardUnavailable }
func (Nop) ConfirmAndOpen(string) (bool, error) { return false, nil }
