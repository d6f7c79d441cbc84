package display

import (
	"fmt"
	"io"
)

// Plain writes unstyled lines and never touches the clipboard or a browser.
type Plain struct {
	out    io.Writer
	ticked bool
}

func NewPlain(out io.Writer) *Plain {
	return &Plain{out: out}
}

func (p *Plain) Show(msg string) {
	p.endTicks()
	_, _ = fmt.Fprintln(p.out, msg)
}

func (p *Plain) Success(msg string) {
	p.endTicks()
	_, _ = fmt.Fprintln(p.out, msg)
}

// Tick prints a dot on the current line.
func (p *Plain) Tick() {
	p.ticked = true
	_, _ = fmt.Fprint(p.out, ".")
}

func (p *Plain) endTicks() {
	if p.ticked {
		p.ticked = false
		_, _ = fmt.Fprintln(p.out)
	}
}

func (p *Plain) CopyToClipboard(string) error {
	return ErrClipboardUnavailable
}

func (p *Plain) ConfirmAndOpen(string) (bool, error) {
	return false, nil
}
