package display

import (
	"fmt"
	"io"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
	"github.com/aymanbagabas/go-osc52/v2"
	"github.com/fatih/color"
	"github.com/pkg/browser"
)

var (
	info    = color.New(color.FgCyan).SprintFunc()
	success = color.New(color.FgGreen, color.Bold).SprintFunc()
	dim     = color.New(color.Faint).SprintFunc()
)

// Rich styles its output and offers the clipboard and browser shortcuts.
type Rich struct {
	in        io.Reader
	out       io.Writer
	noBrowser bool
	ticked    bool
	confirm   func(question string) (bool, error)
	open      func(url string) error
}

func NewRich(opts Options) *Rich {
	r := &Rich{
		in:        opts.In,
		out:       opts.Out,
		noBrowser: opts.NoBrowser,
		confirm:   opts.Confirm,
		open:      opts.Open,
	}
	if r.confirm == nil {
		r.confirm = r.askConfirm
	}
	if r.open == nil {
		r.open = browser.OpenURL
	}
	return r
}

func (r *Rich) Show(msg string) {
	r.endTicks()
	_, _ = fmt.Fprintf(r.out, "%s %s\n", info("→"), msg)
}

func (r *Rich) Success(msg string) {
	r.endTicks()
	_, _ = fmt.Fprintf(r.out, "%s %s\n", success("✔"), success(msg))
}

func (r *Rich) Tick() {
	r.ticked = true
	_, _ = fmt.Fprint(r.out, dim("."))
}

func (r *Rich) endTicks() {
	if r.ticked {
		r.ticked = false
		_, _ = fmt.Fprintln(r.out)
	}
}

// CopyToClipboard emits an OSC 52 sequence. Terminals that support it turn it
// into a clipboard write, others ignore it, so success only means the sequence
// was written.
func (r *Rich) CopyToClipboard(text string) error {
	if _, err := osc52.New(text).WriteTo(r.out); err != nil {
		return fmt.Errorf("writing clipboard sequence: %w", err)
	}
	return nil
}

// ConfirmAndOpen asks before launching the browser. It reports whether the
// browser was opened.
func (r *Rich) ConfirmAndOpen(url string) (bool, error) {
	if r.noBrowser {
		return false, nil
	}
	ok, err := r.confirm(fmt.Sprintf("Open %s in your browser?", url))
	if err != nil {
		return false, fmt.Errorf("browser confirmation: %w", err)
	}
	if !ok {
		return false, nil
	}
	if err := r.open(url); err != nil {
		return false, fmt.Errorf("opening browser: %w", err)
	}
	return true, nil
}

func (r *Rich) askConfirm(question string) (bool, error) {
	answer := false
	prompt := &survey.Confirm{
		Message: question,
		Default: true,
	}
	if err := survey.AskOne(prompt, &answer, r.askOptions()...); err != nil {
		return false, err
	}
	return answer, nil
}

// askOptions routes the prompt through the presenter's streams when they are
// terminals. Other streams leave survey on the process stdio.
func (r *Rich) askOptions() []survey.AskOpt {
	in, inOK := r.in.(terminal.FileReader)
	out, outOK := r.out.(terminal.FileWriter)
	if !inOK || !outOK {
		return nil
	}
	return []survey.AskOpt{survey.WithStdio(in, out, r.out)}
}
