package progress

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

const barWidth = 40

// Bar redraws a single status line with the share of input lines processed.
type Bar struct {
	out     io.Writer
	model   progress.Model
	counter lipgloss.Style
	drawn   bool
}

func New(out io.Writer) *Bar {
	return &Bar{
		out:     out,
		model:   progress.New(progress.WithDefaultGradient(), progress.WithWidth(barWidth)),
		counter: lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
	}
}

// ForTerminal returns a bar on f, or nil when f is not a terminal.
// A nil *Bar is safe to use and draws nothing.
func ForTerminal(f *os.File) *Bar {
	if !isatty.IsTerminal(f.Fd()) && !isatty.IsCygwinTerminal(f.Fd()) {
		return nil
	}
	return New(f)
}

func (b *Bar) Update(done, total int) {
	if b == nil || total <= 0 {
		return
	}
	pct := float64(done) / float64(total)
	fmt.Fprintf(b.out, "\r%s %s", b.model.ViewAs(pct), b.counter.Render(fmt.Sprintf("%d/%d", done, total)))
	b.drawn = true
}

// Finish ends the status line so later output starts on a fresh line.
func (b *Bar) Finish() {
	if b == nil || !b.drawn {
		return
	}
	fmt.Fprintln(b.out)
	b.drawn = false
}
