package main

import (
	"fmt"
	"os"

	"github.com/pterm/pterm"

	"github.com/nixstall/nixstall/pkg/install"
	"github.com/nixstall/nixstall/pkg/style"
	"github.com/nixstall/nixstall/pkg/ui"
)

// progressPrinter reports phase transitions on the terminal. On a plain
// pipe it degrades to machine-friendly one-line records so the host
// installer can parse them.
type progressPrinter struct {
	out  *os.File
	rich bool
}

func newProgressPrinter(out *os.File) *progressPrinter {
	return &progressPrinter{
		out:  out,
		rich: ui.DetectFormat(out) == ui.FormatTerminal,
	}
}

func (p *progressPrinter) Progress(phase install.Phase, fraction float64) {
	if p.rich {
		printer := pterm.Info.WithWriter(p.out)
		printer.Printfln("%3.0f%% %s", fraction*100, style.Phase.Render(phase.String()))
		return
	}
	fmt.Fprintf(p.out, "progress %.2f %s\n", fraction, phase)
}
