package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"symevo/internal/evo"
)

var _ evo.GenerationObserver = (*progressPrinter)(nil)

// progressPrinter rewrites one status line per generation.
type progressPrinter struct {
	out     io.Writer
	written bool
}

// newProgressPrinter returns nil when no progress line should be drawn. In
// auto mode that is whenever out is not a terminal.
func newProgressPrinter(out io.Writer, mode string) *progressPrinter {
	switch mode {
	case "never":
		return nil
	case "always":
		return &progressPrinter{out: out}
	default:
		if isTerminal(out) {
			return &progressPrinter{out: out}
		}
		return nil
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (p *progressPrinter) OnGeneration(_ context.Context, progress evo.Progress) error {
	d := progress.Diagnostics
	fmt.Fprintf(p.out, "\rgeneration %d  best %.6g  mean %.6g  length %.1f  evaluations %s",
		progress.Generation, d.BestSoFar, d.MeanFitness, d.MeanLength, humanize.Comma(int64(d.Evaluations)))
	p.written = true
	return nil
}

func (p *progressPrinter) finish() {
	if p.written {
		fmt.Fprintln(p.out)
		p.written = false
	}
}
