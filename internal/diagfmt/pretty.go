package diagfmt

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"loom/internal/diag"
)

var (
	errColor  = color.New(color.FgRed, color.Bold)
	warnColor = color.New(color.FgYellow, color.Bold)
	infoColor = color.New(color.FgCyan, color.Bold)
	codeColor = color.New(color.Faint)
	siteColor = color.New(color.FgBlue)
)

func sevColor(s diag.Severity) *color.Color {
	switch s {
	case diag.SevError:
		return errColor
	case diag.SevWarning:
		return warnColor
	default:
		return infoColor
	}
}

// Pretty prints diagnostics in human-readable form. It walks bag.Items()
// (callers sort the bag first). Each diagnostic prints as
//
//	<SEV> <CODE> <site>: <Message>
//
// followed by indented notes.
func Pretty(w io.Writer, bag *diag.Bag, opts PrettyOpts) {
	if bag == nil {
		return
	}
	paint := func(c *color.Color, s string) string {
		if !opts.Color {
			return s
		}
		return c.Sprint(s)
	}
	for _, d := range bag.Items() {
		head := fmt.Sprintf("%s %s %s: ",
			paint(sevColor(d.Severity), strings.ToLower(d.Severity.String())),
			paint(codeColor, d.Code.ID()),
			paint(siteColor, d.Primary.String()),
		)
		msg := d.Message
		if opts.Width > 0 {
			msg = wrap(msg, int(opts.Width))
		}
		fmt.Fprintf(w, "%s%s\n", head, msg)
		if opts.ShowTitle {
			fmt.Fprintf(w, "  = %s\n", d.Code.Title())
		}
		if opts.ShowNotes {
			for _, n := range d.Notes {
				fmt.Fprintf(w, "  %s %s (%s)\n", paint(infoColor, "note:"), n.Msg, n.Site)
			}
		}
	}
	if dropped := bag.Dropped(); dropped > 0 {
		fmt.Fprintf(w, "... %d more diagnostics not shown\n", dropped)
	}
}

// wrap breaks msg on spaces so that no line exceeds width display columns.
func wrap(msg string, width int) string {
	words := strings.Fields(msg)
	if len(words) == 0 {
		return msg
	}
	var sb strings.Builder
	col := 0
	for i, word := range words {
		ww := runewidth.StringWidth(word)
		if i > 0 {
			if col+1+ww > width {
				sb.WriteString("\n    ")
				col = 4
			} else {
				sb.WriteByte(' ')
				col++
			}
		}
		sb.WriteString(word)
		col += ww
	}
	return sb.String()
}
