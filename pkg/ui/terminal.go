package ui

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// ASCIILogo is printed by the CLI banner
const ASCIILogo = `
   ╔═══════════════════════════════════════════════════════════╗
   ║  ╔═╗╔═╗╔╦╗╔═╗╦  ╔═╗╔═╗  ╔═╗╦ ╦╔╗╔╔═╗                      ║
   ║  ║  ╠═╣ ║ ╠═╣║  ║ ║║ ╦  ╚═╗╚╦╝║║║║                        ║
   ║  ╚═╝╩ ╩ ╩ ╩ ╩╩═╝╚═╝╚═╝  ╚═╝ ╩ ╝╚╝╚═╝                      ║
   ║          collections · products · photos                   ║
   ╚═══════════════════════════════════════════════════════════╝
`

var (
	Cyan    = colorize("\033[36m%s\033[0m")
	Yellow  = colorize("\033[33m%s\033[0m")
	Red     = colorize("\033[31m%s\033[0m")
	Green   = colorize("\033[32m%s\033[0m")
	Magenta = colorize("\033[35m%s\033[0m")
	Dim     = colorize("\033[2m%s\033[0m")
)

func colorize(format string) func(string) string {
	return func(text string) string {
		return fmt.Sprintf(format, text)
	}
}

func plain(text string) string { return text }

// Console writes styled lines. Colors are dropped when the output is not a
// terminal
type Console struct {
	out   io.Writer
	color bool
}

// NewConsole wraps out, enabling colors only for a TTY
func NewConsole(out io.Writer) *Console {
	color := false
	if f, ok := out.(*os.File); ok {
		color = term.IsTerminal(int(f.Fd()))
	}
	return &Console{out: out, color: color}
}

// Stdout is the console the CLI prints to
func Stdout() *Console {
	return NewConsole(os.Stdout)
}

// Writer exposes the underlying writer
func (c *Console) Writer() io.Writer {
	return c.out
}

// Colored reports whether ANSI styling is applied
func (c *Console) Colored() bool {
	return c.color
}

func (c *Console) style(fn func(string) string) func(string) string {
	if !c.color {
		return plain
	}
	return fn
}

func (c *Console) Logo() {
	fmt.Fprint(c.out, c.style(Cyan)(ASCIILogo))
}

func (c *Console) Error(msg string, err error) {
	if err != nil {
		msg = msg + ": " + err.Error()
	}
	fmt.Fprintln(c.out, c.style(Red)(msg))
}

func (c *Console) Success(msg string) {
	fmt.Fprintln(c.out, c.style(Green)(msg))
}

func (c *Console) Warning(msg string) {
	fmt.Fprintln(c.out, c.style(Yellow)(msg))
}

// Info prints an aligned "label: value" pair
func (c *Console) Info(label, value string) {
	fmt.Fprintf(c.out, "%s: %s\n", c.style(Cyan)(fmt.Sprintf("%-18s", label)), c.style(Yellow)(value))
}

func (c *Console) Highlight(msg string) {
	fmt.Fprintln(c.out, c.style(Magenta)(msg))
}
