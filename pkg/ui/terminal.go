package ui

import (
	"fmt"
	"io"
	"os"
)

// Logo printed above interactive commands
const Logo = `
  ┌─────────────────────────────────────────────────────┐
  │  r/ collect  ·  incremental reddit user collector   │
  └─────────────────────────────────────────────────────┘
`

// Output is where every helper in this package writes
var Output io.Writer = os.Stdout

var colorEnabled = true

// SetColor turns ANSI colors on or off
func SetColor(enabled bool) {
	colorEnabled = enabled
}

// Color functions for terminal output
var (
	Cyan    = colorize("\033[36m%s\033[0m")
	Yellow  = colorize("\033[33m%s\033[0m")
	Red     = colorize("\033[31m%s\033[0m")
	Green   = colorize("\033[32m%s\033[0m")
	Magenta = colorize("\033[35m%s\033[0m")
	Dim     = colorize("\033[2m%s\033[0m")
)

func colorize(colorString string) func(string) string {
	return func(text string) string {
		if !colorEnabled {
			return text
		}
		return fmt.Sprintf(colorString, text)
	}
}

// PrintLogo prints the logo
func PrintLogo() {
	fmt.Fprint(Output, Cyan(Logo))
}

// PrintError prints an error message in red, followed by its cause when given
func PrintError(msg string, cause ...interface{}) {
	fmt.Fprintln(Output, Red(withCause(msg, cause)))
}

// PrintWarning prints a warning message in yellow
func PrintWarning(msg string, cause ...interface{}) {
	fmt.Fprintln(Output, Yellow(withCause(msg, cause)))
}

// PrintSuccess prints a success message in green
func PrintSuccess(msg string) {
	fmt.Fprintln(Output, Green(msg))
}

// PrintInfo prints a label/value pair
func PrintInfo(label string, value interface{}) {
	fmt.Fprintf(Output, "%s: %s\n", Cyan(label), Yellow(fmt.Sprint(value)))
}

// PrintHighlight prints a highlighted message in magenta
func PrintHighlight(msg string) {
	fmt.Fprintln(Output, Magenta(msg))
}

func withCause(msg string, cause []interface{}) string {
	if len(cause) == 0 || cause[0] == nil || cause[0] == "" {
		return msg
	}
	return fmt.Sprintf("%s: %v", msg, cause[0])
}
