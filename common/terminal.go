package common

import (
	"io"
	"os"

	"github.com/muesli/termenv"
)

// ClearScreen clears the terminal attached to stdout and moves the cursor home.
// Does nothing when stdout is not a terminal.
func ClearScreen() {
	clearScreen(os.Stdout)
}

func clearScreen(w io.Writer) {
	if f, ok := w.(*os.File); ok {
		if fi, err := f.Stat(); err != nil || fi.Mode()&os.ModeCharDevice == 0 {
			return
		}
	}
	out := termenv.NewOutput(w)
	out.ClearScreen()
	out.MoveCursor(1, 1)
}
