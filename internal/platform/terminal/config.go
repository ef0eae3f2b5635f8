package terminal

import (
	"io"
	"os"

	"golang.org/x/term"

	"containerCracker/internal/config"
)

type Config struct {
	In  io.Reader
	Out io.Writer

	// Interactive enables the menu flow. It requires both stdin and stdout
	// to be terminals.
	Interactive bool
	// Progress draws a live progress bar while an attack runs.
	Progress bool

	DefaultWorkers int
	DefaultCharset string
	DefaultMinLen  int
	DefaultMaxLen  int
}

func NewDefaultConfig() *Config {
	stdoutTTY := IsTerminal(os.Stdout)
	return &Config{
		In:             os.Stdin,
		Out:            os.Stdout,
		Interactive:    IsTerminal(os.Stdin) && stdoutTTY,
		Progress:       stdoutTTY,
		DefaultWorkers: config.DefaultWorkers(),
		DefaultCharset: "luds",
		DefaultMinLen:  4,
		DefaultMaxLen:  8,
	}
}

func IsTerminal(f *os.File) bool {
	return f != nil && term.IsTerminal(int(f.Fd()))
}
