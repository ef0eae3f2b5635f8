package terminal

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
)

// Prompter reads operator answers line by line. Every question is asked
// again until the answer is valid; io.EOF ends the conversation and a
// cancelled context abandons the pending question.
type Prompter struct {
	in     io.Reader
	out    io.Writer
	styles Styles

	once    sync.Once
	lines   chan string
	readErr error
}

func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{
		in:     in,
		out:    out,
		styles: NewStyles(out),
		lines:  make(chan string),
	}
}

// read forwards input lines until the reader fails. It may stay blocked in
// a read after the last question; the process exit reclaims it.
func (p *Prompter) read() {
	defer close(p.lines)
	r := bufio.NewReader(p.in)
	for {
		line, err := r.ReadString('\n')
		if line != "" {
			p.lines <- line
		}
		if err != nil {
			p.readErr = err
			return
		}
	}
}

func (p *Prompter) readLine(ctx context.Context) (string, error) {
	p.once.Do(func() { go p.read() })

	select {
	case line, ok := <-p.lines:
		if !ok {
			return "", p.readErr
		}
		return strings.TrimSpace(line), nil
	case <-ctx.Done():
		fmt.Fprintln(p.out)
		return "", ctx.Err()
	}
}

// Ask returns the trimmed answer, or def when the answer is empty.
func (p *Prompter) Ask(ctx context.Context, label, def string) (string, error) {
	if def != "" {
		fmt.Fprintf(p.out, "%s %s: ", label, p.styles.Muted.Render("("+def+")"))
	} else {
		fmt.Fprintf(p.out, "%s: ", label)
	}

	answer, err := p.readLine(ctx)
	if err != nil {
		return "", err
	}
	if answer == "" {
		return def, nil
	}
	return answer, nil
}

// Choose prints numbered options and returns the 1-based choice.
func (p *Prompter) Choose(ctx context.Context, title string, options []string, def int) (int, error) {
	fmt.Fprintln(p.out, p.styles.Bold.Render(title))
	for i, option := range options {
		fmt.Fprintf(p.out, "%d. %s\n", i+1, option)
	}

	for {
		answer, err := p.Ask(ctx, "Enter your choice", strconv.Itoa(def))
		if err != nil {
			return 0, err
		}
		n, err := strconv.Atoi(answer)
		if err == nil && n >= 1 && n <= len(options) {
			return n, nil
		}
		fmt.Fprintln(p.out, p.styles.Error.Render(fmt.Sprintf("Please select one of 1-%d", len(options))))
	}
}

func (p *Prompter) Confirm(ctx context.Context, label string, def bool) (bool, error) {
	hint := "y/N"
	if def {
		hint = "Y/n"
	}

	for {
		fmt.Fprintf(p.out, "%s [%s]: ", label, hint)
		answer, err := p.readLine(ctx)
		if err != nil {
			return false, err
		}
		switch strings.ToLower(answer) {
		case "":
			return def, nil
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
		fmt.Fprintln(p.out, p.styles.Error.Render("Please answer y or n"))
	}
}

// AskInt asks for an integer no smaller than lower.
func (p *Prompter) AskInt(ctx context.Context, label string, def, lower int) (int, error) {
	for {
		answer, err := p.Ask(ctx, label, strconv.Itoa(def))
		if err != nil {
			return 0, err
		}
		n, err := strconv.Atoi(answer)
		if err == nil && n >= lower {
			return n, nil
		}
		fmt.Fprintln(p.out, p.styles.Error.Render(fmt.Sprintf("Please enter a whole number of at least %d", lower)))
	}
}

// AskPath asks for a path and strips one pair of surrounding quotes, as
// left behind by dragging a file into a terminal.
func (p *Prompter) AskPath(ctx context.Context, label string) (string, error) {
	answer, err := p.Ask(ctx, label, "")
	if err != nil {
		return "", err
	}
	return StripQuotes(answer), nil
}

func StripQuotes(s string) string {
	if len(s) > 1 {
		first, last := s[0], s[len(s)-1]
		if first == last && (first == '\'' || first == '"') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
