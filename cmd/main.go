package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"containerCracker/internal/core/domain"
)

const (
	exitOK       = 0
	exitError    = 1
	exitNotFound = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	root := newRootCmd(&app{})
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, domain.ErrInterrupted):
		fmt.Fprintln(root.OutOrStdout(), "\nProcess interrupted by user. Goodbye!")
		return exitOK
	case errors.Is(err, errPasswordNotFound):
		return exitNotFound
	default:
		fmt.Fprintln(root.ErrOrStderr(), "Error:", err)
		return exitError
	}
}
