package linepipes

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/pkg/errors"

	"github.com/daedaleanai/pylintmark/logging"
)

var log = logging.Log

// Run starts the program and streams its combined output line by line. The error channel
// receives the exit status once the output is drained.
func Run(prog string, args ...string) (lines chan string, errors chan error) {
	lines = make(chan string)
	errors = make(chan error, 1)
	log.Debug("Executing: %s %s", prog, strings.Join(args, " "))
	cmd := exec.Command(prog, args...)
	cmd.Stdin = os.Stdin
	pipeReader, pipeWriter, err := os.Pipe()
	if err != nil {
		errors <- err
		close(lines)
		close(errors)
		return lines, errors
	}
	cmd.Stdout = pipeWriter
	cmd.Stderr = pipeWriter
	if err := cmd.Start(); err != nil {
		pipeWriter.Close()
		pipeReader.Close()
		errors <- err
		close(lines)
		close(errors)
		return lines, errors
	}
	go func() {
		defer close(lines)
		defer pipeReader.Close()
		s := bufio.NewScanner(pipeReader)
		for s.Scan() {
			lines <- s.Text()
		}
	}()
	go func() {
		defer close(errors)
		if err := cmd.Wait(); err != nil {
			errors <- err
		}
		pipeWriter.Close()
	}()
	return lines, errors
}

// An ExitError reports a program that ran to completion with a non-zero status.
type ExitError struct {
	Prog string
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s exited with status %d", e.Prog, e.Code)
}

// Capture runs the program to completion feeding it stdin, and returns what it wrote to stdout
// and stderr separately. A non-zero exit status is reported as an *ExitError together with
// the captured output; any other failure, including the context expiring, returns no output.
func Capture(ctx context.Context, stdin io.Reader, prog string, args ...string) (stdout, stderr string, err error) {
	log.Debug("Executing: %s %s", prog, strings.Join(args, " "))
	cmd := exec.CommandContext(ctx, prog, args...)
	cmd.Stdin = stdin
	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	err = cmd.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", "", errors.Wrapf(ctxErr, "running %s", prog)
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return outBuf.String(), errBuf.String(), &ExitError{Prog: prog, Code: exitErr.ExitCode()}
		}
		return "", "", errors.Wrapf(err, "running %s", prog)
	}
	return outBuf.String(), errBuf.String(), nil
}

// Single returns the only line of output, failing if there is not exactly one.
func Single(lines <-chan string, errors <-chan error) (string, error) {
	var s string
	var count int
	for line := range lines {
		s = line
		count += 1
	}
	if err, _ := <-errors; err != nil {
		return s, err
	}
	if count != 1 {
		return s, fmt.Errorf("Expected a single line, got %d", count)
	}
	return s, nil
}
