package utils

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Prompter asks the operator questions on a terminal-like reader/writer pair.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
}

func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out}
}

// readLine returns one line, or ctx's error if ctx ends first. The reading
// goroutine is left blocked on the reader in that case; the process is about
// to exit anyway.
func (p *Prompter) readLine(ctx context.Context, prompt string) (string, error) {
	fmt.Fprint(p.out, prompt)

	type result struct {
		line string
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		line, err := p.in.ReadString('\n')
		ch <- result{line, err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-ch:
		if r.err != nil && !(errors.Is(r.err, io.EOF) && r.line != "") {
			return "", r.err
		}
		return strings.TrimSpace(r.line), nil
	}
}

// AskPositiveInt reads a single positive integer.
func (p *Prompter) AskPositiveInt(ctx context.Context, prompt string) (int, error) {
	line, err := p.readLine(ctx, prompt)
	if err != nil {
		return 0, ConfigError("read answer", err)
	}
	n, err := strconv.Atoi(line)
	if err != nil {
		return 0, ConfigError("parse answer", fmt.Errorf("%q is not a number", line))
	}
	if n <= 0 {
		return 0, ConfigError("parse answer", fmt.Errorf("expected a positive number, got %d", n))
	}
	return n, nil
}

// Confirm blocks until the operator presses Enter.
func (p *Prompter) Confirm(ctx context.Context, prompt string) error {
	if _, err := p.readLine(ctx, prompt); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("input closed before confirmation")
		}
		return err
	}
	return nil
}
