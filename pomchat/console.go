package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

// console is the stdin/stdout surface: a line source for the command loops and
// the Prompter, Alerter and Navigator for the controllers.
type console struct {
	out   io.Writer
	lines chan string

	mu   sync.Mutex
	path string
}

func newConsole(in io.Reader, out io.Writer) *console {
	c := &console{out: out, lines: make(chan string)}
	go func() {
		defer close(c.lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			c.lines <- sc.Text()
		}
		if err := sc.Err(); err != nil {
			log.Debug().Err(err).Msg("[console] read")
		}
	}()
	return c
}

// ReadLine returns the next input line, io.EOF once input is exhausted.
func (c *console) ReadLine(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case line, ok := <-c.lines:
		if !ok {
			return "", io.EOF
		}
		return line, nil
	}
}

func (c *console) Prompt(ctx context.Context, label string) (string, error) {
	fmt.Fprint(c.out, label+" ")
	return c.ReadLine(ctx)
}

func (c *console) Alert(msg string) {
	fmt.Fprintf(c.out, "! %s\n", msg)
}

func (c *console) Navigate(path string) {
	c.mu.Lock()
	c.path = path
	c.mu.Unlock()
	log.Debug().Str("path", path).Msg("[console] navigate")
}

// Location is the last path the client navigated to.
func (c *console) Location() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.path
}

// splitCommand parses "/name arg..." lines. Plain text returns ok=false.
func splitCommand(line string) (name, arg string, ok bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "/") {
		return "", "", false
	}
	name, arg, _ = strings.Cut(line[1:], " ")
	return strings.ToLower(name), strings.TrimSpace(arg), true
}
