// Package console is a line-oriented local transport for trying the router
// without a chat platform.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
)

// DefaultSender is used for lines without a "name:" prefix
const DefaultSender = "you"

// Line is one parsed input line
type Line struct {
	MsgID        string
	Sender       string
	Text         string
	IsReplyToBot bool
}

// Client reads messages from in and prints bot output to out
type Client struct {
	in  *bufio.Scanner
	mu  sync.Mutex
	out io.Writer
	seq int
}

// NewClient creates a console client
func NewClient(in io.Reader, out io.Writer) *Client {
	return &Client{in: bufio.NewScanner(in), out: out}
}

// Next blocks for the next non-blank line. It returns io.EOF when input ends.
func (c *Client) Next(ctx context.Context) (*Line, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !c.in.Scan() {
			if err := c.in.Err(); err != nil {
				return nil, fmt.Errorf("read input: %w", err)
			}
			return nil, io.EOF
		}
		raw := strings.TrimSpace(c.in.Text())
		if raw == "" {
			continue
		}
		c.mu.Lock()
		c.seq++
		id := "c" + strconv.Itoa(c.seq)
		c.mu.Unlock()
		line := ParseLine(raw)
		line.MsgID = id
		return line, nil
	}
}

// ParseLine splits "[>]name: text". The name must be a single word.
func ParseLine(raw string) *Line {
	line := &Line{Sender: DefaultSender}
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, ">") {
		line.IsReplyToBot = true
		raw = strings.TrimSpace(raw[1:])
	}
	if i := strings.Index(raw, ":"); i > 0 {
		name := raw[:i]
		if !strings.ContainsAny(name, " \t/") {
			line.Sender = name
			raw = strings.TrimSpace(raw[i+1:])
		}
	}
	line.Text = raw
	return line
}

// Print writes bot output, quoting the message it answers
func (c *Client) Print(replyTo, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	prefix := "bot"
	if replyTo != "" {
		prefix = "bot ↩ " + replyTo
	}
	_, err := fmt.Fprintf(c.out, "[%s] %s\n", prefix, text)
	return err
}
