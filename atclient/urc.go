package atclient

import (
	"context"
	"strconv"
	"strings"
)

// URCHandler processes one Unsolicited Result Code line, given a cursor
// over the bytes after the matched prefix. It runs synchronously on the
// rxLoop goroutine: it must not call Lock, and its only safe action beyond
// reading fields is to copy them and enqueue a deferred callback via
// Client.Callback.
type URCHandler func(f *URCFields)

// URCFields is the line-local argument cursor handed to a URCHandler.
type URCFields struct {
	line  string
	pos   int
	delim byte
}

func newURCFields(tail string, delim byte) *URCFields {
	return &URCFields{line: tail, delim: delim}
}

func (f *URCFields) next() (string, bool) {
	if f.pos > len(f.line) {
		return "", false
	}
	rest := f.line[f.pos:]
	if idx := strings.IndexByte(rest, f.delim); idx >= 0 {
		f.pos += idx + 1
		return strings.TrimSpace(rest[:idx]), true
	}
	f.pos = len(f.line) + 1
	return strings.TrimSpace(rest), true
}

// ReadInt parses the next URC argument as an integer, returning 0 if
// absent or malformed.
func (f *URCFields) ReadInt() int {
	field, ok := f.next()
	if !ok || field == "" {
		return 0
	}
	n, _ := strconv.Atoi(field)
	return n
}

// ReadString parses the next URC argument as a string, optionally
// stripping surrounding quotes.
func (f *URCFields) ReadString(stripQuotes bool) string {
	field, ok := f.next()
	if !ok {
		return ""
	}
	if stripQuotes {
		field = strings.Trim(field, `"`)
	}
	return field
}

// Remainder returns whatever of the line has not yet been consumed.
func (f *URCFields) Remainder() string {
	if f.pos > len(f.line) {
		return ""
	}
	return f.line[f.pos:]
}

// URCHandlerSet registers a handler for lines beginning with prefix
// (including the leading '+' and trailing ':'). Replaces any existing
// handler for the same prefix.
func (c *Client) URCHandlerSet(prefix string, h URCHandler) {
	c.urcMu.Lock()
	c.urcHandlers[prefix] = h
	c.urcMu.Unlock()
}

// URCHandlerRemove unregisters the handler for prefix, if any.
func (c *Client) URCHandlerRemove(prefix string) {
	c.urcMu.Lock()
	delete(c.urcHandlers, prefix)
	c.urcMu.Unlock()
}

// matchURC returns the handler whose prefix matches line's start, and the
// tail of the line following that prefix.
func (c *Client) matchURC(line string) (URCHandler, string, bool) {
	c.urcMu.RLock()
	defer c.urcMu.RUnlock()
	for prefix, h := range c.urcHandlers {
		if strings.HasPrefix(line, prefix) {
			return h, strings.TrimPrefix(line, prefix), true
		}
	}
	return nil, "", false
}

// Callback enqueues a deferred call to be run on the callback task, never
// on the rxLoop goroutine. Enqueue failure (queue full) is reported rather
// than blocking the parser; the caller is expected to discard any state it
// would have handed to fn.
func (c *Client) Callback(fn DeferredFunc, param any) bool {
	select {
	case c.deferredCh <- deferredCall{fn: fn, param: param}:
		return true
	default:
		return false
	}
}

func (c *Client) deferredLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case call := <-c.deferredCh:
			call.fn(call.param)
		}
	}
}
