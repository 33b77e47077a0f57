package mcp

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync/atomic"
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
)

type request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// notification reports whether the sender expects no response.
func (r *request) notification() bool { return len(r.ID) == 0 }

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

var nullID = json.RawMessage("null")

func makeResult(id json.RawMessage, result any) *response {
	return &response{JSONRPC: "2.0", ID: id, Result: result}
}

func makeError(id json.RawMessage, code int, format string, args ...any) *response {
	if len(id) == 0 {
		id = nullID
	}
	return &response{JSONRPC: "2.0", ID: id, Error: &rpcError{Code: code, Message: fmt.Sprintf(format, args...)}}
}

// transport reads and writes JSON-RPC messages on a byte stream. Messages
// are newline-delimited JSON unless the client frames them with a
// Content-Length header, in which case replies are framed the same way.
type transport struct {
	r      *bufio.Reader
	w      *bufio.Writer
	framed atomic.Bool
}

func newTransport(r io.Reader, w io.Writer) *transport {
	return &transport{r: bufio.NewReader(r), w: bufio.NewWriter(w)}
}

// read returns the next message body. It returns io.EOF once the stream
// ends between messages.
func (t *transport) read() ([]byte, error) {
	for {
		line, err := t.r.ReadString('\n')
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			if err != nil {
				return nil, err
			}
			continue
		}
		if !strings.HasPrefix(trimmed, "{") && !strings.HasPrefix(trimmed, "[") && strings.Contains(trimmed, ":") {
			t.framed.Store(true)
			return t.readFramed(trimmed)
		}
		return []byte(trimmed), nil
	}
}

// readFramed reads the header block that starts with first, then the body
// its Content-Length announces.
func (t *transport) readFramed(first string) ([]byte, error) {
	length := -1
	for line := first; line != ""; {
		if name, value, ok := strings.Cut(line, ":"); ok && strings.EqualFold(strings.TrimSpace(name), "Content-Length") {
			n, err := strconv.Atoi(strings.TrimSpace(value))
			if err != nil || n < 0 {
				return nil, fmt.Errorf("invalid Content-Length %q", strings.TrimSpace(value))
			}
			length = n
		}
		next, err := t.r.ReadString('\n')
		if err != nil {
			return nil, fmt.Errorf("read headers: %w", err)
		}
		line = strings.TrimRight(next, "\r\n")
	}
	if length < 0 {
		return nil, errors.New("missing Content-Length header")
	}

	body := make([]byte, length)
	if _, err := io.ReadFull(t.r, body); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

func (t *transport) write(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if t.framed.Load() {
		if _, err := fmt.Fprintf(t.w, "Content-Length: %d\r\n\r\n", len(data)); err != nil {
			return err
		}
		if _, err := t.w.Write(data); err != nil {
			return err
		}
	} else {
		if _, err := t.w.Write(append(data, '\n')); err != nil {
			return err
		}
	}
	return t.w.Flush()
}
