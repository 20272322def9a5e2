package lsp

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
)

const RPC_VERSION = "2.0"

var headerSeparator = []byte("\r\n\r\n")

// Request ids may be numbers or strings. They are kept as raw JSON and
// echoed back unchanged.
type Request struct {
	RPC    string          `json:"jsonrpc"`
	ID     json.RawMessage `json:"id"`
	Method string          `json:"method"`
}

// Response marshals a nil ID as null.
type Response struct {
	RPC   string          `json:"jsonrpc"`
	ID    json.RawMessage `json:"id"`
	Error *ResponseError  `json:"error,omitempty"`
}

func NewErrorResponse(id json.RawMessage, code int, message string) Response {
	return Response{
		RPC:   RPC_VERSION,
		ID:    id,
		Error: &ResponseError{Code: code, Message: message},
	}
}

type ResponseError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// https://microsoft.github.io/language-server-protocol/specifications/lsp/3.17/specification/#errorCodes
const (
	MethodNotFound = -32601
	InvalidParams  = -32602
)

type Notification struct {
	RPC    string `json:"jsonrpc"`
	Method string `json:"method"`
}

type baseMessage struct {
	Method string `json:"method"`
}

func EncodeMessage(msg any) (string, error) {
	content, err := json.Marshal(msg)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Content-Length: %d\r\n\r\n%s", len(content), content), nil
}

// DecodeMessage takes one framed message as produced by Split and returns its
// method and JSON content.
func DecodeMessage(msg []byte) (string, []byte, error) {
	header, content, found := bytes.Cut(msg, headerSeparator)
	if !found {
		return "", nil, errors.New("did not find header separator")
	}

	contentLength, err := parseContentLength(header)
	if err != nil {
		return "", nil, err
	}
	if len(content) < contentLength {
		return "", nil, fmt.Errorf("content shorter than Content-Length %d", contentLength)
	}
	content = content[:contentLength]

	var base baseMessage
	if err := json.Unmarshal(content, &base); err != nil {
		return "", nil, err
	}
	return base.Method, content, nil
}

// Split is a bufio.SplitFunc yielding one framed message per token. A header
// without a usable Content-Length is skipped so the stream can resync on the
// next message.
func Split(data []byte, _ bool) (advance int, token []byte, err error) {
	header, content, found := bytes.Cut(data, headerSeparator)
	if !found {
		return 0, nil, nil
	}

	contentLength, err := parseContentLength(header)
	if err != nil {
		slog.Warn("Skipping message header", "header", string(header), "err", err)
		return len(header) + len(headerSeparator), nil, nil
	}
	if len(content) < contentLength {
		return 0, nil, nil
	}

	totalLength := len(header) + len(headerSeparator) + contentLength
	return totalLength, data[:totalLength], nil
}

func parseContentLength(header []byte) (int, error) {
	for line := range strings.SplitSeq(string(header), "\r\n") {
		name, value, ok := strings.Cut(line, ":")
		if !ok || !strings.EqualFold(strings.TrimSpace(name), "Content-Length") {
			continue
		}
		length, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return 0, fmt.Errorf("invalid Content-Length: %w", err)
		}
		if length < 0 {
			return 0, fmt.Errorf("negative Content-Length %d", length)
		}
		return length, nil
	}
	return 0, errors.New("missing Content-Length header")
}
