package transport

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"

	"github.com/richard-senior/htft/internal/logger"
	"github.com/richard-senior/htft/pkg/protocol"
)

// StdioTransport implements communication over standard input/output.
// Requests and responses are JSON values, one per line.
type StdioTransport struct {
	reader *bufio.Reader
	writer *bufio.Writer
}

// NewStdioTransport creates a new transport that uses stdin/stdout
func NewStdioTransport() *StdioTransport {
	return NewStreamTransport(os.Stdin, os.Stdout)
}

// NewStreamTransport creates a transport over arbitrary streams
func NewStreamTransport(r io.Reader, w io.Writer) *StdioTransport {
	return &StdioTransport{
		reader: bufio.NewReader(r),
		writer: bufio.NewWriter(w),
	}
}

// ReadRequest reads a JSON-RPC request. It returns io.EOF once the client
// has disconnected and a *RequestError for a line that is not a valid
// request, after which the next line can still be read.
func (t *StdioTransport) ReadRequest() (*protocol.JsonRpcRequest, error) {
	logger.Debug("Waiting for request on stdin...")

	var line []byte
	for len(line) == 0 {
		raw, err := t.reader.ReadBytes('\n')
		line = bytes.TrimSpace(raw)
		if err == io.EOF && len(line) == 0 {
			logger.Info("Received EOF on stdin, client disconnected")
			return nil, err
		}
		if err != nil && err != io.EOF {
			logger.Error("Error reading from stdin:", err)
			return nil, err
		}
	}
	logger.Debug("Received raw request:", string(line))

	if !json.Valid(line) {
		logger.Error("Received malformed JSON on stdin")
		return nil, &RequestError{Code: protocol.ErrParse, Err: errors.New("malformed JSON")}
	}
	request, err := protocol.ParseJsonRpcRequest(line)
	if err != nil {
		logger.Error("Failed to parse JSON-RPC request:", err)
		return nil, &RequestError{Code: protocol.ErrInvalidRequest, Err: err}
	}
	return request, nil
}

// WriteResponse writes a JSON-RPC response followed by a newline
func (t *StdioTransport) WriteResponse(response *protocol.JsonRpcResponse) error {
	responseBytes, err := json.Marshal(response)
	if err != nil {
		logger.Error("Failed to marshal response:", err)
		return err
	}
	responseBytes = append(responseBytes, '\n')
	logger.Debug("Sending response:", string(responseBytes))

	if _, err := t.writer.Write(responseBytes); err != nil {
		logger.Error("Failed to write response:", err)
		return err
	}
	if err := t.writer.Flush(); err != nil {
		logger.Error("Failed to flush response:", err)
		return err
	}
	return nil
}

// RequestError is returned for a line that is not a valid JSON-RPC request.
// Code is protocol.ErrParse for malformed JSON and protocol.ErrInvalidRequest
// otherwise. The stream is still usable afterwards.
type RequestError struct {
	Code int
	Err  error
}

func (e *RequestError) Error() string {
	if e.Code == protocol.ErrParse {
		return "parse error: " + e.Err.Error()
	}
	return "invalid request: " + e.Err.Error()
}

func (e *RequestError) Unwrap() error {
	return e.Err
}
