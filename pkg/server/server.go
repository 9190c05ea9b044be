package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/richard-senior/htft/internal/logger"
	"github.com/richard-senior/htft/pkg/protocol"
	"github.com/richard-senior/htft/pkg/tools"
	"github.com/richard-senior/htft/pkg/transport"
	"github.com/richard-senior/htft/pkg/util/htft"
)

// ServerName and ServerVersion are reported to clients on initialize
const (
	ServerName    = "htft"
	ServerVersion = "1.0.0"
)

// toolPrefix is added by some clients to tool names
const toolPrefix = "mcp___"

// Server represents an MCP server
type Server struct {
	transport transport.Transport
	handlers  map[string]HandlerFunc
	tools     []protocol.Tool
	mu        sync.Mutex
}

// HandlerFunc is a function that handles an MCP request
type HandlerFunc func(params any) (any, error)

// Singleton instance
var (
	instance *Server
	once     sync.Once
)

// GetInstance returns the singleton instance of the Server, creating it over
// stdio when InitInstance was never called
func GetInstance() *Server {
	if instance == nil {
		logger.Warn("Server instance requested but not initialized, using stdio")
		return InitInstance(transport.NewStdioTransport())
	}
	return instance
}

// InitInstance initializes the singleton instance of the Server with the specified transport
func InitInstance(t transport.Transport) *Server {
	once.Do(func() {
		instance = NewServer(t)
	})
	return instance
}

// NewServer creates a server with the default tools registered
func NewServer(t transport.Transport) *Server {
	s := &Server{
		transport: t,
		handlers:  make(map[string]HandlerFunc),
	}
	s.RegisterDefaultTools()
	return s
}

// RegisterTool registers a tool with the server
func (s *Server) RegisterTool(tool protocol.Tool, handler HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tools = append(s.tools, tool)
	s.handlers[tool.Name] = handler
	logger.Info("Registered tool:", tool.Name)
}

// GetTools returns the list of registered tools
func (s *Server) GetTools() []protocol.Tool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]protocol.Tool(nil), s.tools...)
}

// RegisterDefaultTools registers the analysis tools and the built-in handlers
func (s *Server) RegisterDefaultTools() {
	logger.Info("Registering default tools...")

	s.RegisterTool(tools.PatternAnalysisTool(), tools.HandlePatternAnalysisTool)
	s.RegisterTool(tools.ScoreValuesTool(), tools.HandleScoreValuesTool)

	s.handlers[string(protocol.MethodInitialize)] = s.handleInitialize
	s.handlers[string(protocol.MethodInitialized)] = s.handleInitialized
	s.handlers[string(protocol.MethodToolsList)] = s.handleToolsList
	s.handlers[string(protocol.MethodToolsCall)] = s.handleToolsCall
	s.handlers[string(protocol.MethodPing)] = s.handlePing
}

// Start processes requests until the client disconnects or the process is
// interrupted
func (s *Server) Start() error {
	logger.Info("Starting MCP server")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	errChan := make(chan error, 1)
	go func() {
		errChan <- s.ProcessRequests()
	}()

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		logger.Info("Received signal:", sig)
		return nil
	}
}

// ProcessRequests continuously processes incoming requests. It returns nil
// when the input stream ends.
func (s *Server) ProcessRequests() error {
	for {
		req, err := s.transport.ReadRequest()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			var reqErr *transport.RequestError
			if errors.As(err, &reqErr) {
				resp := protocol.NewJsonRpcErrorResponse(reqErr.Code, reqErr.Error(), nil, nil)
				if err := s.transport.WriteResponse(resp); err != nil {
					return err
				}
				continue
			}
			return err
		}

		// a nil response means none is required
		resp := s.HandleRequest(req)
		if resp == nil {
			continue
		}
		if err := s.transport.WriteResponse(resp); err != nil {
			return err
		}
	}
}

// HandleRequest processes a request and returns its response, nil for notifications
func (s *Server) HandleRequest(req *protocol.JsonRpcRequest) *protocol.JsonRpcResponse {
	logger.Info(">> ", req.Method)

	if strings.HasPrefix(req.Method, "notifications/") {
		logger.Info("Received notification:", req.Method)
		return nil
	}

	resp := &protocol.JsonRpcResponse{
		JsonRPC: protocol.JsonRpcVersion,
		ID:      req.ID,
	}

	var handler HandlerFunc
	var params any

	if req.Method == string(protocol.MethodInvokeTool) {
		var invokeParams map[string]any
		if err := json.Unmarshal(req.Params, &invokeParams); err != nil {
			resp.Error = &protocol.JsonRpcError{
				Code:    protocol.ErrInvalidParams,
				Message: "Invalid parameters for invoke_tool: " + err.Error(),
			}
			return resp
		}
		toolName, ok := invokeParams["name"].(string)
		if !ok {
			resp.Error = &protocol.JsonRpcError{
				Code:    protocol.ErrInvalidParams,
				Message: "Missing tool name in invoke_tool parameters",
			}
			return resp
		}
		logger.Info("Tool invocation requested for:", toolName)
		handler = s.lookup(toolName)
		params = invokeParams["parameters"]
	} else {
		handler = s.lookup(req.Method)
		params = req.Params
	}

	if handler == nil {
		resp.Error = &protocol.JsonRpcError{
			Code:    protocol.ErrMethodNotFound,
			Message: fmt.Sprintf("Method not found: %s", req.Method),
		}
		return resp
	}

	result, err := handler(params)
	if err == nil && result == nil {
		return nil
	}
	if err != nil {
		resp.Error = &protocol.JsonRpcError{
			Code:    ErrorCode(err),
			Message: err.Error(),
		}
		return resp
	}

	resultBytes, err := json.Marshal(result)
	if err != nil {
		resp.Error = &protocol.JsonRpcError{
			Code:    protocol.ErrInternal,
			Message: "Failed to marshal result: " + err.Error(),
		}
		return resp
	}
	resp.Result = resultBytes
	logger.Debug("Full response:", string(resultBytes))
	return resp
}

// ErrorCode maps an error to its JSON-RPC error code
func ErrorCode(err error) int {
	var rpcErr *protocol.JsonRpcError
	switch {
	case errors.As(err, &rpcErr):
		return rpcErr.Code
	case htft.IsInvalidInput(err):
		return protocol.ErrInvalidParams
	case htft.IsReported(err):
		return protocol.ErrInsufficientData
	}
	return protocol.ErrToolExecutionFailed
}

func (s *Server) lookup(name string) HandlerFunc {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h := s.handlers[name]; h != nil {
		return h
	}
	return s.handlers[strings.TrimPrefix(name, toolPrefix)]
}

// handleToolsList handles the tools/list method
func (s *Server) handleToolsList(params any) (any, error) {
	logger.Info("Handling tools/list request")
	return protocol.ToolsResponse{Tools: s.GetTools()}, nil
}

// handleInitialize handles the initialize method
func (s *Server) handleInitialize(params any) (any, error) {
	logger.Info("Handling initialize request with", len(s.GetTools()), "tools registered")

	requestedProtocolVersion := "2024-11-05"
	var initParams struct {
		ProtocolVersion string `json:"protocolVersion"`
	}
	if raw, ok := params.(json.RawMessage); ok && len(raw) > 0 {
		if err := json.Unmarshal(raw, &initParams); err == nil && initParams.ProtocolVersion != "" {
			requestedProtocolVersion = initParams.ProtocolVersion
		}
	}
	logger.Info("Final protocol version to use:", requestedProtocolVersion)

	type serverInfo struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	}
	return struct {
		ProtocolVersion string         `json:"protocolVersion"`
		Capabilities    map[string]any `json:"capabilities"`
		ServerInfo      serverInfo     `json:"serverInfo"`
	}{
		ProtocolVersion: requestedProtocolVersion,
		Capabilities: map[string]any{
			"tools": map[string]any{"listChanged": false},
		},
		ServerInfo: serverInfo{Name: ServerName, Version: ServerVersion},
	}, nil
}

// handleInitialized handles the initialized notification, which needs no response
func (s *Server) handleInitialized(params any) (any, error) {
	logger.Info("Handling initialized notification")
	return nil, nil
}

func (s *Server) handlePing(params any) (any, error) {
	return struct{}{}, nil
}

func (s *Server) handleToolsCall(params any) (any, error) {
	logger.Info("Handling tools/call request")

	var toolCallParams struct {
		Arguments map[string]any `json:"arguments"`
		Name      string         `json:"name"`
	}
	raw, ok := params.(json.RawMessage)
	if !ok {
		var err error
		if raw, err = json.Marshal(params); err != nil {
			return nil, fmt.Errorf("failed to marshal params: %v", err)
		}
	}
	if err := json.Unmarshal(raw, &toolCallParams); err != nil {
		return nil, &protocol.JsonRpcError{Code: protocol.ErrInvalidParams, Message: "invalid tools/call parameters: " + err.Error()}
	}

	logger.Info("Tool call requested for:", toolCallParams.Name)
	handler := s.lookup(toolCallParams.Name)
	if handler == nil {
		return nil, &protocol.JsonRpcError{Code: protocol.ErrMethodNotFound, Message: "tool not found: " + toolCallParams.Name}
	}

	result, err := handler(toolCallParams.Arguments)
	if err != nil {
		return nil, fmt.Errorf("tool execution failed: %w", err)
	}
	return result, nil
}
