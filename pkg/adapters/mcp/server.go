package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/relay"
	"github.com/aretw0/relay/internal/logging"
	"github.com/aretw0/relay/pkg/domain"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"golang.org/x/sync/errgroup"
)

// GraphURI is the resource exposing the execution graph as Mermaid.
const GraphURI = "relay://graph"

// Engine defines the interface required by the MCP server to drive Relay sessions.
type Engine interface {
	StartSession(ctx context.Context, init domain.SessionInit) (string, error)
	PostMessage(ctx context.Context, sessionID, text string) (*domain.Outcome, error)
	ResolveApproval(ctx context.Context, sessionID string, approved bool, reason string) (*domain.Outcome, error)
	Mermaid(ctx context.Context, sessionID string) (string, error)
}

// StartSessionArgs are the arguments of the start_session tool.
type StartSessionArgs struct {
	SessionID  string `json:"session_id,omitempty"`
	CustomerID int    `json:"customer_id,omitempty"`
}

// StartSessionResult is returned by the start_session tool.
type StartSessionResult struct {
	SessionID string `json:"session_id" jsonschema_description:"Identifier to pass to the other tools"`
}

// PostMessageArgs are the arguments of the post_message tool.
type PostMessageArgs struct {
	SessionID string `json:"session_id"`
	Content   string `json:"content"`
}

// ResolveApprovalArgs are the arguments of the resolve_approval tool.
type ResolveApprovalArgs struct {
	SessionID string `json:"session_id"`
	Approved  bool   `json:"approved"`
	Reason    string `json:"reason,omitempty"`
}

// GraphArgs are the arguments of the get_graph tool.
type GraphArgs struct {
	SessionID string `json:"session_id,omitempty"`
}

// Server wraps the Relay engine and exposes it as an MCP server.
type Server struct {
	engine    Engine
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures the server.
type Option func(*Server)

// WithLogger sets the logger used for rejected calls and the SSE listener.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewServer creates a new MCP server instance.
func NewServer(engine Engine, opts ...Option) *Server {
	s := &Server{
		engine:    engine,
		logger:    logging.NewNop(),
		mcpServer: server.NewMCPServer("relay-mcp", strings.TrimSpace(relay.Version)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying protocol server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio serves the protocol on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves the protocol over SSE on addr until ctx is cancelled.
func (s *Server) ServeSSE(ctx context.Context, addr string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL(addr)))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	})
	return g.Wait()
}

func baseURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "http://localhost" + addr
	}
	return "http://" + addr
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("start_session",
		mcp.WithDescription("Start a support conversation. Pass customer_id to load the customer's profile."),
		mcp.WithString("session_id", mcp.Description("Session identifier (generated when omitted)")),
		mcp.WithNumber("customer_id", mcp.Description("Customer to snapshot at session start")),
		mcp.WithOutputSchema[StartSessionResult](),
	), mcp.NewStructuredToolHandler(s.handleStartSession))

	s.mcpServer.AddTool(mcp.NewTool("post_message",
		mcp.WithDescription("Send a user message and run the turn. The result holds either the assistant reply or the tool calls awaiting approval."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session identifier")),
		mcp.WithString("content", mcp.Required(), mcp.Description("User message")),
		mcp.WithOutputSchema[domain.Outcome](),
	), mcp.NewStructuredToolHandler(s.handlePostMessage))

	s.mcpServer.AddTool(mcp.NewTool("resolve_approval",
		mcp.WithDescription("Approve or deny the tool calls a suspended session is waiting on."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session identifier")),
		mcp.WithBoolean("approved", mcp.Required(), mcp.Description("Whether the pending calls may run")),
		mcp.WithString("reason", mcp.Description("Explanation given to the assistant when denied")),
		mcp.WithOutputSchema[domain.Outcome](),
	), mcp.NewStructuredToolHandler(s.handleResolveApproval))

	s.mcpServer.AddTool(mcp.NewTool("get_graph",
		mcp.WithDescription("Render the execution graph as Mermaid, highlighting the session's pending node when given."),
		mcp.WithString("session_id", mcp.Description("Session to overlay (optional)")),
	), mcp.NewTypedToolHandler(s.handleGraph))
}

func (s *Server) handleStartSession(ctx context.Context, _ mcp.CallToolRequest, args StartSessionArgs) (StartSessionResult, error) {
	id, err := s.engine.StartSession(ctx, domain.SessionInit{
		SessionID:  args.SessionID,
		CustomerID: args.CustomerID,
	})
	if err != nil {
		return StartSessionResult{}, err
	}
	return StartSessionResult{SessionID: id}, nil
}

func (s *Server) handlePostMessage(ctx context.Context, _ mcp.CallToolRequest, args PostMessageArgs) (domain.Outcome, error) {
	out, err := s.engine.PostMessage(ctx, args.SessionID, args.Content)
	if err != nil {
		s.logger.Warn("MCP post_message failed", "session_id", args.SessionID, "error", err)
		return domain.Outcome{}, err
	}
	return *out, nil
}

func (s *Server) handleResolveApproval(ctx context.Context, _ mcp.CallToolRequest, args ResolveApprovalArgs) (domain.Outcome, error) {
	out, err := s.engine.ResolveApproval(ctx, args.SessionID, args.Approved, args.Reason)
	if err != nil {
		s.logger.Warn("MCP resolve_approval failed", "session_id", args.SessionID, "error", err)
		return domain.Outcome{}, err
	}
	return *out, nil
}

func (s *Server) handleGraph(ctx context.Context, _ mcp.CallToolRequest, args GraphArgs) (*mcp.CallToolResult, error) {
	diagram, err := s.engine.Mermaid(ctx, args.SessionID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("graph failed: %v", err)), nil
	}
	return mcp.NewToolResultText(diagram), nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(GraphURI, "Execution Graph",
		mcp.WithResourceDescription("Mermaid flowchart of the assistant graph"),
		mcp.WithMIMEType("text/plain"),
	), func(ctx context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		diagram, err := s.engine.Mermaid(ctx, "")
		if err != nil {
			return nil, fmt.Errorf("failed to render graph: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      GraphURI,
				MIMEType: "text/plain",
				Text:     diagram,
			},
		}, nil
	})
}
