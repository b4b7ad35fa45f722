package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/guidebook"
	"github.com/aretw0/guidebook/internal/presentation/graph"
	"github.com/aretw0/guidebook/pkg/domain"
	"github.com/aretw0/guidebook/pkg/ports"
	"github.com/aretw0/guidebook/pkg/runner"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// PlanResponse is the structured result of the plan-changing tools.
type PlanResponse struct {
	Status domain.Status `json:"status" jsonschema_description:"Status of the whole guidebook"`
	Next   *ChoiceView   `json:"next,omitempty" jsonschema_description:"The next choice to answer, absent when every choice is made"`
	Open   int           `json:"open" jsonschema_description:"Number of choices still open on the frontier"`
}

// ChoiceView is the flat rendering of an open choice. Option bodies are
// left out so that the output schema stays finite.
type ChoiceView struct {
	Context     string            `json:"context" jsonschema_description:"Key to pass to choose and reject"`
	Title       string            `json:"title,omitempty"`
	Description string            `json:"description,omitempty"`
	Mode        domain.ChoiceMode `json:"mode,omitempty" jsonschema_description:"single, multi or form"`
	Options     []OptionView      `json:"options"`
}

// OptionView is one option of a ChoiceView.
type OptionView struct {
	Title       string            `json:"title"`
	Description string            `json:"description,omitempty"`
	Field       *domain.FormField `json:"field,omitempty"`
}

func choiceView(c *domain.Choice) *ChoiceView {
	v := &ChoiceView{
		Context:     c.Context,
		Title:       c.Title,
		Description: c.Description,
		Mode:        c.Mode,
		Options:     make([]OptionView, 0, len(c.Parts)),
	}
	for _, p := range c.Parts {
		v.Options = append(v.Options, OptionView{Title: p.Title, Description: p.Description, Field: p.Field})
	}
	return v
}

// ChooseArgs are the arguments of the choose tool. Exactly one answer field is set.
type ChooseArgs struct {
	Context string            `json:"context"`
	Answer  string            `json:"answer,omitempty"`
	Titles  []string          `json:"titles,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// Server wraps a ports.Planner and exposes it as an MCP Server.
type Server struct {
	planner   ports.Planner
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// NewServer creates a new MCP Server instance.
func NewServer(planner ports.Planner, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &Server{
		planner:   planner,
		logger:    logger,
		mcpServer: server.NewMCPServer("guidebook-mcp", strings.TrimSpace(guidebook.Version)),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying server, for embedding in other transports.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE, until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Info("shutting down MCP server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	// TOOL: get_plan
	s.mcpServer.AddTool(mcp.NewTool("get_plan",
		mcp.WithDescription("Optimize the guidebook against the recorded answers and return the next open choice."),
		mcp.WithOutputSchema[PlanResponse](),
	), mcp.NewStructuredToolHandler(s.handlePlan))

	// TOOL: choose
	s.mcpServer.AddTool(mcp.NewTool("choose",
		mcp.WithDescription("Answer the choice with the given context. Use answer for single choices, titles for multiselect and fields for forms."),
		mcp.WithString("context", mcp.Required(), mcp.Description("Context of the choice, as returned by get_plan")),
		mcp.WithString("answer", mcp.Description("Title of the chosen option")),
		mcp.WithArray("titles", mcp.Description("Titles of the chosen options"), mcp.WithStringItems()),
		mcp.WithObject("fields", mcp.Description("Form field values by field title")),
		mcp.WithOutputSchema[PlanResponse](),
	), mcp.NewStructuredToolHandler(s.handleChoose))

	// TOOL: reject
	s.mcpServer.AddTool(mcp.NewTool("reject",
		mcp.WithDescription("Forget the answer of a choice so that it is asked again."),
		mcp.WithString("context", mcp.Required(), mcp.Description("Context of the choice")),
		mcp.WithOutputSchema[PlanResponse](),
	), mcp.NewStructuredToolHandler(s.handleReject))

	// TOOL: get_graph
	s.mcpServer.AddTool(mcp.NewTool("get_graph",
		mcp.WithDescription("Get the optimized decision tree as a Mermaid flowchart."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		chart, err := s.graph(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("graph failed: %v", err)), nil
		}
		return mcp.NewToolResultText(chart), nil
	})

	// TOOL: get_choices
	s.mcpServer.AddTool(mcp.NewTool("get_choices",
		mcp.WithDescription("Get the answers recorded in the active profile."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		state, err := s.planner.Choices(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("choices failed: %v", err)), nil
		}
		jsonBytes, _ := json.Marshal(state)
		return mcp.NewToolResultText(string(jsonBytes)), nil
	})
}

func (s *Server) handlePlan(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (PlanResponse, error) {
	return s.summary(ctx)
}

func (s *Server) handleChoose(ctx context.Context, request mcp.CallToolRequest, args ChooseArgs) (PlanResponse, error) {
	if args.Context == "" {
		return PlanResponse{}, errors.New("context is required")
	}
	answer, err := args.answer()
	if err != nil {
		s.logger.Warn("MCP Choose: Input rejected", "error", err, "context", args.Context)
		return PlanResponse{}, fmt.Errorf("input rejected: %w", err)
	}
	if err := s.planner.Choose(ctx, args.Context, answer); err != nil {
		return PlanResponse{}, fmt.Errorf("choose failed: %w", err)
	}
	return s.summary(ctx)
}

func (s *Server) handleReject(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (PlanResponse, error) {
	key, _ := args["context"].(string)
	if key == "" {
		return PlanResponse{}, errors.New("context is required")
	}
	if err := s.planner.Reject(ctx, key); err != nil {
		return PlanResponse{}, fmt.Errorf("reject failed: %w", err)
	}
	return s.summary(ctx)
}

func (args ChooseArgs) answer() (domain.Answer, error) {
	switch {
	case args.Titles != nil && args.Fields == nil && args.Answer == "":
		titles := make([]string, len(args.Titles))
		for i, t := range args.Titles {
			clean, err := runner.SanitizeInput(t)
			if err != nil {
				return domain.Answer{}, err
			}
			titles[i] = clean
		}
		return domain.MultiAnswer(titles), nil
	case args.Fields != nil && args.Titles == nil && args.Answer == "":
		fields := make(map[string]string, len(args.Fields))
		for k, v := range args.Fields {
			clean, err := runner.SanitizeInput(v)
			if err != nil {
				return domain.Answer{}, fmt.Errorf("field %s: %w", k, err)
			}
			fields[k] = clean
		}
		return domain.FormAnswer(fields), nil
	case args.Answer != "" && args.Titles == nil && args.Fields == nil:
		clean, err := runner.SanitizeInput(args.Answer)
		if err != nil {
			return domain.Answer{}, err
		}
		return domain.SingleAnswer(clean), nil
	}
	return domain.Answer{}, errors.New("exactly one of answer, titles or fields is required")
}

func (s *Server) summary(ctx context.Context) (PlanResponse, error) {
	plan, err := s.planner.Plan(ctx)
	if err != nil {
		return PlanResponse{}, fmt.Errorf("plan failed: %w", err)
	}
	resp := PlanResponse{Status: plan.Status}
	for _, e := range plan.Frontier {
		if e.Choice != nil {
			resp.Open++
		}
	}
	if next := plan.Next(); next != nil {
		resp.Next = choiceView(next)
	}
	return resp, nil
}

func (s *Server) graph(ctx context.Context) (string, error) {
	plan, err := s.planner.Plan(ctx)
	if err != nil {
		return "", err
	}
	overlay := &graph.GraphOverlay{}
	if next := plan.Next(); next != nil {
		overlay.Current = next.Context
	}
	return graph.GenerateMermaid(plan.Tree, overlay), nil
}

func (s *Server) registerResources() {
	// EXPOSE: guidebook://plan
	s.mcpServer.AddResource(mcp.NewResource("guidebook://plan", "Optimized decision tree",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		plan, err := s.planner.Plan(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to plan: %w", err)
		}
		jsonBytes, err := json.Marshal(plan)
		if err != nil {
			return nil, err
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      "guidebook://plan",
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})

	// EXPOSE: guidebook://graph
	s.mcpServer.AddResource(mcp.NewResource("guidebook://graph", "Mermaid flowchart of the decision tree",
		mcp.WithMIMEType("text/plain"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		chart, err := s.graph(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to render graph: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      "guidebook://graph",
				MIMEType: "text/plain",
				Text:     chart,
			},
		}, nil
	})
}
