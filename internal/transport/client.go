package transport

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/or4cl3-ai-1/Chatron9/internal/orchestrator"
	"github.com/or4cl3-ai-1/Chatron9/internal/plan"
)

// #region client-struct
// Client is a typed Planner client.
type Client struct {
	cc   grpc.ClientConnInterface
	conn *grpc.ClientConn // set by Dial, closed by Close
}
// #endregion client-struct

// #region constructor
// Dial connects to a Planner server without transport security.
func Dial(addr string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	return &Client{cc: conn, conn: conn}, nil
}

// NewClient wraps an existing connection. Close does not close cc.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Close shuts down a connection opened by Dial.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}
// #endregion constructor

func (c *Client) invoke(ctx context.Context, method string, in, out any) error {
	return c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, grpc.CallContentSubtype(codecName))
}

// #region calls
// Plan runs a planning cycle on the server.
func (c *Client) Plan(ctx context.Context, req plan.PlanningRequest) (plan.PlanningResponse, error) {
	var out plan.PlanningResponse
	if err := c.invoke(ctx, "Plan", &req, &out); err != nil {
		return plan.PlanningResponse{}, fmt.Errorf("plan rpc: %w", err)
	}
	return out, nil
}

// ExecutePlan simulates execution of p.
func (c *Client) ExecutePlan(ctx context.Context, p plan.CandidatePlan) (orchestrator.ExecutionResult, error) {
	var out orchestrator.ExecutionResult
	if err := c.invoke(ctx, "ExecutePlan", &ExecutePlanRequest{Plan: &p}, &out); err != nil {
		return orchestrator.ExecutionResult{}, fmt.Errorf("execute plan rpc: %w", err)
	}
	return out, nil
}

// ExecuteByPlanID executes a stored selected plan. A miss is codes.NotFound.
func (c *Client) ExecuteByPlanID(ctx context.Context, planID string) (orchestrator.ExecutionResult, error) {
	var out orchestrator.ExecutionResult
	if err := c.invoke(ctx, "ExecutePlan", &ExecutePlanRequest{PlanID: planID}, &out); err != nil {
		return orchestrator.ExecutionResult{}, fmt.Errorf("execute plan rpc: %w", err)
	}
	return out, nil
}

// RecordFeedback reports whether the server knew the request id.
func (c *Client) RecordFeedback(ctx context.Context, fb orchestrator.Feedback) (bool, error) {
	var out FeedbackResponse
	if err := c.invoke(ctx, "RecordFeedback", &fb, &out); err != nil {
		return false, fmt.Errorf("record feedback rpc: %w", err)
	}
	return out.Recorded, nil
}

// Status fetches the server's system status.
func (c *Client) Status(ctx context.Context) (orchestrator.SystemStatus, error) {
	var out orchestrator.SystemStatus
	if err := c.invoke(ctx, "Status", &StatusRequest{}, &out); err != nil {
		return orchestrator.SystemStatus{}, fmt.Errorf("status rpc: %w", err)
	}
	return out, nil
}

// History fetches up to limit stored responses, oldest first. A negative
// limit uses the server default.
func (c *Client) History(ctx context.Context, limit int) ([]plan.PlanningResponse, error) {
	var out HistoryResponse
	if err := c.invoke(ctx, "History", &HistoryRequest{Limit: limit}, &out); err != nil {
		return nil, fmt.Errorf("history rpc: %w", err)
	}
	return out.Responses, nil
}

// Explain asks the server's council to explain p.
func (c *Client) Explain(ctx context.Context, p plan.CandidatePlan) (string, error) {
	var out ExplainResponse
	if err := c.invoke(ctx, "Explain", &ExplainRequest{Plan: p}, &out); err != nil {
		return "", fmt.Errorf("explain rpc: %w", err)
	}
	return out.Explanation, nil
}
// #endregion calls
