package transport

import (
	"context"
	"net"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"github.com/or4cl3-ai-1/Chatron9/internal/orchestrator"
	"github.com/or4cl3-ai-1/Chatron9/internal/plan"
)

// ServiceName is the fully qualified Planner service name.
const ServiceName = "chatron.v1.Planner"

// #region service-interface
// PlannerServer is the server API of the Planner service.
type PlannerServer interface {
	Plan(context.Context, *plan.PlanningRequest) (*plan.PlanningResponse, error)
	ExecutePlan(context.Context, *ExecutePlanRequest) (*orchestrator.ExecutionResult, error)
	RecordFeedback(context.Context, *orchestrator.Feedback) (*FeedbackResponse, error)
	Status(context.Context, *StatusRequest) (*orchestrator.SystemStatus, error)
	History(context.Context, *HistoryRequest) (*HistoryResponse, error)
	Explain(context.Context, *ExplainRequest) (*ExplainResponse, error)
}
// #endregion service-interface

// #region service-impl
type plannerService struct {
	orch *orchestrator.Orchestrator
}

var _ PlannerServer = (*plannerService)(nil)

func (s *plannerService) Plan(ctx context.Context, req *plan.PlanningRequest) (*plan.PlanningResponse, error) {
	if err := req.AffectiveState.Validate(); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "affectiveState: %v", err)
	}
	resp := s.orch.Plan(ctx, *req)
	return &resp, nil
}

func (s *plannerService) ExecutePlan(_ context.Context, req *ExecutePlanRequest) (*orchestrator.ExecutionResult, error) {
	if req.Plan != nil {
		res := s.orch.ExecutePlan(*req.Plan)
		return &res, nil
	}
	if req.PlanID == "" {
		return nil, status.Error(codes.InvalidArgument, "plan or planId is required")
	}
	res, ok := s.orch.ExecuteByPlanID(req.PlanID)
	if !ok {
		return nil, status.Errorf(codes.NotFound, "no stored plan %s", req.PlanID)
	}
	return &res, nil
}

func (s *plannerService) RecordFeedback(ctx context.Context, req *orchestrator.Feedback) (*FeedbackResponse, error) {
	if _, err := plan.ParseOutcome(string(req.Outcome)); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if req.NewState != nil {
		if err := req.NewState.Validate(); err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "newAffectiveState: %v", err)
		}
	}
	return &FeedbackResponse{Recorded: s.orch.RecordFeedback(ctx, *req)}, nil
}

func (s *plannerService) Status(context.Context, *StatusRequest) (*orchestrator.SystemStatus, error) {
	st := s.orch.SystemStatus()
	return &st, nil
}

func (s *plannerService) History(_ context.Context, req *HistoryRequest) (*HistoryResponse, error) {
	return &HistoryResponse{Responses: s.orch.History(req.Limit)}, nil
}

func (s *plannerService) Explain(_ context.Context, req *ExplainRequest) (*ExplainResponse, error) {
	return &ExplainResponse{Explanation: s.orch.Explain(req.Plan)}, nil
}
// #endregion service-impl

// #region service-desc
func unaryHandler[Req any, Resp any](method string, call func(PlannerServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(PlannerServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + method}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(PlannerServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var plannerServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*PlannerServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryHandler("Plan", PlannerServer.Plan),
		unaryHandler("ExecutePlan", PlannerServer.ExecutePlan),
		unaryHandler("RecordFeedback", PlannerServer.RecordFeedback),
		unaryHandler("Status", PlannerServer.Status),
		unaryHandler("History", PlannerServer.History),
		unaryHandler("Explain", PlannerServer.Explain),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "chatron/v1/planner",
}

// RegisterPlannerServer registers impl on s.
func RegisterPlannerServer(s grpc.ServiceRegistrar, impl PlannerServer) {
	s.RegisterService(&plannerServiceDesc, impl)
}
// #endregion service-desc

// #region server
// Server hosts the Planner service and the standard gRPC health service.
type Server struct {
	grpc   *grpc.Server
	health *health.Server
}

// NewServer wires orch into a gRPC server. logger may be nil.
func NewServer(orch *orchestrator.Orchestrator, logger *zap.Logger, opts ...grpc.ServerOption) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts = append(opts, grpc.ChainUnaryInterceptor(loggingInterceptor(logger)))
	gs := grpc.NewServer(opts...)

	RegisterPlannerServer(gs, &plannerService{orch: orch})

	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)

	return &Server{grpc: gs, health: hs}
}

// Serve blocks accepting connections on lis until Stop or GracefulStop.
func (s *Server) Serve(lis net.Listener) error {
	return s.grpc.Serve(lis)
}

// GracefulStop marks the server NOT_SERVING and drains in-flight calls.
func (s *Server) GracefulStop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
}

// Stop closes all connections immediately.
func (s *Server) Stop() {
	s.health.Shutdown()
	s.grpc.Stop()
}
// #endregion server

// #region interceptor
func loggingInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		fields := []zap.Field{
			zap.String("method", info.FullMethod),
			zap.Duration("duration", time.Since(start)),
			zap.String("code", status.Code(err).String()),
		}
		if err != nil {
			logger.Warn("rpc failed", append(fields, zap.Error(err))...)
		} else {
			logger.Debug("rpc", fields...)
		}
		return resp, err
	}
}
// #endregion interceptor
