// Package grpcapi exposes the evaluator as a gRPC service. The service uses
// protobuf well-known types, so clients need no generated stubs:
//
//	service rpncalc.v1.Calculator {
//	  rpc Evaluate(google.protobuf.StringValue) returns (google.protobuf.DoubleValue);
//	  rpc ToPostfix(google.protobuf.StringValue) returns (google.protobuf.ListValue);
//	}
package grpcapi

import (
	"context"
	"fmt"
	"net"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/lemonberrylabs/rpncalc/pkg/api"
	"github.com/lemonberrylabs/rpncalc/pkg/expr"
	"github.com/lemonberrylabs/rpncalc/pkg/store"
	"github.com/lemonberrylabs/rpncalc/pkg/types"
)

const (
	serviceName     = "rpncalc.v1.Calculator"
	evaluateMethod  = "/" + serviceName + "/Evaluate"
	toPostfixMethod = "/" + serviceName + "/ToPostfix"
)

// CalculatorServer is the server API for the Calculator service.
type CalculatorServer interface {
	Evaluate(context.Context, *wrapperspb.StringValue) (*wrapperspb.DoubleValue, error)
	ToPostfix(context.Context, *wrapperspb.StringValue) (*structpb.ListValue, error)
}

var calculatorServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*CalculatorServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Evaluate", Handler: evaluateHandler},
		{MethodName: "ToPostfix", Handler: toPostfixHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "rpncalc/v1/calculator.proto",
}

// RegisterCalculatorServer registers srv on s.
func RegisterCalculatorServer(s grpc.ServiceRegistrar, srv CalculatorServer) {
	s.RegisterService(&calculatorServiceDesc, srv)
}

func evaluateHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CalculatorServer).Evaluate(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: evaluateMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(CalculatorServer).Evaluate(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func toPostfixHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CalculatorServer).ToPostfix(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: toPostfixMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(CalculatorServer).ToPostfix(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

// Server implements the Calculator gRPC service.
type Server struct {
	store *store.Store
	grpc  *grpc.Server
}

// New creates a new gRPC server recording evaluations in the given store.
func New(s *store.Store) *Server {
	srv := &Server{store: s}

	gs := grpc.NewServer()
	RegisterCalculatorServer(gs, srv)
	srv.grpc = gs

	return srv
}

// Serve starts listening on the given address and serves gRPC requests.
func (s *Server) Serve(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}
	return s.ServeListener(lis)
}

// ServeListener serves gRPC requests on an existing listener.
func (s *Server) ServeListener(lis net.Listener) error {
	return s.grpc.Serve(lis)
}

// GracefulStop gracefully stops the gRPC server.
func (s *Server) GracefulStop() {
	s.grpc.GracefulStop()
}

// Evaluate computes the value of the expression. Evaluation failures are
// returned as InvalidArgument with the error kind as message prefix.
func (s *Server) Evaluate(ctx context.Context, req *wrapperspb.StringValue) (*wrapperspb.DoubleValue, error) {
	ev := api.Evaluate(s.store, req.GetValue())
	if ev.State == store.EvaluationFailed {
		return nil, status.Errorf(codes.InvalidArgument, "%s: %s", ev.Error.Kind, ev.Error.Message)
	}
	return wrapperspb.Double(ev.Result), nil
}

// ToPostfix returns the expression's postfix entries as strings.
func (s *Server) ToPostfix(ctx context.Context, req *wrapperspb.StringValue) (*structpb.ListValue, error) {
	p, err := expr.ToPostfix(req.GetValue())
	if err != nil {
		return nil, toStatus(err)
	}

	values := make([]*structpb.Value, len(p))
	for i, e := range p {
		values[i] = structpb.NewStringValue(e.String())
	}
	return &structpb.ListValue{Values: values}, nil
}

func toStatus(err error) error {
	if ee, ok := err.(*types.EvalError); ok {
		return status.Errorf(codes.InvalidArgument, "%s: %s", ee.Kind, ee.Message)
	}
	return status.Error(codes.Internal, err.Error())
}

// KindFromError recovers the evaluation error kind from a gRPC error
// returned by this service, or "" if it carries none.
func KindFromError(err error) types.Kind {
	st, ok := status.FromError(err)
	if !ok || st.Code() != codes.InvalidArgument {
		return ""
	}
	kind, _, found := strings.Cut(st.Message(), ":")
	if !found {
		return ""
	}
	return types.Kind(kind)
}

// Client is a client for the Calculator service.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient creates a Calculator client over cc.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Evaluate calls Calculator.Evaluate.
func (c *Client) Evaluate(ctx context.Context, expression string, opts ...grpc.CallOption) (float64, error) {
	out := new(wrapperspb.DoubleValue)
	if err := c.cc.Invoke(ctx, evaluateMethod, wrapperspb.String(expression), out, opts...); err != nil {
		return 0, err
	}
	return out.GetValue(), nil
}

// ToPostfix calls Calculator.ToPostfix.
func (c *Client) ToPostfix(ctx context.Context, expression string, opts ...grpc.CallOption) ([]string, error) {
	out := new(structpb.ListValue)
	if err := c.cc.Invoke(ctx, toPostfixMethod, wrapperspb.String(expression), out, opts...); err != nil {
		return nil, err
	}
	entries := make([]string, len(out.GetValues()))
	for i, v := range out.GetValues() {
		entries[i] = v.GetStringValue()
	}
	return entries, nil
}
