// Package diagnostics exposes an internal gRPC introspection service
// (SPEC_FULL.md §4.9): HealthView and Summary snapshots for operators,
// separate from the client-facing HTTP contract.
//
// There is no .proto file and no protoc-generated *.pb.go in this
// package. Both RPCs exchange google.protobuf.Struct, a well-known type
// that ships pre-compiled and pre-registered inside
// google.golang.org/protobuf itself — so a hand-built grpc.ServiceDesc
// is enough to get valid, wire-correct proto messages without a code
// generation step.
package diagnostics

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/go-rinha/payments-gateway/internal/health"
	"github.com/go-rinha/payments-gateway/internal/store"
	"github.com/go-rinha/payments-gateway/internal/summary"
	"github.com/go-rinha/payments-gateway/internal/upstream"
)

// Service backs the Diagnostics RPCs against the live HealthView and
// Store owned by cmd/gateway.
type Service struct {
	view  *health.View
	store *store.Store
}

// New builds a Service bound to the gateway's live state.
func New(view *health.View, st *store.Store) *Service {
	return &Service{view: view, store: st}
}

// GetHealth returns the current HealthView snapshot as
// {"default": bool, "fallback": bool}.
func (s *Service) GetHealth(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"default":  s.view.IsHealthy(upstream.Default),
		"fallback": s.view.IsHealthy(upstream.Fallback),
	})
}

// GetSummary recomputes the full-range spec §4.7 aggregate and returns
// it as a Struct, reusing the summary package rather than a second
// computation path.
func (s *Service) GetSummary(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	resp := summary.Compute(s.store, 0, time.Now().UnixNano())
	return structpb.NewStruct(map[string]any{
		"default": map[string]any{
			"totalRequests": float64(resp.Default.TotalRequests),
			"totalAmount":   resp.Default.TotalAmount,
		},
		"fallback": map[string]any{
			"totalRequests": float64(resp.Fallback.TotalRequests),
			"totalAmount":   resp.Fallback.TotalAmount,
		},
	})
}

// serviceDesc is the hand-written equivalent of what protoc-gen-go-grpc
// would emit from a .proto file declaring:
//
//	service Diagnostics {
//	  rpc GetHealth(google.protobuf.Struct) returns (google.protobuf.Struct);
//	  rpc GetSummary(google.protobuf.Struct) returns (google.protobuf.Struct);
//	}
var serviceDesc = grpc.ServiceDesc{
	ServiceName: "rinha.diagnostics.Diagnostics",
	HandlerType: (*any)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetHealth", Handler: getHealthHandler},
		{MethodName: "GetSummary", Handler: getSummaryHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "internal/diagnostics/service.go",
}

func getHealthHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	svc := srv.(*Service)
	if interceptor == nil {
		return svc.GetHealth(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: svc, FullMethod: "/rinha.diagnostics.Diagnostics/GetHealth"}
	handler := func(ctx context.Context, req any) (any, error) {
		return svc.GetHealth(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func getSummaryHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	svc := srv.(*Service)
	if interceptor == nil {
		return svc.GetSummary(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: svc, FullMethod: "/rinha.diagnostics.Diagnostics/GetSummary"}
	handler := func(ctx context.Context, req any) (any, error) {
		return svc.GetSummary(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// Register attaches the Diagnostics service to a *grpc.Server, the same
// way protoc-gen-go-grpc's RegisterXxxServer would.
func Register(s *grpc.Server, svc *Service) {
	s.RegisterService(&serviceDesc, svc)
}
