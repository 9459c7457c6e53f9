// Package grpc exposes event submission and the public trace lookup over gRPC.
//
// Messages are the well-known protobuf types: events and provenance travel as
// google.protobuf.Struct holding the same JSON documents the HTTP API uses.
package grpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	core "agrochain/ingestion/service/core"
	"agrochain/internal/models"
	"agrochain/storage/store"
	"agrochain/traceability/workflow"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully qualified gRPC service name
const ServiceName = "agrochain.v1.Traceability"

// TraceabilityServer is the server API of ServiceName
type TraceabilityServer interface {
	SubmitEvent(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Trace(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error)
}

// Server implements TraceabilityServer over the core service
type Server struct {
	svc    *core.Service
	logger *log.Logger
}

// NewServer creates a new gRPC Server instance
func NewServer(s *core.Service, l *log.Logger) *Server {
	return &Server{svc: s, logger: l}
}

// SubmitEvent appends one traceability event. The request carries the event JSON
// including batch_id, and the response is the stored event with id and hash.
func (s *Server) SubmitEvent(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	raw, err := json.Marshal(req.AsMap())
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid event: %v", err)
	}
	var ev models.TraceabilityEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid event: %v", err)
	}

	stored, err := s.svc.Events.AddEvent(ctx, &ev)
	if err != nil {
		s.logger.Printf("gRPC Server: SubmitEvent for batch %s failed: %v", ev.BatchID, err)
		return nil, toStatus(err)
	}
	s.logger.Printf("gRPC Server: Stored %s event %s for batch %s", stored.EventType, stored.ID, stored.BatchID)
	return toStruct(stored)
}

// Trace resolves a scanned code to the batch provenance
func (s *Server) Trace(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	p, err := s.svc.Events.ResolveByExternalKey(ctx, req.GetValue())
	if err != nil {
		return nil, toStatus(err)
	}
	if p == nil {
		return nil, status.Errorf(codes.NotFound, "no batch matches %q", req.GetValue())
	}
	return toStruct(p)
}

func toStruct(v interface{}) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode response: %v", err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode response: %v", err)
	}
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode response: %v", err)
	}
	return out, nil
}

func toStatus(err error) error {
	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr), errors.Is(err, workflow.ErrGate):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, store.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, store.ErrDuplicate), errors.Is(err, workflow.ErrFinalized):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, workflow.ErrMint):
		return status.Error(codes.Unavailable, err.Error())
	default:
		return status.Error(codes.Internal, fmt.Sprintf("internal error: %v", err))
	}
}

func submitEventHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TraceabilityServer).SubmitEvent(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/SubmitEvent"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(TraceabilityServer).SubmitEvent(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func traceHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TraceabilityServer).Trace(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/Trace"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(TraceabilityServer).Trace(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

// ServiceDesc describes ServiceName for grpc.Server registration
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*TraceabilityServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "SubmitEvent", Handler: submitEventHandler},
		{MethodName: "Trace", Handler: traceHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "agrochain/v1/traceability.proto",
}

// RegisterTraceabilityServer registers srv on s
func RegisterTraceabilityServer(s grpc.ServiceRegistrar, srv TraceabilityServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// Ensure Server implements the interface (compile-time check)
var _ TraceabilityServer = (*Server)(nil)
