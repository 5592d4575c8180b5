package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	// ServiceName is the fully-qualified gRPC service name.
	ServiceName = "meetingcorrelator.v1.Correlator"
	// CorrelateMethod is the full method path of Correlate.
	CorrelateMethod = "/" + ServiceName + "/Correlate"
)

// CorrelatorServer is the server API for the Correlator service. Requests and
// responses are google.protobuf.Struct documents; see FromStructRequest and
// ToStructRun for their shape.
type CorrelatorServer interface {
	Correlate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

// RegisterCorrelatorServer attaches srv to a gRPC registrar.
func RegisterCorrelatorServer(s grpc.ServiceRegistrar, srv CorrelatorServer) {
	s.RegisterService(&CorrelatorServiceDesc, srv)
}

func correlateHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CorrelatorServer).Correlate(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: CorrelateMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(CorrelatorServer).Correlate(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// CorrelatorServiceDesc describes the Correlator service for grpc.Server.
var CorrelatorServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CorrelatorServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Correlate", Handler: correlateHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "meetingcorrelator/v1/correlator.proto",
}

// CorrelatorClient calls a remote Correlator service.
type CorrelatorClient struct {
	cc grpc.ClientConnInterface
}

// NewCorrelatorClient wraps a client connection.
func NewCorrelatorClient(cc grpc.ClientConnInterface) *CorrelatorClient {
	return &CorrelatorClient{cc: cc}
}

// Correlate invokes the remote Correlate method.
func (c *CorrelatorClient) Correlate(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, CorrelateMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
