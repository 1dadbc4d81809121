package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "dustinel.risk.v1.CheckinRisk"

// CheckinRiskServer is the server API for the CheckinRisk service. Payloads are
// google.protobuf.Struct documents whose shape is described by the DTOs in this package.
type CheckinRiskServer interface {
	SubmitCheckin(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ScoreCheckin(context.Context, *structpb.Struct) (*structpb.Struct, error)
	EvaluateAlert(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DispatchNotifications(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// UnimplementedCheckinRiskServer can be embedded to have forward compatible implementations.
type UnimplementedCheckinRiskServer struct{}

func (UnimplementedCheckinRiskServer) SubmitCheckin(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method SubmitCheckin not implemented")
}

func (UnimplementedCheckinRiskServer) ScoreCheckin(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method ScoreCheckin not implemented")
}

func (UnimplementedCheckinRiskServer) EvaluateAlert(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method EvaluateAlert not implemented")
}

func (UnimplementedCheckinRiskServer) DispatchNotifications(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method DispatchNotifications not implemented")
}

// RegisterCheckinRiskServer registers srv on the gRPC service registrar.
func RegisterCheckinRiskServer(s grpc.ServiceRegistrar, srv CheckinRiskServer) {
	s.RegisterService(&CheckinRiskServiceDesc, srv)
}

type unaryMethod func(CheckinRiskServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(name string, call unaryMethod) grpc.MethodDesc {
	fullMethod := "/" + ServiceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(CheckinRiskServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(CheckinRiskServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// CheckinRiskServiceDesc is the grpc.ServiceDesc for the CheckinRisk service.
var CheckinRiskServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CheckinRiskServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryHandler("SubmitCheckin", CheckinRiskServer.SubmitCheckin),
		unaryHandler("ScoreCheckin", CheckinRiskServer.ScoreCheckin),
		unaryHandler("EvaluateAlert", CheckinRiskServer.EvaluateAlert),
		unaryHandler("DispatchNotifications", CheckinRiskServer.DispatchNotifications),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "dustinel/risk/v1/checkin_risk.proto",
}

// CheckinRiskClient is a thin client for the CheckinRisk service.
type CheckinRiskClient struct {
	cc grpc.ClientConnInterface
}

// NewCheckinRiskClient wraps an existing connection.
func NewCheckinRiskClient(cc grpc.ClientConnInterface) *CheckinRiskClient {
	return &CheckinRiskClient{cc: cc}
}

// Invoke calls a unary method by its short name.
func (c *CheckinRiskClient) Invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
