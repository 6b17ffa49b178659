package grpcsvc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// HistoryServiceDesc описывает сервис для grpc.Server.
var HistoryServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*HistoryServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "UpdateStatusHistory", Handler: updateStatusHistoryHandler},
		{MethodName: "ListStatusHistory", Handler: listStatusHistoryHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "oms/v1/order_status_history.proto",
}

func updateStatusHistoryHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(HistoryServer).UpdateStatusHistory(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodUpdateStatusHistory}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(HistoryServer).UpdateStatusHistory(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func listStatusHistoryHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.Int64Value)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(HistoryServer).ListStatusHistory(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodListStatusHistory}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(HistoryServer).ListStatusHistory(ctx, req.(*wrapperspb.Int64Value))
	}
	return interceptor(ctx, in, info, handler)
}

// HistoryClient: клиент сервиса истории статусов.
type HistoryClient struct {
	cc grpc.ClientConnInterface
}

func NewHistoryClient(cc grpc.ClientConnInterface) *HistoryClient {
	return &HistoryClient{cc: cc}
}

func (c *HistoryClient) UpdateStatusHistory(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*wrapperspb.Int64Value, error) {
	out := new(wrapperspb.Int64Value)
	if err := c.cc.Invoke(ctx, MethodUpdateStatusHistory, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HistoryClient) ListStatusHistory(ctx context.Context, in *wrapperspb.Int64Value, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, MethodListStatusHistory, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
