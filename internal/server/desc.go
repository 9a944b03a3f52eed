package server

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const ServiceName = "labreports.v1.Reports"

// ReportsServer is the labreports.v1.Reports service. Messages are protobuf
// well-known types so no generated code is needed on either side.
type ReportsServer interface {
	// ProcessReport takes {path, name?, age?, gender?} and returns {report_id}.
	ProcessReport(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetReport(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	DeleteReport(context.Context, *wrapperspb.StringValue) (*wrapperspb.BoolValue, error)
	ListReports(context.Context, *wrapperspb.Int32Value) (*structpb.Struct, error)
	ExportReport(context.Context, *wrapperspb.StringValue) (*wrapperspb.BytesValue, error)
	// Explain takes {report_id, prompt?, context?} and returns the reply text.
	Explain(context.Context, *structpb.Struct) (*wrapperspb.StringValue, error)
}

func fullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

// unary builds the method descriptor the protoc plugin would generate.
func unary[Req any, Resp any](name string, call func(ReportsServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(ReportsServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(name)}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(ReportsServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var ReportsServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ReportsServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("ProcessReport", ReportsServer.ProcessReport),
		unary("GetReport", ReportsServer.GetReport),
		unary("DeleteReport", ReportsServer.DeleteReport),
		unary("ListReports", ReportsServer.ListReports),
		unary("ExportReport", ReportsServer.ExportReport),
		unary("Explain", ReportsServer.Explain),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "labreports/v1/reports.proto",
}

func RegisterReportsServer(s grpc.ServiceRegistrar, srv ReportsServer) {
	s.RegisterService(&ReportsServiceDesc, srv)
}

// ReportsClient calls labreports.v1.Reports.
type ReportsClient struct {
	cc grpc.ClientConnInterface
}

func NewReportsClient(cc grpc.ClientConnInterface) *ReportsClient {
	return &ReportsClient{cc: cc}
}

func (c *ReportsClient) ProcessReport(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, fullMethod("ProcessReport"), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ReportsClient) GetReport(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, fullMethod("GetReport"), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ReportsClient) DeleteReport(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.BoolValue, error) {
	out := new(wrapperspb.BoolValue)
	if err := c.cc.Invoke(ctx, fullMethod("DeleteReport"), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ReportsClient) ListReports(ctx context.Context, in *wrapperspb.Int32Value, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, fullMethod("ListReports"), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ReportsClient) ExportReport(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	out := new(wrapperspb.BytesValue)
	if err := c.cc.Invoke(ctx, fullMethod("ExportReport"), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ReportsClient) Explain(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*wrapperspb.StringValue, error) {
	out := new(wrapperspb.StringValue)
	if err := c.cc.Invoke(ctx, fullMethod("Explain"), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
