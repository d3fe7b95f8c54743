package server

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	ServiceName = "palletscan.v1.PalletService"

	LookupMethod = "/" + ServiceName + "/Lookup"
	UploadMethod = "/" + ServiceName + "/Upload"
	ScanMethod   = "/" + ServiceName + "/Scan"
)

// PalletServiceServer is the server API. Requests and replies are
// google.protobuf.Struct documents whose fields are described on each method.
type PalletServiceServer interface {
	// Lookup takes {pallet_ids: [string]} and returns {records: [record]}.
	Lookup(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// Upload takes {records: [record]} and returns {inserted: number}.
	Upload(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// Scan takes {paths: [string], strategy?: string, upload?: bool} and returns
	// {run_id, strategy, records, failures, inserted, upload_error?}.
	Scan(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// ServiceDesc describes PalletService for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*PalletServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Lookup", Handler: unaryHandler(LookupMethod, PalletServiceServer.Lookup)},
		{MethodName: "Upload", Handler: unaryHandler(UploadMethod, PalletServiceServer.Upload)},
		{MethodName: "Scan", Handler: unaryHandler(ScanMethod, PalletServiceServer.Scan)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "palletscan/v1/pallet.proto",
}

// Register attaches srv to s.
func Register(s grpc.ServiceRegistrar, srv PalletServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

type method func(PalletServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(fullMethod string, call method) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(PalletServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(PalletServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}
