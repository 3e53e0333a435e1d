package handler

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// サービス名は cafestaff.v1 パッケージのものです。
const (
	CafeServiceName     = "cafestaff.v1.CafeService"
	EmployeeServiceName = "cafestaff.v1.EmployeeService"
)

// CafeServiceServer は CafeService のサーバー側インターフェースです。
type CafeServiceServer interface {
	CreateCafe(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	UpdateCafe(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	DeleteCafe(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetCafe(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ListCafes(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

// EmployeeServiceServer は EmployeeService のサーバー側インターフェースです。
type EmployeeServiceServer interface {
	CreateEmployee(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	UpdateEmployee(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	DeleteEmployee(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetEmployee(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ListEmployees(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

type structMethod[S any] func(srv S, ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)

func unaryHandler[S any](fullMethod string, call structMethod[S]) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(S), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(S), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func method[S any](service, name string, call structMethod[S]) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler:    unaryHandler("/"+service+"/"+name, call),
	}
}

// CafeServiceDesc は CafeService の grpc.ServiceDesc です。
var CafeServiceDesc = grpc.ServiceDesc{
	ServiceName: CafeServiceName,
	HandlerType: (*CafeServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		method(CafeServiceName, "CreateCafe", CafeServiceServer.CreateCafe),
		method(CafeServiceName, "UpdateCafe", CafeServiceServer.UpdateCafe),
		method(CafeServiceName, "DeleteCafe", CafeServiceServer.DeleteCafe),
		method(CafeServiceName, "GetCafe", CafeServiceServer.GetCafe),
		method(CafeServiceName, "ListCafes", CafeServiceServer.ListCafes),
	},
	Streams: []grpc.StreamDesc{},
}

// EmployeeServiceDesc は EmployeeService の grpc.ServiceDesc です。
var EmployeeServiceDesc = grpc.ServiceDesc{
	ServiceName: EmployeeServiceName,
	HandlerType: (*EmployeeServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		method(EmployeeServiceName, "CreateEmployee", EmployeeServiceServer.CreateEmployee),
		method(EmployeeServiceName, "UpdateEmployee", EmployeeServiceServer.UpdateEmployee),
		method(EmployeeServiceName, "DeleteEmployee", EmployeeServiceServer.DeleteEmployee),
		method(EmployeeServiceName, "GetEmployee", EmployeeServiceServer.GetEmployee),
		method(EmployeeServiceName, "ListEmployees", EmployeeServiceServer.ListEmployees),
	},
	Streams: []grpc.StreamDesc{},
}

// RegisterCafeServiceServer は CafeService を登録します。
func RegisterCafeServiceServer(s grpc.ServiceRegistrar, srv CafeServiceServer) {
	s.RegisterService(&CafeServiceDesc, srv)
}

// RegisterEmployeeServiceServer は EmployeeService を登録します。
func RegisterEmployeeServiceServer(s grpc.ServiceRegistrar, srv EmployeeServiceServer) {
	s.RegisterService(&EmployeeServiceDesc, srv)
}
