package server

import (
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/known/structpb"
)

// protoFile is the descriptor served by reflection for PalletService.
var protoFile protoreflect.FileDescriptor

func init() {
	fd, err := buildProtoFile()
	if err != nil {
		panic(err)
	}
	if err := protoregistry.GlobalFiles.RegisterFile(fd); err != nil {
		panic(fmt.Sprintf("register %s: %v", fd.Path(), err))
	}
	protoFile = fd
}

func buildProtoFile() (protoreflect.FileDescriptor, error) {
	structFile := structpb.File_google_protobuf_struct_proto
	structName := "." + string((&structpb.Struct{}).ProtoReflect().Descriptor().FullName())

	methods := make([]*descriptorpb.MethodDescriptorProto, 0, len(ServiceDesc.Methods))
	for _, m := range ServiceDesc.Methods {
		methods = append(methods, &descriptorpb.MethodDescriptorProto{
			Name:       proto.String(m.MethodName),
			InputType:  proto.String(structName),
			OutputType: proto.String(structName),
		})
	}
	fdp := &descriptorpb.FileDescriptorProto{
		Name:       proto.String(ServiceDesc.Metadata.(string)),
		Package:    proto.String("palletscan.v1"),
		Syntax:     proto.String("proto3"),
		Dependency: []string{structFile.Path()},
		Service: []*descriptorpb.ServiceDescriptorProto{{
			Name:   proto.String("PalletService"),
			Method: methods,
		}},
	}
	fd, err := protodesc.NewFile(fdp, protoregistry.GlobalFiles)
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", fdp.GetName(), err)
	}
	return fd, nil
}
