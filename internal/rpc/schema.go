// Package rpc exposes the matching core over gRPC using schema-free dynamic
// messages (jhump/protoreflect's protoparse.Parser + dynamic.NewMessage),
// precisely the no-codegen pattern the teacher itself uses in
// internal/evaluator/builtins_grpc.go (grpcLoadProto/grpcRegister/
// FunxyGrpcHandler.HandleUnary) for its lib/grpc and lib/proto builtins —
// there is no generated .pb.go here, the .proto text below is parsed once at
// process startup.
package rpc

import (
	"fmt"

	"github.com/jhump/protoreflect/desc"
	"github.com/jhump/protoreflect/desc/protoparse"
)

// schemaSource is the in-memory .proto schema for MatchService: one unary
// RPC accepting a pattern/subject pair (patternlang source text) and
// returning every substitution the core yielded, with the request's trace
// id echoed on the response for correlation.
const schemaSource = `
syntax = "proto3";
package acmatch;

message MatchRequest {
  string pattern = 1;
  string subject = 2;
  string trace_id = 3;
}

message Binding {
  string name = 1;
  string value = 2;
}

message Substitution {
  repeated Binding bindings = 1;
}

message MatchResponse {
  string trace_id = 1;
  repeated Substitution substitutions = 2;
  string error = 3;
}

service MatchService {
  rpc Match(MatchRequest) returns (MatchResponse);
}
`

const schemaFileName = "acmatch/match.proto"

// loadSchema parses schemaSource in memory, exactly the no-.proto-file-on-
// disk shape grpcLoadProto's caller would use when handed inline schema
// text rather than a path, via protoparse.Parser's Accessor hook.
func loadSchema() (*desc.FileDescriptor, error) {
	parser := protoparse.Parser{
		Accessor: protoparse.FileContentsFromMap(map[string]string{
			schemaFileName: schemaSource,
		}),
	}
	fds, err := parser.ParseFiles(schemaFileName)
	if err != nil {
		return nil, fmt.Errorf("rpc: parsing embedded schema: %w", err)
	}
	if len(fds) == 0 {
		return nil, fmt.Errorf("rpc: embedded schema produced no file descriptor")
	}
	return fds[0], nil
}

// descriptors bundles every message/service descriptor the server and
// client need, resolved once from the parsed schema.
type descriptors struct {
	service      *desc.ServiceDescriptor
	requestType  *desc.MessageDescriptor
	responseType *desc.MessageDescriptor
	substitution *desc.MessageDescriptor
	binding      *desc.MessageDescriptor
}

func loadDescriptors() (*descriptors, error) {
	fd, err := loadSchema()
	if err != nil {
		return nil, err
	}
	svc := fd.FindService("acmatch.MatchService")
	if svc == nil {
		return nil, fmt.Errorf("rpc: service acmatch.MatchService not found in embedded schema")
	}
	req := fd.FindMessage("acmatch.MatchRequest")
	resp := fd.FindMessage("acmatch.MatchResponse")
	sub := fd.FindMessage("acmatch.Substitution")
	bind := fd.FindMessage("acmatch.Binding")
	if req == nil || resp == nil || sub == nil || bind == nil {
		return nil, fmt.Errorf("rpc: embedded schema is missing an expected message type")
	}
	return &descriptors{service: svc, requestType: req, responseType: resp, substitution: sub, binding: bind}, nil
}
