package rpc

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jhump/protoreflect/dynamic"
	"google.golang.org/grpc"

	"github.com/acmatch/acmatch/internal/match"
	"github.com/acmatch/acmatch/internal/patternlang"
	"github.com/acmatch/acmatch/internal/term"
	"github.com/acmatch/acmatch/internal/wire"
)

// MatchServer implements acmatch.MatchService by compiling the request's
// pattern/subject text with patternlang and running it through the core.
// Every call is tagged with a uuid.New() trace id echoed back on the
// response, matching the teacher's identifier-tagging convention in
// internal/ext.
type MatchServer struct {
	descriptors *descriptors
	resolver    patternlang.ConstraintResolver
}

// NewMatchServer parses the embedded schema and returns a server ready to
// register, resolving where-clause constraints (if any) against resolver
// (nil is fine for constraint-free patterns).
func NewMatchServer(resolver patternlang.ConstraintResolver) (*MatchServer, error) {
	d, err := loadDescriptors()
	if err != nil {
		return nil, err
	}
	return &MatchServer{descriptors: d, resolver: resolver}, nil
}

// Register builds a grpc.ServiceDesc from the parsed schema's service
// descriptor and registers it on server, exactly grpcRegister's shape:
// a dynamic ServiceDesc with a handler that decodes a dynamic.Message,
// dispatches to the matching Go method, and re-encodes the result —
// no generated *_grpc.pb.go stub anywhere in this path.
func (s *MatchServer) Register(server *grpc.Server) {
	desc := &grpc.ServiceDesc{
		ServiceName: s.descriptors.service.GetFullyQualifiedName(),
		HandlerType: (*interface{})(nil),
		Metadata:    schemaFileName,
	}
	for _, method := range s.descriptors.service.GetMethods() {
		methodName := method.GetName()
		desc.Methods = append(desc.Methods, grpc.MethodDesc{
			MethodName: methodName,
			Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, _ grpc.UnaryServerInterceptor) (interface{}, error) {
				return srv.(*MatchServer).handleMatch(ctx, dec)
			},
		})
	}
	server.RegisterService(desc, s)
}

func (s *MatchServer) handleMatch(ctx context.Context, dec func(interface{}) error) (interface{}, error) {
	req := dynamic.NewMessage(s.descriptors.requestType)
	if err := dec(req); err != nil {
		return nil, err
	}

	reqDesc := req.GetMessageDescriptor()
	patternStr, _ := req.GetField(reqDesc.FindFieldByName("pattern")).(string)
	subjectStr, _ := req.GetField(reqDesc.FindFieldByName("subject")).(string)
	traceIDStr, _ := req.GetField(reqDesc.FindFieldByName("trace_id")).(string)
	if traceIDStr == "" {
		traceIDStr = uuid.New().String()
	}

	resp := dynamic.NewMessage(s.descriptors.responseType)
	respDesc := resp.GetMessageDescriptor()
	resp.SetField(respDesc.FindFieldByName("trace_id"), traceIDStr)

	patternExpr, err := patternlang.Compile(patternStr, s.resolver)
	if err != nil {
		resp.SetField(respDesc.FindFieldByName("error"), fmt.Sprintf("compiling pattern: %v", err))
		return resp, nil
	}
	subjectExpr, err := patternlang.Compile(subjectStr, s.resolver)
	if err != nil {
		resp.SetField(respDesc.FindFieldByName("error"), fmt.Sprintf("compiling subject: %v", err))
		return resp, nil
	}

	results, err := match.Try([]term.Expression{subjectExpr}, patternExpr, term.NewSubstitution())
	if err != nil {
		resp.SetField(respDesc.FindFieldByName("error"), err.Error())
		return resp, nil
	}

	bindingLists := wire.RecordSubstitutions(results)
	subFieldDesc := s.descriptors.substitution.FindFieldByName("bindings")
	bindingNameDesc := s.descriptors.binding.FindFieldByName("name")
	bindingValueDesc := s.descriptors.binding.FindFieldByName("value")

	var subMessages []interface{}
	for _, bindings := range bindingLists {
		subMsg := dynamic.NewMessage(s.descriptors.substitution)
		var bindingMessages []interface{}
		for _, b := range bindings {
			bMsg := dynamic.NewMessage(s.descriptors.binding)
			bMsg.SetField(bindingNameDesc, b.Name)
			bMsg.SetField(bindingValueDesc, b.Value)
			bindingMessages = append(bindingMessages, bMsg)
		}
		subMsg.SetField(subFieldDesc, bindingMessages)
		subMessages = append(subMessages, subMsg)
	}
	resp.SetField(respDesc.FindFieldByName("substitutions"), subMessages)

	return resp, nil
}
