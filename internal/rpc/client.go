package rpc

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jhump/protoreflect/dynamic"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/acmatch/acmatch/internal/wire"
)

// Client invokes a remote MatchService, built against the same embedded
// schema the server parses, mirroring grpcConnect/grpcInvoke's split between
// dialing a target and resolving a method against loaded descriptors.
type Client struct {
	conn        *grpc.ClientConn
	descriptors *descriptors
	methodPath  string
}

// Dial connects to target with insecure transport credentials, exactly
// builtinGrpcConnect's grpc.NewClient(target, grpc.WithTransportCredentials(
// insecure.NewCredentials())) call, there being no TLS story for a local
// matching service.
func Dial(target string) (*Client, error) {
	conn, err := grpc.NewClient(target, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("rpc: dialing %s: %w", target, err)
	}
	d, err := loadDescriptors()
	if err != nil {
		conn.Close()
		return nil, err
	}
	return &Client{
		conn:        conn,
		descriptors: d,
		methodPath:  "/" + d.service.GetFullyQualifiedName() + "/Match",
	}, nil
}

// Close tears down the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Match sends pattern and subject as patternlang source text and returns
// the yielded substitutions, assigning a trace id if traceID is empty so
// every call can be correlated in logs on both ends.
func (c *Client) Match(ctx context.Context, pattern, subject, traceID string) ([][]wire.Binding, string, error) {
	if traceID == "" {
		traceID = uuid.New().String()
	}

	reqMsg := dynamic.NewMessage(c.descriptors.requestType)
	reqDesc := reqMsg.GetMessageDescriptor()
	reqMsg.SetField(reqDesc.FindFieldByName("pattern"), pattern)
	reqMsg.SetField(reqDesc.FindFieldByName("subject"), subject)
	reqMsg.SetField(reqDesc.FindFieldByName("trace_id"), traceID)

	respMsg := dynamic.NewMessage(c.descriptors.responseType)
	if err := c.conn.Invoke(ctx, c.methodPath, reqMsg, respMsg); err != nil {
		return nil, "", fmt.Errorf("rpc: invoking %s: %w", c.methodPath, err)
	}

	respDesc := respMsg.GetMessageDescriptor()
	respTraceID, _ := respMsg.GetField(respDesc.FindFieldByName("trace_id")).(string)
	if errStr, _ := respMsg.GetField(respDesc.FindFieldByName("error")).(string); errStr != "" {
		return nil, respTraceID, fmt.Errorf("rpc: match failed: %s", errStr)
	}

	subsField, _ := respMsg.GetField(respDesc.FindFieldByName("substitutions")).([]interface{})
	substitutions := make([][]wire.Binding, 0, len(subsField))
	for _, raw := range subsField {
		subMsg, ok := raw.(*dynamic.Message)
		if !ok {
			continue
		}
		subDesc := subMsg.GetMessageDescriptor()
		bindingsField, _ := subMsg.GetField(subDesc.FindFieldByName("bindings")).([]interface{})
		bindings := make([]wire.Binding, 0, len(bindingsField))
		for _, rawBinding := range bindingsField {
			bMsg, ok := rawBinding.(*dynamic.Message)
			if !ok {
				continue
			}
			bDesc := bMsg.GetMessageDescriptor()
			name, _ := bMsg.GetField(bDesc.FindFieldByName("name")).(string)
			value, _ := bMsg.GetField(bDesc.FindFieldByName("value")).(string)
			bindings = append(bindings, wire.Binding{Name: name, Value: value})
		}
		substitutions = append(substitutions, bindings)
	}
	return substitutions, respTraceID, nil
}
