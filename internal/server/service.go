package server

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "solitaire.v1.Solitaire"

// Method names of the Solitaire service.
const (
	MethodCreateSession  = "CreateSession"
	MethodCloseSession   = "CloseSession"
	MethodPing           = "Ping"
	MethodStartGame      = "StartGame"
	MethodPlayAgain      = "PlayAgain"
	MethodNewGame        = "NewGame"
	MethodGetState       = "GetState"
	MethodDraw           = "Draw"
	MethodMove           = "Move"
	MethodUndo           = "Undo"
	MethodBeginDrag      = "BeginDrag"
	MethodDrop           = "Drop"
	MethodCancelDrag     = "CancelDrag"
	MethodRequestHint    = "RequestHint"
	MethodGetReplay      = "GetReplay"
	MethodGetServerState = "GetServerState"
)

// FullMethod returns the gRPC path of a Solitaire method, e.g. /solitaire.v1.Solitaire/Draw.
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// SolitaireServer is the server API of the Solitaire service. Requests and responses are
// google.protobuf.Struct documents; field names are snake_case.
type SolitaireServer interface {
	CreateSession(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CloseSession(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Ping(context.Context, *structpb.Struct) (*structpb.Struct, error)
	StartGame(context.Context, *structpb.Struct) (*structpb.Struct, error)
	PlayAgain(context.Context, *structpb.Struct) (*structpb.Struct, error)
	NewGame(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetState(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Draw(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Move(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Undo(context.Context, *structpb.Struct) (*structpb.Struct, error)
	BeginDrag(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Drop(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CancelDrag(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RequestHint(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetReplay(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetServerState(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryCall func(SolitaireServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(method string, call unaryCall) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(SolitaireServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: FullMethod(method),
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(SolitaireServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// ServiceDesc describes the Solitaire service for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SolitaireServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: MethodCreateSession, Handler: unaryHandler(MethodCreateSession, SolitaireServer.CreateSession)},
		{MethodName: MethodCloseSession, Handler: unaryHandler(MethodCloseSession, SolitaireServer.CloseSession)},
		{MethodName: MethodPing, Handler: unaryHandler(MethodPing, SolitaireServer.Ping)},
		{MethodName: MethodStartGame, Handler: unaryHandler(MethodStartGame, SolitaireServer.StartGame)},
		{MethodName: MethodPlayAgain, Handler: unaryHandler(MethodPlayAgain, SolitaireServer.PlayAgain)},
		{MethodName: MethodNewGame, Handler: unaryHandler(MethodNewGame, SolitaireServer.NewGame)},
		{MethodName: MethodGetState, Handler: unaryHandler(MethodGetState, SolitaireServer.GetState)},
		{MethodName: MethodDraw, Handler: unaryHandler(MethodDraw, SolitaireServer.Draw)},
		{MethodName: MethodMove, Handler: unaryHandler(MethodMove, SolitaireServer.Move)},
		{MethodName: MethodUndo, Handler: unaryHandler(MethodUndo, SolitaireServer.Undo)},
		{MethodName: MethodBeginDrag, Handler: unaryHandler(MethodBeginDrag, SolitaireServer.BeginDrag)},
		{MethodName: MethodDrop, Handler: unaryHandler(MethodDrop, SolitaireServer.Drop)},
		{MethodName: MethodCancelDrag, Handler: unaryHandler(MethodCancelDrag, SolitaireServer.CancelDrag)},
		{MethodName: MethodRequestHint, Handler: unaryHandler(MethodRequestHint, SolitaireServer.RequestHint)},
		{MethodName: MethodGetReplay, Handler: unaryHandler(MethodGetReplay, SolitaireServer.GetReplay)},
		{MethodName: MethodGetServerState, Handler: unaryHandler(MethodGetServerState, SolitaireServer.GetServerState)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "solitaire/v1/solitaire.proto",
}

// RegisterSolitaireServer registers srv with s.
func RegisterSolitaireServer(s grpc.ServiceRegistrar, srv SolitaireServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// Client calls the Solitaire service.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps a client connection.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Call invokes method with the given request fields. Field values must be representable as
// google.protobuf.Value (strings, numbers, bools, nil, []any, map[string]any).
func (c *Client) Call(ctx context.Context, method string, fields map[string]any, opts ...grpc.CallOption) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, FullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
