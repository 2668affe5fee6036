package live

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/appetiteclub/apt"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	GRPCServiceName     = "tableflow.live.v1.LiveFeed"
	GRPCSubscribeMethod = "/" + GRPCServiceName + "/Subscribe"
)

// LiveFeedServer streams the same messages as the HTTP transports. Requests
// are a Struct with "collection" and "view" fields; every response is a
// Struct shaped like Message.
type LiveFeedServer interface {
	Subscribe(req *structpb.Struct, stream grpc.ServerStream) error
}

var liveFeedServiceDesc = grpc.ServiceDesc{
	ServiceName: GRPCServiceName,
	HandlerType: (*LiveFeedServer)(nil),
	Methods:     []grpc.MethodDesc{},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Subscribe",
			Handler:       subscribeStreamHandler,
			ServerStreams: true,
		},
	},
	Metadata: "tableflow/live/v1/live.proto",
}

func subscribeStreamHandler(srv interface{}, stream grpc.ServerStream) error {
	req := new(structpb.Struct)
	if err := stream.RecvMsg(req); err != nil {
		return err
	}
	return srv.(LiveFeedServer).Subscribe(req, stream)
}

type GRPCServer struct {
	hub    *Hub
	logger apt.Logger
}

func NewGRPCServer(hub *Hub, logger apt.Logger) *GRPCServer {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &GRPCServer{hub: hub, logger: logger}
}

// RegisterGRPCService registers the live feed with server.
func (s *GRPCServer) RegisterGRPCService(server *grpc.Server) {
	server.RegisterService(&liveFeedServiceDesc, s)
}

func (s *GRPCServer) Subscribe(req *structpb.Struct, stream grpc.ServerStream) error {
	ctx := stream.Context()
	fields := req.GetFields()
	f := Filter{
		Collection: fields["collection"].GetStringValue(),
		View:       fields["view"].GetStringValue(),
	}

	snapshot, sub, err := s.hub.Subscribe(ctx, f)
	if err != nil {
		if errors.Is(err, ErrUnknownCollection) || errors.Is(err, ErrUnknownView) {
			return status.Error(codes.InvalidArgument, err.Error())
		}
		s.logger.Error("cannot load live snapshot", "error", err)
		return status.Error(codes.Unavailable, "could not load snapshot")
	}
	defer s.hub.Unsubscribe(sub.ID)

	s.logger.Info("new gRPC live subscriber", "subscriber_id", sub.ID, "collection", sub.Filter.Collection, "view", sub.Filter.View)

	if err := sendStruct(stream, snapshot); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("gRPC live subscriber disconnected", "subscriber_id", sub.ID)
			return nil
		case msg, ok := <-sub.Events():
			if !ok {
				return nil
			}
			if err := sendStruct(stream, msg); err != nil {
				s.logger.Info("failed to send live message", "subscriber_id", sub.ID, "error", err)
				return err
			}
		}
	}
}

func sendStruct(stream grpc.ServerStream, msg Message) error {
	st, err := ToStruct(msg)
	if err != nil {
		return status.Error(codes.Internal, err.Error())
	}
	return stream.SendMsg(st)
}

// ToStruct converts msg through its JSON form.
func ToStruct(msg Message) (*structpb.Struct, error) {
	raw, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	st, err := structpb.NewStruct(m)
	if err != nil {
		return nil, fmt.Errorf("cannot build struct: %w", err)
	}
	return st, nil
}

// FromStruct is the inverse of ToStruct, used by Go clients of the stream.
func FromStruct(st *structpb.Struct) (Message, error) {
	raw, err := json.Marshal(st.AsMap())
	if err != nil {
		return Message{}, err
	}
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return Message{}, err
	}
	return msg, nil
}
