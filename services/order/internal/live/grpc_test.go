package live

import (
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

func dialLiveFeed(t *testing.T, hub *Hub) *grpc.ClientConn {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	server := grpc.NewServer()
	NewGRPCServer(hub, nil).RegisterGRPCService(server)
	go server.Serve(lis)
	t.Cleanup(server.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func openLiveStream(ctx context.Context, t *testing.T, conn *grpc.ClientConn, fields map[string]interface{}) grpc.ClientStream {
	t.Helper()
	stream, err := conn.NewStream(ctx, &grpc.StreamDesc{StreamName: "Subscribe", ServerStreams: true}, GRPCSubscribeMethod)
	if err != nil {
		t.Fatalf("NewStream() error = %v", err)
	}
	req, err := structpb.NewStruct(fields)
	if err != nil {
		t.Fatalf("NewStruct() error = %v", err)
	}
	if err := stream.SendMsg(req); err != nil {
		t.Fatalf("SendMsg() error = %v", err)
	}
	if err := stream.CloseSend(); err != nil {
		t.Fatalf("CloseSend() error = %v", err)
	}
	return stream
}

func recvMessage(t *testing.T, stream grpc.ClientStream) Message {
	t.Helper()
	st := new(structpb.Struct)
	if err := stream.RecvMsg(st); err != nil {
		t.Fatalf("RecvMsg() error = %v", err)
	}
	msg, err := FromStruct(st)
	if err != nil {
		t.Fatalf("FromStruct() error = %v", err)
	}
	return msg
}

func TestGRPCSubscribe(t *testing.T) {
	hub := newTestHub(&MockSnapshotter{Records: map[string][]json.RawMessage{
		CollectionMenuCategories: {json.RawMessage(`{"name":"Mains","order":1}`)},
	}})
	conn := dialLiveFeed(t, hub)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	stream := openLiveStream(ctx, t, conn, map[string]interface{}{"collection": CollectionMenuCategories})

	snapshot := recvMessage(t, stream)
	if snapshot.Type != MessageSnapshot || len(snapshot.Records) != 1 {
		t.Fatalf("snapshot = %+v", snapshot)
	}
	var category struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(snapshot.Records[0], &category); err != nil || category.Name != "Mains" {
		t.Errorf("snapshot record = %s", snapshot.Records[0])
	}

	hub.Publish(Change{Collection: CollectionMenuCategories, Op: OpDelete, ID: "cat-1"})

	change := recvMessage(t, stream)
	if change.Type != MessageChange || change.Change == nil || change.Change.Op != OpDelete || change.Change.ID != "cat-1" {
		t.Errorf("change = %+v", change)
	}

	cancel()
	waitForSubscribers(t, hub, 0)
}

func TestGRPCSubscribeInvalidFilter(t *testing.T) {
	conn := dialLiveFeed(t, newTestHub(&MockSnapshotter{}))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	stream := openLiveStream(ctx, t, conn, map[string]interface{}{"collection": "orders", "view": "archive"})

	err := stream.RecvMsg(new(structpb.Struct))
	if status.Code(err) != codes.InvalidArgument {
		t.Errorf("RecvMsg() error = %v, want InvalidArgument", err)
	}
}

func TestStructRoundTrip(t *testing.T) {
	msg := Message{
		Type:       MessageChange,
		Collection: CollectionOrders,
		View:       "kitchen",
		Records:    []json.RawMessage{},
		Change:     &Change{Collection: CollectionOrders, Op: OpUpsert, ID: "o1", Record: json.RawMessage(`{"total":27}`)},
	}

	st, err := ToStruct(msg)
	if err != nil {
		t.Fatalf("ToStruct() error = %v", err)
	}
	if got := st.GetFields()["view"].GetStringValue(); got != "kitchen" {
		t.Errorf("view field = %q", got)
	}

	back, err := FromStruct(st)
	if err != nil {
		t.Fatalf("FromStruct() error = %v", err)
	}
	if back.Change == nil || back.Change.ID != "o1" || back.View != "kitchen" {
		t.Errorf("FromStruct() = %+v", back)
	}
}
