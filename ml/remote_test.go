package ml

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

type fakeInference struct {
	received []interface{}
	reply    func(instances []interface{}) (*structpb.Struct, error)
}

func startInferenceServer(t *testing.T, srv *fakeInference) string {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	desc := grpc.ServiceDesc{
		ServiceName: "carprice.Inference",
		HandlerType: (*interface{})(nil),
		Methods: []grpc.MethodDesc{{
			MethodName: "Predict",
			Handler: func(_ interface{}, ctx context.Context, dec func(interface{}) error, _ grpc.UnaryServerInterceptor) (interface{}, error) {
				in := &structpb.Struct{}
				if err := dec(in); err != nil {
					return nil, err
				}
				instances := in.GetFields()["instances"].GetListValue().AsSlice()
				srv.received = instances
				return srv.reply(instances)
			},
		}},
	}
	s := grpc.NewServer()
	s.RegisterService(&desc, srv)
	go s.Serve(lis)
	t.Cleanup(s.Stop)
	return lis.Addr().String()
}

func TestRemoteModelPredict(t *testing.T) {
	srv := &fakeInference{reply: func(instances []interface{}) (*structpb.Struct, error) {
		return structpb.NewStruct(map[string]interface{}{
			"predictions": []interface{}{[]interface{}{12345.678}},
		})
	}}
	addr := startInferenceServer(t, srv)

	p, err := LoadModel(TypeRemote, "", LoadOptions{RemoteAddr: addr, RemoteTimeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer Close(p)

	got, err := p.Predict(context.Background(), Features{HighwayMPG: 30, Curbweight: 2500, Horsepower: 100})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 12345.678 {
		t.Fatalf("expected 12345.678, got %v", got)
	}
	if len(srv.received) != 1 {
		t.Fatalf("expected one instance, got %v", srv.received)
	}
	row, ok := srv.received[0].([]interface{})
	if !ok || len(row) != 3 || row[0] != 30.0 || row[1] != 2500.0 || row[2] != 100.0 {
		t.Fatalf("unexpected instance sent: %v", srv.received[0])
	}
}

func TestRemoteModelErrors(t *testing.T) {
	srv := &fakeInference{reply: func([]interface{}) (*structpb.Struct, error) {
		return nil, errors.New("model crashed")
	}}
	addr := startInferenceServer(t, srv)
	p, err := DialRemote(addr, time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer p.Close()
	if _, err := p.Predict(context.Background(), Features{}); err == nil {
		t.Fatal("expected error from failing server")
	}

	if _, err := DialRemote("", time.Second); err == nil {
		t.Fatal("expected error for empty address")
	}
}

func TestFirstNumber(t *testing.T) {
	nested, _ := structpb.NewValue([]interface{}{[]interface{}{1.5, 2.0}})
	if v, err := firstNumber(nested); err != nil || v != 1.5 {
		t.Fatalf("expected 1.5, got %v (%v)", v, err)
	}
	empty, _ := structpb.NewValue([]interface{}{})
	if _, err := firstNumber(empty); err == nil {
		t.Fatal("expected error for empty list")
	}
	text := structpb.NewStringValue("12")
	if _, err := firstNumber(text); err == nil {
		t.Fatal("expected error for string value")
	}
}
