package ml

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"
)

// InferenceMethod is the unary RPC a remote model server must implement. Request and
// response are google.protobuf.Struct values:
//
//	request:  {"features": ["highwaympg", ...], "instances": [[30, 2500, 100]]}
//	response: {"predictions": [[12345.678]]}
const InferenceMethod = "/carprice.Inference/Predict"

// RemoteModel forwards predictions to a model served over gRPC.
type RemoteModel struct {
	conn    *grpc.ClientConn
	timeout time.Duration
}

// DialRemote creates a client for addr. The connection is established lazily, so an
// unreachable server surfaces on the first Predict.
func DialRemote(addr string, timeout time.Duration) (*RemoteModel, error) {
	if addr == "" {
		return nil, errors.New("remote model address is required")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to model server: %w", err)
	}
	return &RemoteModel{conn: conn, timeout: timeout}, nil
}

func (m *RemoteModel) Predict(ctx context.Context, f Features) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	names := make([]interface{}, len(FeatureOrder))
	for i, name := range FeatureOrder {
		names[i] = name
	}
	row := make([]interface{}, 0, len(FeatureOrder))
	for _, v := range f.Vector() {
		row = append(row, v)
	}
	req, err := structpb.NewStruct(map[string]interface{}{
		"features":  names,
		"instances": []interface{}{row},
	})
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}

	resp := &structpb.Struct{}
	if err := m.conn.Invoke(ctx, InferenceMethod, req, resp); err != nil {
		return 0, err
	}
	predictions, ok := resp.GetFields()["predictions"]
	if !ok {
		return 0, errors.New("model server response has no predictions")
	}
	return firstNumber(predictions)
}

func (m *RemoteModel) Close() error {
	return m.conn.Close()
}

// firstNumber descends into nested lists and returns the first numeric element.
func firstNumber(v *structpb.Value) (float64, error) {
	switch kind := v.GetKind().(type) {
	case *structpb.Value_NumberValue:
		return kind.NumberValue, nil
	case *structpb.Value_ListValue:
		values := kind.ListValue.GetValues()
		if len(values) == 0 {
			return 0, errors.New("model server returned empty predictions")
		}
		return firstNumber(values[0])
	default:
		return 0, fmt.Errorf("unexpected prediction value %v", v.AsInterface())
	}
}
