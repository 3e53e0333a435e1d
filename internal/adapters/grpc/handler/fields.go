package handler

import (
	"fmt"
	"math"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	dateLayout      = "2006-01-02"
	timestampLayout = time.RFC3339Nano
)

func requireRequest(req *structpb.Struct) error {
	if req == nil {
		return status.Error(codes.InvalidArgument, "request is required")
	}
	return nil
}

// stringField は文字列フィールドを返します。未設定と null は空文字です。
func stringField(req *structpb.Struct, key string) (string, error) {
	value, _, err := nullableStringField(req, key)
	if err != nil || value == nil {
		return "", err
	}
	return *value, nil
}

// optionalStringField は設定されている場合のみ値を返します。null は未設定と同じ扱いです。
func optionalStringField(req *structpb.Struct, key string) (*string, error) {
	value, _, err := nullableStringField(req, key)
	return value, err
}

// nullableStringField はフィールドの値と、キーが存在したかを返します。
// 明示的な null はキーが存在し値が nil の状態になります。
func nullableStringField(req *structpb.Struct, key string) (*string, bool, error) {
	v, ok := req.GetFields()[key]
	if !ok {
		return nil, false, nil
	}

	switch kind := v.GetKind().(type) {
	case *structpb.Value_NullValue:
		return nil, true, nil
	case *structpb.Value_StringValue:
		s := kind.StringValue
		return &s, true, nil
	default:
		return nil, true, status.Error(codes.InvalidArgument, fmt.Sprintf("%s must be a string", key))
	}
}

func intField(req *structpb.Struct, key string) (int, error) {
	v, ok := req.GetFields()[key]
	if !ok {
		return 0, nil
	}

	switch kind := v.GetKind().(type) {
	case *structpb.Value_NullValue:
		return 0, nil
	case *structpb.Value_NumberValue:
		n := kind.NumberValue
		if n != math.Trunc(n) || n < math.MinInt32 || n > math.MaxInt32 {
			return 0, status.Error(codes.InvalidArgument, fmt.Sprintf("%s must be an integer", key))
		}
		return int(n), nil
	default:
		return 0, status.Error(codes.InvalidArgument, fmt.Sprintf("%s must be a number", key))
	}
}

func toStruct(fields map[string]any) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("encode response: %v", err))
	}
	return out, nil
}

func stringOrNil(value *string) any {
	if value == nil {
		return nil
	}
	return *value
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}
