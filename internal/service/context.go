package service

import "context"

type contextKey string

const (
	operatorKey contextKey = "operator"
	traceIDKey  contextKey = "trace_id"
)

// OperatorInfo is the authenticated caller identity.
type OperatorInfo struct {
	UserID   int64
	Username string
	Role     string
}

// WithOperator injects the operator info into the context
func WithOperator(ctx context.Context, op *OperatorInfo) context.Context {
	return context.WithValue(ctx, operatorKey, op)
}

// GetOperatorInfo retrieves the operator info from the context
func GetOperatorInfo(ctx context.Context) *OperatorInfo {
	val, ok := ctx.Value(operatorKey).(*OperatorInfo)
	if !ok {
		return nil
	}
	return val
}

// WithTraceID injects the request trace id into the context
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

// TraceID retrieves the request trace id from the context, "" when absent
func TraceID(ctx context.Context) string {
	val, _ := ctx.Value(traceIDKey).(string)
	return val
}
