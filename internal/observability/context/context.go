package context

import (
	stdctx "context"
	"strings"
)

type ctxKey int

const (
	requestIDKey ctxKey = iota
	actorKey
	clientKey
)

type actor struct {
	actorType string
	actorID   string
	role      string
}

type client struct {
	ip        string
	userAgent string
}

func WithRequestID(ctx stdctx.Context, requestID string) stdctx.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return stdctx.WithValue(ctx, requestIDKey, requestID)
}

func RequestIDFromContext(ctx stdctx.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(requestIDKey).(string)
	return value
}

// WithActor records who is acting for logging and auditing. It is never used
// for authorization decisions.
func WithActor(ctx stdctx.Context, actorType, actorID, role string) stdctx.Context {
	return stdctx.WithValue(ctx, actorKey, actor{
		actorType: strings.TrimSpace(actorType),
		actorID:   strings.TrimSpace(actorID),
		role:      strings.TrimSpace(role),
	})
}

func ActorFromContext(ctx stdctx.Context) (string, string) {
	if ctx == nil {
		return "", ""
	}
	value, _ := ctx.Value(actorKey).(actor)
	return value.actorType, value.actorID
}

func RoleFromContext(ctx stdctx.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(actorKey).(actor)
	return value.role
}

func WithClient(ctx stdctx.Context, ip, userAgent string) stdctx.Context {
	return stdctx.WithValue(ctx, clientKey, client{
		ip:        strings.TrimSpace(ip),
		userAgent: strings.TrimSpace(userAgent),
	})
}

func ClientFromContext(ctx stdctx.Context) (string, string) {
	if ctx == nil {
		return "", ""
	}
	value, _ := ctx.Value(clientKey).(client)
	return value.ip, value.userAgent
}
