package requestdata

import (
	"context"

	"github.com/google/uuid"
)

type contextKey struct{}

var requestDataKey = contextKey{}

// RequestData carries the resolved tenant identity for one request. The
// engine performs no authentication itself; the middleware fills this in
// from the verified token claims.
type RequestData struct {
	OrganizationID uuid.UUID
	UserID         uuid.UUID
	Role           string
}

func WithRequestData(ctx context.Context, rd *RequestData) context.Context {
	return context.WithValue(ctx, requestDataKey, rd)
}

func GetRequestData(ctx context.Context) *RequestData {
	if rd, ok := ctx.Value(requestDataKey).(*RequestData); ok {
		return rd
	}
	return nil
}
