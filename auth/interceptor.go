package auth

import (
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// ViewerIDHeader carries the identity supplied by the identity provider.
// The core only checks that it is not blank.
const ViewerIDHeader = "x-viewer-id"

type contextKey string

const ViewerIDKey contextKey = "viewer_id"

// ViewerIDFromContext returns the identity injected by the interceptors.
func ViewerIDFromContext(ctx context.Context) (string, bool) {
	viewerID, ok := ctx.Value(ViewerIDKey).(string)
	return viewerID, ok && viewerID != ""
}

// WithViewerID returns an outgoing context carrying the viewer identity.
func WithViewerID(ctx context.Context, viewerID string) context.Context {
	return metadata.AppendToOutgoingContext(ctx, ViewerIDHeader, viewerID)
}

// IdentityInterceptor copies the viewer identity from the metadata to the context.
// When required is true, calls without identity are rejected.
func IdentityInterceptor(required bool) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any,
		info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		newCtx, err := withIdentity(ctx, required)
		if err != nil {
			return nil, err
		}
		return handler(newCtx, req)
	}
}

// IdentityStreamInterceptor is the streaming counterpart of IdentityInterceptor.
func IdentityStreamInterceptor(required bool) grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream,
		info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		newCtx, err := withIdentity(ss.Context(), required)
		if err != nil {
			return err
		}
		return handler(srv, &identityStream{ServerStream: ss, ctx: newCtx})
	}
}

func withIdentity(ctx context.Context, required bool) (context.Context, error) {
	md, _ := metadata.FromIncomingContext(ctx)
	var viewerID string
	if values := md.Get(ViewerIDHeader); len(values) > 0 {
		viewerID = strings.TrimSpace(values[0])
	}
	if viewerID == "" {
		if required {
			return nil, status.Error(codes.Unauthenticated, "viewer identity is missing")
		}
		return ctx, nil
	}
	return context.WithValue(ctx, ViewerIDKey, viewerID), nil
}

type identityStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *identityStream) Context() context.Context {
	return s.ctx
}
