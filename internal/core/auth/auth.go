// Package auth provides shared-token authentication for the admin gRPC service.
package auth

import (
	"context"
	"crypto/rand"
	"fmt"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// MetadataKey is the request metadata carrying the admin token.
const MetadataKey = "x-admin-token"

// MinTokenLength is the shortest accepted admin token.
const MinTokenLength = 32

// healthPrefix marks health-check methods, which stay unauthenticated so
// orchestrators can probe the server.
const healthPrefix = "/grpc.health.v1.Health/"

// Authenticator validates the admin token.
// Holds only an HMAC digest of the token under a per-process random key.
type Authenticator struct {
	key    []byte
	digest []byte
}

// NewAuthenticator creates an authenticator for token.
func NewAuthenticator(token string) (*Authenticator, error) {
	if len(token) < MinTokenLength {
		return nil, fmt.Errorf("%w: got %d chars, need %d", ErrTokenTooShort, len(token), MinTokenLength)
	}
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}
	return &Authenticator{key: key, digest: ComputeHMAC(key, token)}, nil
}

// Authenticate checks a presented token.
func (a *Authenticator) Authenticate(token string) error {
	if token == "" {
		return ErrMissingToken
	}
	if !VerifyHMAC(a.digest, ComputeHMAC(a.key, token)) {
		return ErrInvalidToken
	}
	return nil
}

// UnaryInterceptor returns gRPC interceptor that authenticates requests.
func (a *Authenticator) UnaryInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if strings.HasPrefix(info.FullMethod, healthPrefix) {
			return handler(ctx, req)
		}

		var token string
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if values := md.Get(MetadataKey); len(values) > 0 {
				token = values[0]
			}
		}

		if err := a.Authenticate(token); err != nil {
			return nil, status.Error(codes.Unauthenticated, err.Error())
		}
		return handler(ctx, req)
	}
}

// WithToken attaches token to outgoing calls made with ctx.
func WithToken(ctx context.Context, token string) context.Context {
	if token == "" {
		return ctx
	}
	return metadata.AppendToOutgoingContext(ctx, MetadataKey, token)
}
