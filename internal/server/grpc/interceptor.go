package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/courier/internal/common"
	"github.com/dmitrijs2005/courier/internal/logging"
	"github.com/dmitrijs2005/courier/internal/rpc"
	"github.com/dmitrijs2005/courier/internal/server/auth"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type ctxKey string

const principalKey ctxKey = "principal"

// publicMethods do not require an access token.
var publicMethods = map[string]bool{
	rpc.MethodPing:            true,
	rpc.MethodRegisterAccount: true,
}

func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	if publicMethods[info.FullMethod] {
		return handler(ctx, req)
	}

	var accessToken string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(common.AccessTokenHeaderName); len(values) > 0 {
			accessToken = values[0]
		}
	}
	if accessToken == "" {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}

	p, err := auth.ParseToken(accessToken, s.jwtSecret)
	if err != nil {
		// Clients re-register on exactly this message.
		if errors.Is(err, common.ErrTokenExpired) {
			return nil, status.Error(codes.Unauthenticated, common.ErrTokenExpired.Error())
		}
		return nil, status.Error(codes.Unauthenticated, common.ErrInvalidToken.Error())
	}

	ctx = logging.ContextWith(ctx, "method", info.FullMethod, "account_id", p.AccountID)
	return handler(context.WithValue(ctx, principalKey, p), req)
}

func principalFrom(ctx context.Context) (auth.Principal, error) {
	p, ok := ctx.Value(principalKey).(auth.Principal)
	if !ok {
		return auth.Principal{}, status.Error(codes.Unauthenticated, "missing token")
	}
	return p, nil
}
