package handler

import (
	"crypto/subtle"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/auth"
)

// APIKeyHeader carries the caller's API key.
const APIKeyHeader = "api_key"

// Authenticator resolves the caller identity from the API key header.
// Requests without a key proceed anonymously.
type Authenticator struct {
	keys   auth.Repository
	pepper []byte
}

// NewAuthenticator returns an Authenticator hashing keys with pepper.
func NewAuthenticator(keys auth.Repository, pepper []byte) *Authenticator {
	return &Authenticator{keys: keys, pepper: pepper}
}

// Middleware stores the identity of a valid key in the request context and
// rejects unknown keys with 401.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(APIKeyHeader)
		if key == "" {
			next.ServeHTTP(w, r)
			return
		}

		id, err := a.authenticate(r, key)
		switch {
		case errors.Is(err, auth.ErrKeyNotFound):
			writeJSON(w, http.StatusUnauthorized, errorResponse{Code: http.StatusUnauthorized, Message: "unauthorized"})
			return
		case err != nil:
			zctx.From(r.Context()).Error("Authenticate", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, errorResponse{
				Code:    http.StatusInternalServerError,
				Message: http.StatusText(http.StatusInternalServerError),
			})
			return
		}

		ctx := zctx.With(auth.WithIdentity(r.Context(), id), zap.String("user_id", id.UserID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *Authenticator) authenticate(r *http.Request, key string) (*auth.Identity, error) {
	hash := auth.HashKey(a.pepper, key)
	info, err := a.keys.FindByHash(r.Context(), hash)
	if err != nil {
		return nil, err
	}
	// The row is matched by hash; compare again without leaking timing.
	if subtle.ConstantTimeCompare([]byte(hash), []byte(info.KeyHash)) != 1 {
		return nil, auth.ErrKeyNotFound
	}
	return info.Identity(), nil
}
