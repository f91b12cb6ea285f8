package session

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/dynamicdna/academy/pkg/models"
	"github.com/dynamicdna/academy/pkg/oauth"
	"github.com/dynamicdna/academy/pkg/repository"
)

// package-level logger; can be replaced by callers via SetLogger
var logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))

// SetLogger installs a logger for the session package. Passing nil is a no-op.
func SetLogger(l *slog.Logger) {
	if l != nil {
		logger = l
	}
}

// IdentityResolver finds the user behind a request. Resolvers never fail:
// any problem is logged and reported as a nil user.
type IdentityResolver interface {
	Resolve(r *http.Request) *models.User
}

// LocalJWTResolver accepts session cookies minted by local login, matching
// the email claim to a stored user.
type LocalJWTResolver struct {
	Tokens *TokenManager
	Users  repository.UserRepo
}

func (l *LocalJWTResolver) Resolve(r *http.Request) *models.User {
	raw := TokenFromRequest(r)
	if raw == "" {
		return nil
	}
	claims, err := l.Tokens.Verify(raw)
	if err != nil {
		logger.Debug("local session rejected", "err", err)
		return nil
	}
	if claims.Email == "" {
		logger.Warn("local session has no email claim", "openId", claims.OpenID)
		return nil
	}

	u, err := l.Users.GetUserByEmail(r.Context(), claims.Email)
	if err != nil {
		logger.Warn("local session user lookup failed", "err", err)
		return nil
	}
	if u == nil {
		logger.Warn("local session email not found", "email", claims.Email)
	}
	return u
}

// UserInfoFetcher looks up an identity on the OAuth server.
type UserInfoFetcher interface {
	GetUserInfoWithJWT(ctx context.Context, token string) (*oauth.UserInfo, error)
}

// OAuthResolver accepts session cookies issued after an OAuth callback. Users
// not yet stored are fetched from the OAuth server and upserted. Every
// successful resolution refreshes lastSignedIn.
type OAuthResolver struct {
	Tokens *TokenManager
	AppID  string
	Users  repository.UserRepo
	Client UserInfoFetcher
	Now    func() time.Time
}

func (o *OAuthResolver) Resolve(r *http.Request) *models.User {
	raw := TokenFromRequest(r)
	if raw == "" {
		return nil
	}
	claims, err := o.Tokens.Verify(raw)
	if err != nil {
		logger.Debug("oauth session rejected", "err", err)
		return nil
	}
	if claims.OpenID == "" || claims.AppID == "" {
		return nil
	}
	if o.AppID != "" && claims.AppID != o.AppID {
		logger.Warn("oauth session issued for another app", "appId", claims.AppID)
		return nil
	}

	ctx := r.Context()
	now := time.Now()
	if o.Now != nil {
		now = o.Now()
	}

	openID := claims.OpenID
	u, err := o.Users.GetUserByOpenID(ctx, openID)
	if err != nil {
		logger.Warn("oauth user lookup failed", "err", err)
		return nil
	}

	if u == nil {
		if o.Client == nil {
			return nil
		}
		info, err := o.Client.GetUserInfoWithJWT(ctx, raw)
		if err != nil {
			logger.Warn("oauth user info fetch failed", "err", err)
			return nil
		}
		openID = info.OpenID
		up := &models.UserUpsert{OpenID: openID, LastSignedIn: &now}
		if info.Name != "" {
			up.Name = &info.Name
		}
		if info.Email != "" {
			up.Email = &info.Email
		}
		if m := info.Method(); m != "" {
			up.LoginMethod = &m
		}
		if err := o.Users.UpsertUser(ctx, up); err != nil {
			logger.Warn("oauth user sync failed", "err", err)
			return nil
		}
	} else if err := o.Users.UpsertUser(ctx, &models.UserUpsert{OpenID: u.OpenID, LastSignedIn: &now}); err != nil {
		logger.Warn("refresh lastSignedIn failed", "openId", u.OpenID, "err", err)
		return u
	}

	u, err = o.Users.GetUserByOpenID(ctx, openID)
	if err != nil {
		logger.Warn("oauth user reload failed", "err", err)
		return nil
	}
	return u
}

// Chain tries each resolver in order and returns the first identity found.
type Chain []IdentityResolver

func (c Chain) Resolve(r *http.Request) *models.User {
	for _, res := range c {
		if res == nil {
			continue
		}
		if u := res.Resolve(r); u != nil {
			return u
		}
	}
	return nil
}

// Middleware resolves the identity once per request and stores it in the
// request context for IdentityFrom.
func Middleware(res IdentityResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if res != nil {
				if u := res.Resolve(r); u != nil {
					r = r.WithContext(WithIdentity(r.Context(), u))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Options selects the resolvers built by NewResolver.
type Options struct {
	Tokens     *TokenManager
	Users      repository.UserRepo
	LocalLogin bool
	AppID      string
	OAuth      UserInfoFetcher
}

// NewResolver builds the resolution chain: the local JWT path first when
// local login is enabled, then the OAuth path.
func NewResolver(o Options) Chain {
	var c Chain
	if o.LocalLogin {
		c = append(c, &LocalJWTResolver{Tokens: o.Tokens, Users: o.Users})
	}
	c = append(c, &OAuthResolver{Tokens: o.Tokens, AppID: o.AppID, Users: o.Users, Client: o.OAuth})
	return c
}
