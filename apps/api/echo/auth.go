package echoapi

import (
	"context"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/shankerdev/campus/core"
	"github.com/shankerdev/campus/core/account"
)

const (
	contextTokenKey      = "userToken"
	contextCapabilityKey = "capability"
	tokenAudience        = "Campus"
)

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt int64        `json:"oriat,omitempty"`
	Email        string       `json:"email,omitempty"`
	Role         account.Role `json:"role"`
}

func (c Claims) Capability() account.Capability {
	return account.Capability{AccountID: c.Subject, Role: c.Role}
}

type accountFinder interface {
	Lookup(ctx context.Context, id string) (account.Account, error)
}

// authenticator issues and checks the JWTs of one server.
type authenticator struct {
	conf     *core.Config
	accounts accountFinder
	jwtConf  middleware.JWTConfig
}

func newAuthenticator(conf *core.Config, accounts accountFinder) *authenticator {
	return &authenticator{
		conf:     conf,
		accounts: accounts,
		jwtConf: middleware.JWTConfig{
			SigningKey:    []byte(conf.SecretKey),
			SigningMethod: middleware.AlgorithmHS256,
			ContextKey:    contextTokenKey,
			Claims:        new(Claims),
		},
	}
}

// middleware verifies the bearer token then derives the request's capability from its claims.
func (a *authenticator) middleware() echo.MiddlewareFunc {
	jwtMiddleware := middleware.JWTWithConfig(a.jwtConf)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return jwtMiddleware(func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return err
			}
			capa := claims.Capability()
			if !capa.Authenticated() {
				return errUnauthorized
			}
			ctx.Set(contextCapabilityKey, capa)
			return next(ctx)
		})
	}
}

func (a *authenticator) claims(acc account.Account, origIat ...int64) *Claims {
	now := core.NowFunc()
	nownix := now.Unix()

	oriat := nownix
	if len(origIat) > 0 {
		oriat = origIat[0]
	}

	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    a.conf.AppName,
			Subject:   acc.ID,
			Audience:  tokenAudience,
			ExpiresAt: now.Add(a.conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  nownix,
		},
		OrigIssuedAt: oriat,
		Email:        acc.Email,
		Role:         acc.Role,
	}
}

// GenerateToken generates a signed JWT token string representing the account.
func (a *authenticator) GenerateToken(acc account.Account, origIat ...int64) (string, error) {
	method := jwt.GetSigningMethod(a.jwtConf.SigningMethod)
	token := jwt.NewWithClaims(method, a.claims(acc, origIat...))

	ss, err := token.SignedString(a.jwtConf.SigningKey)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(contextTokenKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

// contextCapability is the capability of the request. The zero value is unauthenticated.
func contextCapability(ctx echo.Context) account.Capability {
	capa, _ := ctx.Get(contextCapabilityKey).(account.Capability)
	return capa
}

// refreshToken issues a new token for the current account as long as the original one is young enough.
// The role is re-read so that a changed account does not keep stale claims.
func (a *authenticator) refreshToken(ctx echo.Context) (string, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return "", errors.Wrap(err, "getting context claims")
	}

	acc, err := a.accounts.Lookup(ctx.Request().Context(), claims.Subject)
	if err != nil {
		if core.IsNotFound(err) {
			return "", errUnauthorized
		}
		return "", errors.Wrap(err, "finding account")
	}
	if !acc.IsApproved {
		return "", account.ErrPendingApproval
	}

	// check if refresh has not expired
	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(a.conf.Server.JWTRefreshExpirationDelta)
	if core.NowFunc().After(expTime) {
		return "", errRefreshExpired
	}

	token, err := a.GenerateToken(acc, claims.OrigIssuedAt)
	return token, errors.Wrap(err, "generating token")
}
