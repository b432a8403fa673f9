package router_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/julienschmidt/httprouter"
	"github.com/shandysiswandi/gonotif/internal/pkg/goerror"
	"github.com/shandysiswandi/gonotif/internal/pkg/jwt"
	"github.com/shandysiswandi/gonotif/internal/pkg/router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type authorizerFunc func(rvals ...any) (bool, error)

func (f authorizerFunc) Enforce(rvals ...any) (bool, error) { return f(rvals...) }

func newGuardRequest(clm *jwt.Claims, params httprouter.Params) *router.Request {
	ctx := context.Background()
	if clm != nil {
		ctx = jwt.SetAuth(ctx, *clm)
	}
	if params != nil {
		ctx = context.WithValue(ctx, httprouter.ParamsKey, params)
	}
	r := httptest.NewRequestWithContext(ctx, http.MethodGet, "/", nil)
	return &router.Request{Request: r}
}

func errCode(t *testing.T, err error) goerror.Code {
	t.Helper()

	var gerr *goerror.Error
	require.ErrorAs(t, err, &gerr)
	return gerr.Code()
}

func TestNewCasbinAuthorizer(t *testing.T) {
	t.Parallel()

	az, err := router.NewCasbinAuthorizer([]string{
		"admin|*|*",
		"service | notification | send",
		"",
	})
	require.NoError(t, err)

	ok, err := az.Enforce("service", "notification", "send")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = az.Enforce("service", "stats", "read")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = az.Enforce("admin", "stats", "read")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = router.NewCasbinAuthorizer([]string{"broken|policy"})
	assert.Error(t, err)
}

func TestGuarded(t *testing.T) {
	t.Parallel()

	var order []string
	guard := func(name string, err error) router.Guard {
		return func(*router.Request) error {
			order = append(order, name)
			return err
		}
	}
	denied := goerror.NewBusiness("denied", goerror.CodeForbidden)

	h := router.Guarded(func(*router.Request) (any, error) {
		order = append(order, "handler")
		return "ok", nil
	}, guard("first", nil), guard("second", denied), guard("third", nil))

	resp, err := h(newGuardRequest(nil, nil))
	assert.Nil(t, resp)
	assert.ErrorIs(t, err, denied)
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestRequireAuth(t *testing.T) {
	t.Parallel()

	g := router.RequireAuth()
	assert.Equal(t, goerror.CodeUnauthorized, errCode(t, g(newGuardRequest(nil, nil))))
	assert.NoError(t, g(newGuardRequest(&jwt.Claims{UserID: "u1"}, nil)))
}

func TestRequireRole(t *testing.T) {
	t.Parallel()

	az, err := router.NewCasbinAuthorizer([]string{"service|notification|send"})
	require.NoError(t, err)
	g := router.RequireRole(az, "notification", "send")

	tests := []struct {
		name    string
		claims  *jwt.Claims
		wantErr bool
		code    goerror.Code
	}{
		{name: "anonymous", claims: nil, wantErr: true, code: goerror.CodeUnauthorized},
		{name: "no roles", claims: &jwt.Claims{UserID: "u1"}, wantErr: true, code: goerror.CodeForbidden},
		{name: "other role", claims: &jwt.Claims{UserID: "u1", Roles: []string{"customer"}}, wantErr: true, code: goerror.CodeForbidden},
		{name: "granted role", claims: &jwt.Claims{UserID: "u1", Roles: []string{"customer", "service"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := g(newGuardRequest(tt.claims, nil))
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, tt.code, errCode(t, err))
		})
	}
}

func TestRequireRole_EnforceError(t *testing.T) {
	t.Parallel()

	az := authorizerFunc(func(...any) (bool, error) { return false, errors.New("policy store down") })
	err := router.RequireRole(az, "stats", "read")(newGuardRequest(&jwt.Claims{UserID: "u1", Roles: []string{"admin"}}, nil))
	assert.Equal(t, goerror.CodeInternal, errCode(t, err))
}

func TestRequireSelfOr(t *testing.T) {
	t.Parallel()

	called := 0
	az := authorizerFunc(func(rvals ...any) (bool, error) {
		called++
		return rvals[0] == "admin", nil
	})
	g := router.RequireSelfOr("userId", az, "preference", "write")
	params := httprouter.Params{{Key: "userId", Value: "u1"}}

	assert.NoError(t, g(newGuardRequest(&jwt.Claims{UserID: "u1"}, params)))
	assert.Zero(t, called, "self access never consults the authorizer")

	err := g(newGuardRequest(&jwt.Claims{UserID: "u2"}, params))
	assert.Equal(t, goerror.CodeForbidden, errCode(t, err))

	assert.NoError(t, g(newGuardRequest(&jwt.Claims{UserID: "u2", Roles: []string{"admin"}}, params)))
	assert.Equal(t, goerror.CodeUnauthorized, errCode(t, g(newGuardRequest(nil, params))))
}
