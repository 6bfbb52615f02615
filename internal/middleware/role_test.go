package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/inventory-api/internal/apperr"
	"github.com/iliyamo/inventory-api/internal/model"
)

func TestRequireRole(t *testing.T) {
	ok := func(echo.Context) error { return nil }
	adminOnly := RequireRole(model.RoleAdmin)(ok)

	cases := []struct {
		name string
		user *model.User
		kind apperr.Kind
	}{
		{"admin allowed", &model.User{ID: 1, Role: model.RoleAdmin}, ""},
		{"store manager denied", &model.User{ID: 2, Role: model.RoleStoreManager}, apperr.KindForbidden},
		{"no identity", nil, apperr.KindUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, _ := newContext(httptest.NewRequest(http.MethodGet, "/", nil))
			if tc.user != nil {
				setIdentity(c, tc.user)
			}
			err := adminOnly(c)
			if tc.kind == "" {
				assert.NoError(t, err)
				return
			}
			assert.True(t, apperr.Is(err, tc.kind), "got %v", err)
		})
	}
}
