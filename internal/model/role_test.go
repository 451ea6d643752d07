package model_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/ordermgmt/internal/model"
)

func TestParseRoleName(t *testing.T) {
	cases := []struct {
		in      string
		want    model.RoleName
		wantErr bool
	}{
		{in: "ADMIN", want: model.RoleAdmin},
		{in: "CUSTOMER", want: model.RoleCustomer},
		{in: "  customer ", want: model.RoleCustomer},
		{in: "OWNER", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := model.ParseRoleName(tc.in)
			if tc.wantErr {
				require.ErrorIs(t, err, model.ErrUnknownRole)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestRoleCapabilities(t *testing.T) {
	assert.True(t, model.RoleAdmin.Can(model.CapInventoryWrite))
	assert.True(t, model.RoleAdmin.Can(model.CapInventoryRead))
	assert.False(t, model.RoleCustomer.Can(model.CapInventoryRead))
	assert.True(t, model.RoleCustomer.Can(model.CapOrdersPlace))
	assert.False(t, model.RoleName("OWNER").Can(model.CapProfileRead))

	assert.Equal(t,
		[]model.Capability{model.CapProfileRead, model.CapOrdersPlace},
		model.RoleCustomer.Capabilities())
}

func TestRefreshTokenExpired(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	tok := model.RefreshToken{ExpiresAt: now}
	assert.True(t, tok.Expired(now))
	assert.True(t, tok.Expired(now.Add(time.Second)))
	assert.False(t, tok.Expired(now.Add(-time.Second)))
}
