package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/extrachill/marketplace-settlement/pkg/auth"
	"github.com/extrachill/marketplace-settlement/pkg/config"
	"github.com/extrachill/marketplace-settlement/pkg/enums"
)

var testJWT = config.JWTConfig{Secret: "mint-secret", Issuer: "settlement", ExpirationMinutes: 5}

func TestMintSellerToken(t *testing.T) {
	token, err := mint(testJWT, time.Now(), " Seller ", 42, "")
	require.NoError(t, err)

	claims, err := auth.ParseAccessToken(testJWT, token)
	require.NoError(t, err)
	assert.Equal(t, enums.RoleSeller, claims.Role)
	assert.Equal(t, int64(42), claims.SellerID)
	assert.Equal(t, "seller:42", claims.Subject)
}

func TestMintAdminDropsSellerID(t *testing.T) {
	token, err := mint(testJWT, time.Now(), "admin", 7, "ops@example.com")
	require.NoError(t, err)

	claims, err := auth.ParseAccessToken(testJWT, token)
	require.NoError(t, err)
	assert.Equal(t, enums.RoleAdmin, claims.Role)
	assert.Zero(t, claims.SellerID)
	assert.Equal(t, "ops@example.com", claims.Subject)
}

func TestMintRejectsBadInput(t *testing.T) {
	_, err := mint(testJWT, time.Now(), "buyer", 0, "")
	assert.ErrorContains(t, err, "unknown role")

	_, err = mint(testJWT, time.Now(), "seller", 0, "")
	assert.ErrorContains(t, err, "seller id")
}
