package auth

import (
	"github.com/golang-jwt/jwt/v5"

	"github.com/extrachill/marketplace-settlement/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
// SellerID is required for seller tokens and ignored for admins.
type AccessTokenPayload struct {
	Subject  string
	SellerID int64
	Role     enums.Role
	JTI      string
}

// AccessTokenClaims represents the typed JWT issued to admins and sellers.
type AccessTokenClaims struct {
	SellerID int64      `json:"seller_id,omitempty"`
	Role     enums.Role `json:"role"`
	jwt.RegisteredClaims
}
