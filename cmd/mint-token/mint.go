package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/extrachill/marketplace-settlement/pkg/auth"
	"github.com/extrachill/marketplace-settlement/pkg/config"
	"github.com/extrachill/marketplace-settlement/pkg/enums"
)

func mint(cfg config.JWTConfig, now time.Time, role string, sellerID int64, subject string) (string, error) {
	r := enums.Role(strings.ToLower(strings.TrimSpace(role)))
	if !r.IsValid() {
		return "", fmt.Errorf("unknown role %q", role)
	}
	if r == enums.RoleAdmin {
		sellerID = 0
	}
	if strings.TrimSpace(subject) == "" {
		subject = string(r)
		if sellerID > 0 {
			subject = fmt.Sprintf("%s:%d", r, sellerID)
		}
	}
	return auth.MintAccessToken(cfg, now, auth.AccessTokenPayload{
		Subject:  subject,
		SellerID: sellerID,
		Role:     r,
	})
}
