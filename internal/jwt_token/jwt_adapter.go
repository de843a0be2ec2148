package jwttoken

import (
	"authbroker/pkg/platform/middleware/auth"
)

// MiddlewareAdapter adapts Service to the auth middleware's validator
// interface, keeping the middleware package free of jwt library types.
type MiddlewareAdapter struct {
	service *Service
}

func NewMiddlewareAdapter(service *Service) *MiddlewareAdapter {
	return &MiddlewareAdapter{service: service}
}

func (a *MiddlewareAdapter) ValidateToken(tokenString string) (*auth.JWTClaims, error) {
	claims, err := a.service.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return &auth.JWTClaims{
		UserID: claims.UserID,
		Email:  claims.Email,
	}, nil
}
