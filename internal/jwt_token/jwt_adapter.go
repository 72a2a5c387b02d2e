package jwttoken

import (
	id "ballotguard/pkg/domain"
	dErrors "ballotguard/pkg/domain-errors"
	authmw "ballotguard/pkg/platform/middleware/auth"
)

func ToMiddlewareClaims(claims *Claims) (*authmw.VoterClaims, error) {
	voterID, err := id.ParseVoterID(claims.VoterID)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "token carries an invalid voter id")
	}
	return &authmw.VoterClaims{
		VoterID: voterID,
		TokenID: claims.ID,
	}, nil
}

// JWTServiceAdapter satisfies authmw.TokenValidator.
type JWTServiceAdapter struct {
	service *JWTService
}

func NewJWTServiceAdapter(service *JWTService) *JWTServiceAdapter {
	return &JWTServiceAdapter{service: service}
}

func (a *JWTServiceAdapter) ValidateToken(tokenString string) (*authmw.VoterClaims, error) {
	claims, err := a.service.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return ToMiddlewareClaims(claims)
}
