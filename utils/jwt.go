package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type JWTService struct {
	secretKey []byte
	tokenTTL  time.Duration
}

type Claims struct {
	ReporterID string `json:"reporterId"`
	Username   string `json:"username"`
	TokenType  string `json:"tokenType"` // access
	jwt.RegisteredClaims
}

func NewJWTService(secretKey string, tokenTTL time.Duration) *JWTService {
	return &JWTService{
		secretKey: []byte(secretKey),
		tokenTTL:  tokenTTL,
	}
}

func (j *JWTService) TokenTTL() time.Duration {
	return j.tokenTTL
}

func (j *JWTService) GenerateToken(reporterID, username string) (string, error) {
	now := time.Now()
	claims := Claims{
		ReporterID: reporterID,
		Username:   username,
		TokenType:  "access",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(j.tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    "incidentwatch",
			Subject:   reporterID,
			ID:        uuid.New().String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.secretKey)
}

func (j *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return j.secretKey, nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("invalid token")
}
