package jwt

import (
	"errors"
	"fmt"
	"time"

	"mercagasto/domain"
	"mercagasto/internal/utils"

	"github.com/golang-jwt/jwt/v4"
)

const (
	issuer     = "MERCAGASTO"
	DefaultTTL = 12 * time.Hour
)

type (
	JWTService interface {
		GenerateToken(operatorID string, role string, ttl time.Duration) (string, error)
		ValidateToken(token string) (*jwt.Token, error)
		GetOperatorByToken(token string) (string, string, error)
	}

	jwtOperatorClaim struct {
		OperatorID string `json:"operator_id"`
		Role       string `json:"role"`
		jwt.RegisteredClaims
	}

	jwtService struct {
		secretKey string
		issuer    string
		now       func() time.Time
	}
)

func NewJWTService() JWTService {
	return NewJWTServiceWithSecret(utils.GetConfig("JWT_SECRET"))
}

func NewJWTServiceWithSecret(secret string) JWTService {
	return &jwtService{
		secretKey: secret,
		issuer:    issuer,
		now:       time.Now,
	}
}

func (j *jwtService) GenerateToken(operatorID string, role string, ttl time.Duration) (string, error) {
	if j.secretKey == "" {
		return "", errors.New("JWT_SECRET is not set")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	now := j.now()
	claims := jwtOperatorClaim{
		operatorID,
		role,
		jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    j.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(j.secretKey))
}

func (j *jwtService) parseToken(t_ *jwt.Token) (any, error) {
	if _, ok := t_.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method %v", t_.Header["alg"])
	}
	return []byte(j.secretKey), nil
}

func (j *jwtService) ValidateToken(token string) (*jwt.Token, error) {
	return jwt.ParseWithClaims(token, &jwtOperatorClaim{}, j.parseToken)
}

func (j *jwtService) GetOperatorByToken(token string) (string, string, error) {
	t_Token, err := j.ValidateToken(token)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", "", domain.ErrTokenExpired
		}
		return "", "", domain.ErrTokenInvalid
	}
	if !t_Token.Valid {
		return "", "", domain.ErrTokenInvalid
	}

	claims, ok := t_Token.Claims.(*jwtOperatorClaim)
	if !ok || claims.Issuer != j.issuer {
		return "", "", domain.ErrTokenInvalid
	}
	return claims.OperatorID, claims.Role, nil
}
