package service

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const hostTokenType = "host"

var (
	ErrTokenInvalid = errors.New("token invalid")
	ErrTokenExpired = errors.New("token expired")
)

// HostTokenService emite y valida los tokens con los que el runtime del host llama a la API.
type HostTokenService struct {
	secret  []byte
	ttl     time.Duration
	issuer  string
	revoked TokenRevocationStore
}

type HostToken struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in"`
}

// HostClaims identifica al host y, opcionalmente, la unica sesion a la que puede acceder.
type HostClaims struct {
	HostID    string `json:"hid"`
	SessionID string `json:"sid,omitempty"`
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

// AllowsSession indica si el token puede operar sobre sessionID.
func (c HostClaims) AllowsSession(sessionID string) bool {
	return c.SessionID == "" || c.SessionID == sessionID
}

func NewHostTokenService(secret, issuer string, ttl time.Duration, revoked TokenRevocationStore) *HostTokenService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if strings.TrimSpace(issuer) == "" {
		issuer = "affection-host"
	}
	if revoked == nil {
		revoked = NewMemoryTokenRevocationStore()
	}
	return &HostTokenService{
		secret:  []byte(secret),
		ttl:     ttl,
		issuer:  issuer,
		revoked: revoked,
	}
}

// Issue firma un token para hostID. sessionID vacio da acceso a todas las sesiones.
func (s *HostTokenService) Issue(hostID, sessionID string) (HostToken, error) {
	if len(s.secret) == 0 || strings.TrimSpace(hostID) == "" {
		return HostToken{}, ErrTokenInvalid
	}
	now := time.Now().UTC()
	claims := HostClaims{
		HostID:    hostID,
		SessionID: sessionID,
		TokenType: hostTokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			Subject:   hostID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return HostToken{}, err
	}
	return HostToken{Token: signed, ExpiresIn: int64(s.ttl.Seconds())}, nil
}

func (s *HostTokenService) Parse(tokenString string) (HostClaims, error) {
	if len(s.secret) == 0 {
		return HostClaims{}, ErrTokenInvalid
	}
	if strings.TrimSpace(tokenString) == "" {
		return HostClaims{}, ErrTokenInvalid
	}
	claims, err := s.parseToken(tokenString)
	if err != nil {
		return HostClaims{}, err
	}
	if claims.TokenType != hostTokenType || !s.isValidClaims(claims) {
		return HostClaims{}, ErrTokenInvalid
	}
	if claims.ID != "" {
		revoked, err := s.revoked.IsRevoked(claims.ID)
		if err != nil || revoked {
			return HostClaims{}, ErrTokenInvalid
		}
	}
	return claims, nil
}

// Revoke invalida el token hasta su expiracion natural.
func (s *HostTokenService) Revoke(tokenString string) error {
	claims, err := s.Parse(tokenString)
	if err != nil {
		return err
	}
	if claims.ID == "" {
		return ErrTokenInvalid
	}
	ttl := s.ttl
	if claims.ExpiresAt != nil {
		ttl = time.Until(claims.ExpiresAt.Time)
	}
	return s.revoked.Revoke(claims.ID, ttl)
}

func (s *HostTokenService) parseToken(tokenString string) (HostClaims, error) {
	var claims HostClaims
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	_, err := parser.ParseWithClaims(tokenString, &claims, func(_ *jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return HostClaims{}, ErrTokenExpired
		}
		return HostClaims{}, ErrTokenInvalid
	}
	return claims, nil
}

func (s *HostTokenService) isValidClaims(claims HostClaims) bool {
	if strings.TrimSpace(claims.HostID) == "" {
		return false
	}
	if claims.Subject != claims.HostID {
		return false
	}
	return strings.TrimSpace(claims.Issuer) == s.issuer
}
