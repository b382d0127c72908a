package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/promotion-next/internal/cache"
	"github.com/promotion-next/internal/config"

	"github.com/golang-jwt/jwt/v5"
)

// ErrTokenInvalid 令牌无效或已吊销
var ErrTokenInvalid = errors.New("无效的 token")

// JWTClaims 管理员 JWT 声明
type JWTClaims struct {
	AdminID  uint   `json:"admin_id"`
	Username string `json:"username"`
	IsSuper  bool   `json:"is_super"`
	jwt.RegisteredClaims
}

// UserJWTClaims 用户 JWT 声明，用户身份由上游账号系统签发
type UserJWTClaims struct {
	UserID uint `json:"user_id"`
	jwt.RegisteredClaims
}

// AuthService 管理端与用户端令牌签发、解析与吊销
type AuthService struct {
	admin config.JWTConfig
	user  config.JWTConfig
	now   func() time.Time
}

// NewAuthService 创建鉴权服务
func NewAuthService(admin, user config.JWTConfig) *AuthService {
	return &AuthService{admin: admin, user: user, now: time.Now}
}

func registered(now time.Time, hours int) jwt.RegisteredClaims {
	if hours <= 0 {
		hours = 24
	}
	return jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(hours) * time.Hour)),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
	}
}

// GenerateAdminJWT 生成管理员 Token
func (s *AuthService) GenerateAdminJWT(adminID uint, username string, isSuper bool) (string, time.Time, error) {
	if adminID == 0 {
		return "", time.Time{}, ErrTokenInvalid
	}
	claims := JWTClaims{
		AdminID:          adminID,
		Username:         strings.TrimSpace(username),
		IsSuper:          isSuper,
		RegisteredClaims: registered(s.now(), s.admin.ExpireHours),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.admin.SecretKey))
	if err != nil {
		return "", time.Time{}, err
	}
	return token, claims.ExpiresAt.Time, nil
}

// GenerateUserJWT 生成用户 Token（联调与种子数据使用）
func (s *AuthService) GenerateUserJWT(userID uint) (string, time.Time, error) {
	if userID == 0 {
		return "", time.Time{}, ErrTokenInvalid
	}
	claims := UserJWTClaims{
		UserID:           userID,
		RegisteredClaims: registered(s.now(), s.user.ExpireHours),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.user.SecretKey))
	if err != nil {
		return "", time.Time{}, err
	}
	return token, claims.ExpiresAt.Time, nil
}

// ParseAdminJWT 解析管理员 Token 并校验吊销状态
func (s *AuthService) ParseAdminJWT(ctx context.Context, tokenString string) (*JWTClaims, error) {
	claims := &JWTClaims{}
	if err := parseHS256(tokenString, s.admin.SecretKey, claims); err != nil || claims.AdminID == 0 {
		return nil, ErrTokenInvalid
	}
	if state, hit, err := cache.GetAdminAuthState(ctx, claims.AdminID); err == nil && hit && !issuedAfter(claims.IssuedAt, state.TokenInvalidBefore) {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// ParseUserJWT 解析用户 Token 并校验吊销状态
func (s *AuthService) ParseUserJWT(ctx context.Context, tokenString string) (*UserJWTClaims, error) {
	claims := &UserJWTClaims{}
	if err := parseHS256(tokenString, s.user.SecretKey, claims); err != nil || claims.UserID == 0 {
		return nil, ErrTokenInvalid
	}
	if state, hit, err := cache.GetUserAuthState(ctx, claims.UserID); err == nil && hit && !issuedAfter(claims.IssuedAt, state.TokenInvalidBefore) {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// RevokeAdminTokens 吊销管理员当前所有 Token
func (s *AuthService) RevokeAdminTokens(ctx context.Context, adminID uint) error {
	return cache.RevokeAdminTokens(ctx, adminID, s.now(), time.Duration(s.admin.ExpireHours)*time.Hour)
}

// RevokeUserTokens 吊销用户当前所有 Token，用于封禁刷券账号
func (s *AuthService) RevokeUserTokens(ctx context.Context, userID uint) error {
	return cache.RevokeUserTokens(ctx, userID, s.now(), time.Duration(s.user.ExpireHours)*time.Hour)
}

func parseHS256(tokenString, secret string, claims jwt.Claims) error {
	if strings.TrimSpace(secret) == "" {
		return errors.New("jwt secret is empty")
	}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return err
	}
	if !token.Valid {
		return ErrTokenInvalid
	}
	return nil
}

func issuedAfter(issuedAt *jwt.NumericDate, invalidBeforeUnix int64) bool {
	if invalidBeforeUnix <= 0 {
		return true
	}
	if issuedAt == nil {
		return false
	}
	return issuedAt.Time.Unix() >= invalidBeforeUnix
}
