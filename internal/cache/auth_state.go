package cache

import (
	"context"
	"fmt"
	"time"
)

// AuthState 令牌吊销快照
// token_invalid_before 为 Unix 秒时间戳，签发时间早于该值的令牌一律拒绝
type AuthState struct {
	TokenInvalidBefore int64 `json:"token_invalid_before"`
	UpdatedAt          int64 `json:"updated_at"`
}

func userAuthStateKey(userID uint) string {
	return fmt.Sprintf("auth:user:%d", userID)
}

func adminAuthStateKey(adminID uint) string {
	return fmt.Sprintf("auth:admin:%d", adminID)
}

// GetUserAuthState 获取用户吊销快照
func GetUserAuthState(ctx context.Context, userID uint) (*AuthState, bool, error) {
	return getAuthState(ctx, userID, userAuthStateKey)
}

// RevokeUserTokens 吊销用户在 at 之前签发的令牌，ttl 应不短于令牌有效期
func RevokeUserTokens(ctx context.Context, userID uint, at time.Time, ttl time.Duration) error {
	return revoke(ctx, userID, at, ttl, userAuthStateKey)
}

// GetAdminAuthState 获取管理员吊销快照
func GetAdminAuthState(ctx context.Context, adminID uint) (*AuthState, bool, error) {
	return getAuthState(ctx, adminID, adminAuthStateKey)
}

// RevokeAdminTokens 吊销管理员在 at 之前签发的令牌
func RevokeAdminTokens(ctx context.Context, adminID uint, at time.Time, ttl time.Duration) error {
	return revoke(ctx, adminID, at, ttl, adminAuthStateKey)
}

func getAuthState(ctx context.Context, id uint, keyOf func(uint) string) (*AuthState, bool, error) {
	if id == 0 {
		return nil, false, nil
	}
	var state AuthState
	hit, err := GetJSON(ctx, keyOf(id), &state)
	if err != nil || !hit {
		return nil, hit, err
	}
	return &state, true, nil
}

func revoke(ctx context.Context, id uint, at time.Time, ttl time.Duration, keyOf func(uint) string) error {
	if id == 0 {
		return nil
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return SetJSON(ctx, keyOf(id), &AuthState{
		TokenInvalidBefore: at.Unix(),
		UpdatedAt:          time.Now().Unix(),
	}, ttl)
}
