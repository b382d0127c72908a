package admin

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/promotion-next/internal/authz"
	"github.com/promotion-next/internal/http/response"

	"github.com/gin-gonic/gin"
)

type authzGrantPolicyPayload struct {
	Role   string `json:"role" binding:"required"`
	Object string `json:"object" binding:"required"`
	Action string `json:"action" binding:"required"`
}

type authzSetAdminRolesPayload struct {
	Roles []string `json:"roles"`
}

// GetAuthzMe 当前管理员的角色与权限
func (h *Handler) GetAuthzMe(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	roles, err := h.AuthzService.GetAdminRoles(adminID)
	if err != nil {
		respondError(c, response.CodeInternal, "error.authz_fetch_failed", err)
		return
	}
	policies, err := h.AuthzService.GetAdminPolicies(adminID)
	if err != nil {
		respondError(c, response.CodeInternal, "error.authz_fetch_failed", err)
		return
	}
	response.Success(c, gin.H{
		"admin_id": adminID,
		"is_super": isSuperAdmin(c),
		"roles":    roles,
		"policies": policies,
	})
}

// ListAuthzRoles 角色列表
func (h *Handler) ListAuthzRoles(c *gin.Context) {
	roles, err := h.AuthzService.ListRoles()
	if err != nil {
		respondError(c, response.CodeInternal, "error.authz_fetch_failed", err)
		return
	}
	response.Success(c, roles)
}

// GetAuthzRolePolicies 角色的策略列表
func (h *Handler) GetAuthzRolePolicies(c *gin.Context) {
	policies, err := h.AuthzService.GetRolePolicies(decodeRoleParam(c.Param("role")))
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	response.Success(c, policies)
}

// GrantAuthzPolicy 为角色授予策略
func (h *Handler) GrantAuthzPolicy(c *gin.Context) {
	var req authzGrantPolicyPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	if err := h.AuthzService.GrantRolePolicy(req.Role, req.Object, req.Action); err != nil {
		respondError(c, response.CodeBadRequest, "error.authz_update_failed", err)
		return
	}
	requestLog(c).Infow("admin_authz_policy_granted",
		"role", req.Role,
		"object", authz.NormalizeObject(req.Object),
		"action", authz.NormalizeAction(req.Action),
		"operator_admin_id", currentAdminID(c),
	)
	response.Success(c, nil)
}

// SetAuthzAdminRoles 覆盖管理员的角色
func (h *Handler) SetAuthzAdminRoles(c *gin.Context) {
	adminID, ok := parseAdminIDParam(c)
	if !ok {
		return
	}
	var req authzSetAdminRolesPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	if err := h.AuthzService.SetAdminRoles(adminID, req.Roles); err != nil {
		respondError(c, response.CodeBadRequest, "error.authz_update_failed", err)
		return
	}
	requestLog(c).Infow("admin_authz_roles_set",
		"admin_id", adminID,
		"roles", req.Roles,
		"operator_admin_id", currentAdminID(c),
	)
	response.Success(c, nil)
}

// RevokeAdminTokens 吊销管理员在此之前签发的全部 Token
func (h *Handler) RevokeAdminTokens(c *gin.Context) {
	adminID, ok := parseAdminIDParam(c)
	if !ok {
		return
	}
	if err := h.AuthService.RevokeAdminTokens(c.Request.Context(), adminID); err != nil {
		respondError(c, response.CodeInternal, "error.authz_update_failed", err)
		return
	}
	requestLog(c).Infow("admin_tokens_revoked",
		"admin_id", adminID,
		"operator_admin_id", currentAdminID(c),
	)
	response.Success(c, nil)
}

// RevokeUserTokens 吊销用户已签发的 Token
func (h *Handler) RevokeUserTokens(c *gin.Context) {
	userID, err := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if err != nil || userID == 0 {
		respondError(c, response.CodeBadRequest, "error.user_id_invalid", nil)
		return
	}
	if err := h.AuthService.RevokeUserTokens(c.Request.Context(), uint(userID)); err != nil {
		respondError(c, response.CodeInternal, "error.authz_update_failed", err)
		return
	}
	requestLog(c).Infow("user_tokens_revoked",
		"user_id", userID,
		"operator_admin_id", currentAdminID(c),
	)
	response.Success(c, nil)
}

func parseAdminIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "error.admin_id_invalid", nil)
		return 0, false
	}
	return uint(id), true
}

func decodeRoleParam(value string) string {
	decoded, err := url.QueryUnescape(value)
	if err != nil {
		return strings.TrimSpace(value)
	}
	return strings.TrimSpace(decoded)
}
