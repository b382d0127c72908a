package authz

import "github.com/go-faster/errors"

// RoleSeed 预置角色定义
type RoleSeed struct {
	Role     string
	Inherits []string
	Policies []Policy
}

// BuiltinRoleSeeds 预置角色：只读审计、券运营、兑换码运营
func BuiltinRoleSeeds() []RoleSeed {
	return []RoleSeed{
		{
			Role: "readonly_auditor",
			Policies: []Policy{
				{Object: "/admin/*", Action: "GET"},
			},
		},
		{
			Role:     "coupon_operator",
			Inherits: []string{"readonly_auditor"},
			Policies: []Policy{
				{Object: "/admin/coupons", Action: "*"},
				{Object: "/admin/coupons/:id", Action: "*"},
				{Object: "/admin/coupons/:id/issue", Action: "PUT"},
				{Object: "/admin/coupons/:id/pause", Action: "PUT"},
				{Object: "/admin/coupons/:id/close", Action: "PUT"},
			},
		},
		{
			Role:     "code_operator",
			Inherits: []string{"readonly_auditor"},
			Policies: []Policy{
				{Object: "/admin/coupons/:id/codes", Action: "POST"},
				{Object: "/admin/coupons/:id/codes/expiry", Action: "PUT"},
				{Object: "/admin/codes/:serial/status", Action: "PUT"},
			},
		},
	}
}

// BootstrapBuiltinRoles 登记预置角色、继承关系与默认策略，可重复执行
func (s *Service) BootstrapBuiltinRoles() error {
	if err := s.ready(); err != nil {
		return err
	}
	for _, seed := range BuiltinRoleSeeds() {
		role, _, err := s.registerRole(seed.Role)
		if err != nil {
			return err
		}
		for _, parent := range seed.Inherits {
			parentRole, _, err := s.registerRole(parent)
			if err != nil {
				return err
			}
			if _, err := s.enforcer.AddNamedGroupingPolicy("g", role, parentRole); err != nil {
				return errors.Wrap(err, "link role inheritance")
			}
		}
		for _, policy := range seed.Policies {
			if _, err := s.enforcer.AddPolicy(role, NormalizeObject(policy.Object), NormalizeAction(policy.Action)); err != nil {
				return errors.Wrapf(err, "add builtin policy for %s", role)
			}
		}
	}
	return nil
}
