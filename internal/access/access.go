// Package access holds the role capability table and the single authorization check.
package access

import (
	"errors"
	"strings"
)

// Role 账号角色，取值固定。
type Role string

const (
	RoleHealthRegion Role = "HEALTH_REGION"
	RoleSSJ          Role = "SSJ"
	RoleSSO          Role = "SSO"
	RoleHospital     Role = "HOSPITAL"
	RolePCU          Role = "PCU"
	RoleAdmin        Role = "ADMIN"
)

// Capability 是被授权的操作。
type Capability string

const (
	ReportRead    Capability = "report:read"
	ReportWrite   Capability = "report:write"
	MeasureWrite  Capability = "measure:write"
	UserApprove   Capability = "user:approve"
	DashboardView Capability = "dashboard:view"
	// AnyLocation 允许访问非本人所属地点的数据。
	AnyLocation Capability = "location:any"
)

var (
	// ErrUnauthenticated 没有有效会话。
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden 角色或地点不允许。
	ErrForbidden = errors.New("forbidden")
)

var capabilities = map[Role]map[Capability]bool{
	RoleAdmin: {
		ReportRead: true, ReportWrite: true, MeasureWrite: true,
		UserApprove: true, DashboardView: true, AnyLocation: true,
	},
	RoleHealthRegion: {
		ReportRead: true, ReportWrite: true, UserApprove: true, DashboardView: true,
	},
	RoleSSJ: {
		ReportRead: true, ReportWrite: true, MeasureWrite: true, DashboardView: true,
	},
	RoleSSO:      {ReportRead: true, ReportWrite: true, DashboardView: true},
	RoleHospital: {ReportRead: true, ReportWrite: true, DashboardView: true},
	RolePCU:      {ReportRead: true, ReportWrite: true, DashboardView: true},
}

var registrable = []Role{RoleHealthRegion, RoleSSJ, RoleSSO, RoleHospital, RolePCU}

// Principal 当前请求的调用者。
type Principal struct {
	UserID     uint
	Username   string
	Name       string
	Role       Role
	LocationID uint
}

// ParseRole 将字符串解析为已知角色。
func ParseRole(raw string) (Role, bool) {
	role := Role(strings.ToUpper(strings.TrimSpace(raw)))
	_, ok := capabilities[role]
	return role, ok
}

// RegistrableRoles 返回自助注册可选的角色，ADMIN 只能由运维脚本创建。
func RegistrableRoles() []Role {
	return append([]Role(nil), registrable...)
}

// Can 查询角色是否拥有某项能力。
func Can(role Role, capability Capability) bool {
	return capabilities[role][capability]
}

// Authorize 是唯一的授权入口。locationID 为 0 表示该操作不针对具体地点。
func Authorize(p *Principal, capability Capability, locationID uint) error {
	if p == nil || p.UserID == 0 {
		return ErrUnauthenticated
	}
	if !Can(p.Role, capability) {
		return ErrForbidden
	}
	if locationID != 0 && locationID != p.LocationID && !Can(p.Role, AnyLocation) {
		return ErrForbidden
	}
	return nil
}
