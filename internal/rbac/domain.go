// Package rbac resolves a user's effective permission set and navigation
// menu from role assignments, with a per-user read-through cache.
package rbac

// PermissionType categorizes a permission record. Only non-BUTTON entries
// contribute to the menu tree.
type PermissionType string

const (
	// TypeMenu marks a navigable menu entry.
	TypeMenu PermissionType = "MENU"
	// TypeButton marks an in-page action; excluded from menus.
	TypeButton PermissionType = "BUTTON"
	// TypeAPI marks a backend capability with no navigation presence.
	TypeAPI PermissionType = "API"
)

// Permission is an atomic capability record.
type Permission struct {
	ID       int64          `json:"id"`
	ParentID int64          `json:"parentId"`
	Name     string         `json:"name"`
	Code     string         `json:"permission"`
	Type     PermissionType `json:"type"`
	Path     string         `json:"path"`
	Icon     string         `json:"icon"`
	Sort     int32          `json:"sort"`
}

// RoleGrant is a surviving (enabled, non-deleted) role with its permission
// ids, as needed for aggregation.
type RoleGrant struct {
	Name          string
	PermissionIDs []int64
}

// MenuNode is one entry of the hierarchical navigation menu.
type MenuNode struct {
	ID       int64       `json:"id"`
	ParentID int64       `json:"parentId"`
	Name     string      `json:"name"`
	Path     string      `json:"path"`
	Icon     string      `json:"icon"`
	Sort     int32       `json:"sort"`
	Children []*MenuNode `json:"children,omitempty"`
}

// UserInfo is the resolved view of a user returned to authenticated callers.
type UserInfo struct {
	Name        string      `json:"name"`
	Avatar      string      `json:"avatar"`
	Roles       []string    `json:"roles"`
	Permissions []string    `json:"permissions"`
	Menus       []*MenuNode `json:"menus"`
}
