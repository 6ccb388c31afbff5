// Package roles administers role lifecycle and role→permission
// associations, with referential-integrity guards and permission-cache
// invalidation on mutation.
package roles

import "time"

// Role represents a permission grouping. Deletion is always soft; a
// deleted role never resurfaces through this package.
type Role struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	Disabled      bool      `json:"disabled"`
	PermissionIDs []int64   `json:"permissions,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// ListFilter narrows and pages FindAll results. Nil pointer fields mean
// "not filtered".
type ListFilter struct {
	Disabled  *bool
	Keyword   string
	BeginTime *time.Time
	EndTime   *time.Time
	Page      int
	PageSize  int
	SortDesc  bool
}

// Patch carries an update. Pointer fields distinguish absent from zero:
// a nil Permissions leaves associations untouched, while a non-nil empty
// slice clears them all (full-replace semantics).
type Patch struct {
	Name        *string
	Description *string
	Disabled    *bool
	Permissions *[]int64
}

// Touches reports whether the patch changes anything that feeds permission
// resolution for assigned users.
func (p Patch) Touches() bool {
	return p.Disabled != nil || p.Permissions != nil
}

// RoleList is a page of roles plus the unpaged total.
type RoleList struct {
	List  []Role `json:"list"`
	Total int64  `json:"total"`
}
