package users

import "time"

// User is the credential-store record this core reads. Lifecycle (create,
// password change, role assignment) is owned elsewhere; here users are only
// looked up and reasoned about.
type User struct {
	ID        int64
	UserName  string
	Password  string // hashed, opaque to this core
	NickName  string
	Avatar    string
	RoleIDs   []int64
	CreatedAt time.Time
	UpdatedAt time.Time
}
