package domain

// Member is an identified endpoint connected to the relay.
// No transport or lifecycle logic here.
type Member struct {
	User  *User
	Admin bool
}

// NewMember avoids raw literals in adapters and keeps construction obvious.
func NewMember(user *User, admin bool) *Member {
	return &Member{User: user, Admin: admin}
}
