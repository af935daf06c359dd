package users

type ListFilter struct {
	Keyword  string
	RoleCode RoleCode
}

type UserRepo interface {
	Upsert(user *User) error
	Delete(id string) error
	GetByID(id string) (*User, error)
	List(filter ListFilter, offset, limit int) ([]*User, int, error)
	SetLastLogin(id string) error
}
