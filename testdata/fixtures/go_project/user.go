package users

import "strings"

// DisplayName returns the name shown in listings.
func (u *User) DisplayName() string {
	return strings.TrimSpace(u.Name)
}

// Clone returns a copy of u.
func (u User) Clone() *User {
	c := &User{ID: u.ID, Name: u.Name, Email: u.Email}
	c.DisplayName()
	return c
}
