package domain

import "strings"

// AccountRegistry is the persisted record of every user and the next free
// account slot. Callers must hold the registry's write lock (or transaction)
// across a load, mutation and save.
type AccountRegistry struct {
	Users    []User `json:"users"`
	NextSlot int    `json:"nextAccountSlot"`
}

// NewAccountRegistry returns the empty registry used when nothing is persisted yet.
func NewAccountRegistry() *AccountRegistry {
	return &AccountRegistry{Users: []User{}, NextSlot: 0}
}

// IndexByEmail returns the position of the user owning email, compared
// case-insensitively, or -1.
func (r *AccountRegistry) IndexByEmail(email string) int {
	for i := range r.Users {
		if strings.EqualFold(r.Users[i].Email, email) {
			return i
		}
	}
	return -1
}

// IndexByToken returns the position of the user holding token, or -1.
// The empty token never matches.
func (r *AccountRegistry) IndexByToken(token string) int {
	if token == "" {
		return -1
	}
	for i := range r.Users {
		if r.Users[i].SessionToken == token {
			return i
		}
	}
	return -1
}

// IndexByID returns the position of the user with the given id, or -1.
func (r *AccountRegistry) IndexByID(id string) int {
	for i := range r.Users {
		if r.Users[i].ID == id {
			return i
		}
	}
	return -1
}

// Append assigns the next slot to u, stores it and advances the counter.
// It does not check for duplicates; see IndexByEmail.
func (r *AccountRegistry) Append(u User) User {
	u.AccountSlot = r.NextSlot
	r.Users = append(r.Users, u)
	r.NextSlot++
	return u
}
