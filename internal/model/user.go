package model

import "time"

// User represents an application user record as stored in the
// `users` table. Each field corresponds to a column in the
// database. Email is unique, trimmed and lower-cased. StoreID is nil
// only for admins. RefreshToken holds the single refresh token currently
// valid for the user and is nil when logged out. PasswordHash and
// RefreshToken never leave the server; handlers respond with the
// PublicUser projection instead.
type User struct {
	ID           uint64    // users.id
	Name         string    // users.name
	Email        string    // users.email
	PasswordHash string    // users.password_hash
	Role         Role      // users.role
	StoreID      *uint64   // users.store_id (nullable)
	RefreshToken *string   // users.refresh_token (nullable)
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}

// PublicUser is the outward-facing projection of a User.
type PublicUser struct {
	ID        uint64    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	StoreID   *uint64   `json:"store_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Public strips the password hash and refresh token.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		StoreID:   u.StoreID,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// PublicUsers maps a slice of users to their public projections.
func PublicUsers(users []User) []PublicUser {
	out := make([]PublicUser, 0, len(users))
	for i := range users {
		out = append(out, users[i].Public())
	}
	return out
}

// UserUpdate lists the columns a partial update may touch. Nil pointers
// leave the column unchanged; ClearRefreshToken sets refresh_token to NULL.
type UserUpdate struct {
	Name              *string
	Email             *string
	PasswordHash      *string
	ClearRefreshToken bool
}

// Empty reports whether the update would not change anything.
func (u UserUpdate) Empty() bool {
	return u.Name == nil && u.Email == nil && u.PasswordHash == nil && !u.ClearRefreshToken
}
