package directory

import "time"

// User is one account in the user directory. Verifier is a salted one-way
// password hash (bcrypt); the plaintext password is never stored.
type User struct {
	ID        string
	UserName  string
	Email     string
	Verifier  []byte
	Active    bool
	CreatedAt time.Time
	LastLogin time.Time
}
