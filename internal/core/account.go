package core

import "time"

type (
	// User is a credential record of the authentication provider.
	User struct {
		ID           string
		Email        string
		PasswordHash string
		CreatedAt    time.Time
	}

	// Couple is the tenant every planning record belongs to.
	Couple struct {
		ID        string
		Name      string
		CreatedAt time.Time
	}
)
