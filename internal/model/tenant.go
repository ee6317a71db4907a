package model

import "time"

type Tenant struct {
	ID             string    `json:"id" db:"id"`
	Name           string    `json:"name" db:"name"`
	Subdomain      string    `json:"subdomain" db:"subdomain"`
	OwnerID        string    `json:"owner_id" db:"owner_id"`
	MaxInstances   int       `json:"max_instances" db:"max_instances"`
	StorageLimitGB int       `json:"storage_limit_gb" db:"storage_limit_gb"`
	Active         bool      `json:"active" db:"active"`
	LastActivityAt *time.Time `json:"last_activity_at,omitempty" db:"last_activity_at"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}
