package request

type CreateTenant struct {
	Name           string `json:"name" validate:"required"`
	Subdomain      string `json:"subdomain" validate:"required,slug"`
	OwnerID        string `json:"owner_id" validate:"required"`
	MaxInstances   int    `json:"max_instances" validate:"omitempty,min=1"`
	StorageLimitGB int    `json:"storage_limit_gb" validate:"omitempty,min=1"`
}

type UpdateTenant struct {
	Name           string `json:"name" validate:"required"`
	MaxInstances   int    `json:"max_instances" validate:"required,min=1"`
	StorageLimitGB int    `json:"storage_limit_gb" validate:"required,min=1"`
	Active         bool   `json:"active"`
}
