package core

import (
	temporalclient "go.temporal.io/sdk/client"

	"github.com/orchardhq/orchard/internal/runtime"
)

type Services struct {
	Tenant   *TenantService
	Instance *InstanceService
	Backup   *BackupService
	Search   *SearchService
}

func NewServices(db DB, tc temporalclient.Client, rt runtime.Runtime, basePort int) *Services {
	return &Services{
		Tenant:   NewTenantService(db, tc),
		Instance: NewInstanceService(db, tc, rt, basePort),
		Backup:   NewBackupService(db, tc),
		Search:   NewSearchService(db),
	}
}
