package postgres

// Repositories groups concrete PostgreSQL repository implementations.
type Repositories struct {
	Accounts *AccountRepository
	Plants   *PlantRepository
	Audit    *AuditRepository
}

// NewRepositories wires all repositories backed by the provided executor,
// normally a *pgxpool.Pool.
func NewRepositories(exec pgExecutor) *Repositories {
	return &Repositories{
		Accounts: NewAccountRepository(exec),
		Plants:   NewPlantRepository(exec),
		Audit:    NewAuditRepository(exec),
	}
}
