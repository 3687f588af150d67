package repository

import (
	"toolcart/pkg/database"

	"go.uber.org/zap"
)

type Repository struct {
	User   UserRepository
	Secret SecretRepository
	Order  OrderRepository
}

// NewRepository wires the Postgres-backed repositories. The secret store can be
// swapped afterwards (see WithSecretStore) when SECRET_STORE=dynamodb.
func NewRepository(db database.PgxIface, log *zap.Logger) *Repository {
	return &Repository{
		User:   NewUserRepository(db, log),
		Secret: NewSecretRepository(db, log),
		Order:  NewOrderRepository(db, log),
	}
}

func (r *Repository) WithSecretStore(store SecretRepository) *Repository {
	r.Secret = store
	return r
}
