package payout

import (
	"context"
	"errors"
	"sync"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgxpool"
)

// singletonKey names the only row of payout_instructions.
const singletonKey = "default"

var ErrNotFound = errors.New("payout instructions not found")

// Repository stores the singleton instructions record.
type Repository interface {
	Get(ctx context.Context) (Instructions, error)
	Upsert(ctx context.Context, inst Instructions) (Instructions, error)
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed payout repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const instructionColumns = `zelle_email, zelle_phone, cashapp_email, cashapp_username, chime_email,
        chime_phone, chime_account_name, chime_account_number, chime_routing_number, updated_at`

func (r *PostgresRepository) Get(ctx context.Context) (Instructions, error) {
	var inst Instructions
	err := pgxscan.Get(ctx, r.db, &inst, `SELECT `+instructionColumns+` FROM payout_instructions WHERE key = $1`, singletonKey)
	if err != nil {
		if pgxscan.NotFound(err) {
			return Instructions{}, ErrNotFound
		}
		return Instructions{}, err
	}
	return inst, nil
}

func (r *PostgresRepository) Upsert(ctx context.Context, inst Instructions) (Instructions, error) {
	var saved Instructions
	err := pgxscan.Get(ctx, r.db, &saved, `INSERT INTO payout_instructions (key, `+instructionColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
        ON CONFLICT (key) DO UPDATE SET
            zelle_email = EXCLUDED.zelle_email, zelle_phone = EXCLUDED.zelle_phone,
            cashapp_email = EXCLUDED.cashapp_email, cashapp_username = EXCLUDED.cashapp_username,
            chime_email = EXCLUDED.chime_email, chime_phone = EXCLUDED.chime_phone,
            chime_account_name = EXCLUDED.chime_account_name,
            chime_account_number = EXCLUDED.chime_account_number,
            chime_routing_number = EXCLUDED.chime_routing_number, updated_at = EXCLUDED.updated_at
        RETURNING `+instructionColumns,
		singletonKey, inst.ZelleEmail, inst.ZellePhone, inst.CashAppEmail, inst.CashAppUsername, inst.ChimeEmail,
		inst.ChimePhone, inst.ChimeAccountName, inst.ChimeAccountNumber, inst.ChimeRoutingNumber, inst.UpdatedAt.UTC())
	if err != nil {
		return Instructions{}, err
	}
	return saved, nil
}

type memoryRepository struct {
	mu   sync.RWMutex
	inst *Instructions
}

// NewMemoryRepository builds an in-memory payout store for tests and local development.
func NewMemoryRepository() Repository {
	return &memoryRepository{}
}

func (r *memoryRepository) Get(context.Context) (Instructions, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.inst == nil {
		return Instructions{}, ErrNotFound
	}
	return *r.inst, nil
}

func (r *memoryRepository) Upsert(_ context.Context, inst Instructions) (Instructions, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inst = &inst
	return inst, nil
}
