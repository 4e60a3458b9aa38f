package shared

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditAction names an admin operation recorded in the audit trail.
type AuditAction string

// Actions recorded by the console.
const (
	AuditProductCreate     AuditAction = "product.create"
	AuditProductUpdate     AuditAction = "product.update"
	AuditProductDelete     AuditAction = "product.delete"
	AuditProductRestock    AuditAction = "product.bulk_restock"
	AuditProductAddStock   AuditAction = "product.bulk_add_stock"
	AuditProductBulkDelete AuditAction = "product.bulk_delete"
	AuditUserRoleChange    AuditAction = "user.role_change"
	AuditUserDeactivate    AuditAction = "user.deactivate"
	AuditOrderStatusChange AuditAction = "order.status_change"
)

// AuditEntry is one row of the audit trail: who did what to which
// entity, with optional structured detail.
type AuditEntry struct {
	ActorID  int64
	Action   AuditAction
	Entity   string
	EntityID string
	Meta     map[string]any
}

// AuditLogger appends entries to the audit_logs table.
type AuditLogger struct {
	pool *pgxpool.Pool
}

// NewAuditLogger constructs an AuditLogger.
func NewAuditLogger(pool *pgxpool.Pool) *AuditLogger {
	return &AuditLogger{pool: pool}
}

// Record persists the entry, timestamped by the database. Audit writes
// never block the operation that produced them; callers log the error
// and continue.
func (l *AuditLogger) Record(ctx context.Context, entry AuditEntry) error {
	if l == nil || l.pool == nil {
		return errors.New("audit logger not initialised")
	}
	if entry.Action == "" || entry.Entity == "" || entry.EntityID == "" {
		return errors.New("audit entry requires action, entity and entity id")
	}
	meta, err := json.Marshal(entry.Meta)
	if err != nil {
		return err
	}
	_, err = l.pool.Exec(ctx,
		`INSERT INTO audit_logs (actor_id, action, entity, entity_id, meta, occurred_at) VALUES ($1, $2, $3, $4, $5, NOW())`,
		entry.ActorID, string(entry.Action), entry.Entity, entry.EntityID, meta)
	return err
}
