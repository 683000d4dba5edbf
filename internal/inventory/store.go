package inventory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/HerbHall/ponplan/pkg/models"
)

// maxChainDepth bounds the parent walk. The deepest legal chain is
// OLT -> MS -> SUBMS/FDB -> X2 -> customer.
const maxChainDepth = 8

const deviceColumns = `d.id, d.name, d.device_type, d.type_code, d.parent_id, d.declared_ports,
	d.location, d.notes, d.created_at, d.updated_at,
	(SELECT COUNT(*) FROM pon_devices c WHERE c.parent_id = d.id)`

// InventoryStore provides database access for the PON device tree.
type InventoryStore struct {
	db *sql.DB
}

// NewInventoryStore creates a new InventoryStore backed by the given database.
func NewInventoryStore(db *sql.DB) *InventoryStore {
	return &InventoryStore{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDevice(row rowScanner) (models.PonDevice, error) {
	var d models.PonDevice
	var parent sql.NullString
	err := row.Scan(
		&d.ID, &d.Name, &d.DeviceType, &d.TypeCode, &parent, &d.DeclaredPorts,
		&d.Location, &d.Notes, &d.CreatedAt, &d.UpdatedAt, &d.ActivePorts,
	)
	d.ParentID = parent.String
	return d, err
}

func scanDevices(rows *sql.Rows) ([]models.PonDevice, error) {
	defer rows.Close()
	var out []models.PonDevice
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("scan device: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// InsertDevice stores a new device. The caller validates the hierarchy.
func (s *InventoryStore) InsertDevice(ctx context.Context, d *models.PonDevice) error {
	var parent sql.NullString
	if d.ParentID != "" {
		parent = sql.NullString{String: d.ParentID, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pon_devices (
			id, name, device_type, type_code, parent_id, declared_ports,
			location, notes, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.Name, string(d.DeviceType), d.TypeCode, parent, d.DeclaredPorts,
		d.Location, d.Notes, d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert device: %w", err)
	}
	return nil
}

// GetDevice returns a device by ID. Returns nil, nil if not found.
func (s *InventoryStore) GetDevice(ctx context.Context, id string) (*models.PonDevice, error) {
	d, err := scanDevice(s.db.QueryRowContext(ctx,
		`SELECT `+deviceColumns+` FROM pon_devices d WHERE d.id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get device: %w", err)
	}
	return &d, nil
}

// ListDevices returns the devices of the given types, every device when no
// type is given, ordered by name.
func (s *InventoryStore) ListDevices(ctx context.Context, types ...models.DeviceType) ([]models.PonDevice, error) {
	query := `SELECT ` + deviceColumns + ` FROM pon_devices d`
	args := make([]any, 0, len(types))
	if len(types) > 0 {
		marks := make([]string, len(types))
		for i, t := range types {
			marks[i] = "?"
			args = append(args, string(t))
		}
		query += ` WHERE d.device_type IN (` + strings.Join(marks, ", ") + `)`
	}
	query += ` ORDER BY d.name, d.id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	return scanDevices(rows)
}

// ListChildren returns the direct children of parentID, ordered by name.
func (s *InventoryStore) ListChildren(ctx context.Context, parentID string) ([]models.PonDevice, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+deviceColumns+` FROM pon_devices d WHERE d.parent_id = ? ORDER BY d.name, d.id`,
		parentID)
	if err != nil {
		return nil, fmt.Errorf("list children: %w", err)
	}
	return scanDevices(rows)
}

// DeleteDevice removes a leaf device and returns it as it was stored.
// It fails with ErrNotFound or ErrHasChildren.
func (s *InventoryStore) DeleteDevice(ctx context.Context, id string) (*models.PonDevice, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin delete: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	d, err := scanDevice(tx.QueryRowContext(ctx,
		`SELECT `+deviceColumns+` FROM pon_devices d WHERE d.id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("load device: %w", err)
	}
	if d.ActivePorts > 0 {
		return nil, fmt.Errorf("%w: %s has %d attached devices", ErrHasChildren, id, d.ActivePorts)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM pon_devices WHERE id = ?`, id); err != nil {
		return nil, fmt.Errorf("delete device: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit delete: %w", err)
	}
	return &d, nil
}

// Ancestors returns the chain from the root of id's tree down to id itself.
// Returns nil, nil if id is unknown.
func (s *InventoryStore) Ancestors(ctx context.Context, id string) ([]models.PonDevice, error) {
	rows, err := s.db.QueryContext(ctx, `
		WITH RECURSIVE chain(id, depth) AS (
			SELECT id, 0 FROM pon_devices WHERE id = ?
			UNION ALL
			SELECT p.parent_id, chain.depth + 1
			FROM pon_devices p JOIN chain ON p.id = chain.id
			WHERE p.parent_id IS NOT NULL AND chain.depth < ?
		)
		SELECT `+deviceColumns+`
		FROM chain JOIN pon_devices d ON d.id = chain.id
		ORDER BY chain.depth DESC`,
		id, maxChainDepth)
	if err != nil {
		return nil, fmt.Errorf("walk ancestors: %w", err)
	}
	return scanDevices(rows)
}

// CountCustomers returns the number of customer devices anywhere below
// rootID.
func (s *InventoryStore) CountCustomers(ctx context.Context, rootID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		WITH RECURSIVE sub(id, depth) AS (
			SELECT id, 0 FROM pon_devices WHERE id = ?
			UNION ALL
			SELECT d.id, sub.depth + 1
			FROM pon_devices d JOIN sub ON d.parent_id = sub.id
			WHERE sub.depth < ?
		)
		SELECT COUNT(*) FROM pon_devices
		WHERE device_type = ? AND id IN (SELECT id FROM sub)`,
		rootID, maxChainDepth, string(models.DeviceTypeCustomer),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count customers: %w", err)
	}
	return n, nil
}

// Count returns the number of stored devices.
func (s *InventoryStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pon_devices`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count devices: %w", err)
	}
	return n, nil
}
