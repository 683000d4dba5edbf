package inventory

import (
	"database/sql"

	"github.com/HerbHall/ponplan/pkg/plugin"
)

func migrations() []plugin.Migration {
	return []plugin.Migration{
		{
			Version:     1,
			Description: "create pon device table",
			Up: func(tx *sql.Tx) error {
				stmts := []string{
					`CREATE TABLE IF NOT EXISTS pon_devices (
						id TEXT PRIMARY KEY,
						name TEXT NOT NULL,
						device_type TEXT NOT NULL,
						type_code TEXT NOT NULL DEFAULT '',
						parent_id TEXT REFERENCES pon_devices(id),
						declared_ports INTEGER NOT NULL DEFAULT 0,
						location TEXT NOT NULL DEFAULT '',
						notes TEXT NOT NULL DEFAULT '',
						created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
						updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
					)`,
					`CREATE INDEX IF NOT EXISTS idx_pon_devices_parent ON pon_devices(parent_id)`,
					`CREATE INDEX IF NOT EXISTS idx_pon_devices_type ON pon_devices(device_type)`,
				}
				for _, stmt := range stmts {
					if _, err := tx.Exec(stmt); err != nil {
						return err
					}
				}
				return nil
			},
		},
	}
}
