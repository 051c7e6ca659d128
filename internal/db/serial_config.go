package db

import (
	"database/sql"
	"errors"
	"fmt"
)

// ErrConfigNotFound is returned when no serial config has the requested ID.
var ErrConfigNotFound = errors.New("serial config not found")

// SerialConfig represents a serial port configuration for the locker bus.
// At most one config is enabled at a time; the service opens that port at
// startup.
type SerialConfig struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	PortPath    string `json:"port_path"`
	BaudRate    int    `json:"baud_rate"`
	DataBits    int    `json:"data_bits"`
	StopBits    int    `json:"stop_bits"`
	Parity      string `json:"parity"`
	Enabled     bool   `json:"enabled"`
	Description string `json:"description"`
	CreatedAt   int64  `json:"created_at"`
	UpdatedAt   int64  `json:"updated_at"`
}

const serialConfigColumns = `id, name, port_path, baud_rate, data_bits, stop_bits, parity, enabled, description, created_at, updated_at`

func scanSerialConfig(row interface{ Scan(...any) error }) (*SerialConfig, error) {
	var c SerialConfig
	var enabled int
	err := row.Scan(&c.ID, &c.Name, &c.PortPath, &c.BaudRate, &c.DataBits, &c.StopBits,
		&c.Parity, &enabled, &c.Description, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	c.Enabled = enabled == 1
	return &c, nil
}

// GetSerialConfigs returns all serial configurations.
func (db *DB) GetSerialConfigs() ([]SerialConfig, error) {
	rows, err := db.Query(`SELECT ` + serialConfigColumns + ` FROM serial_config ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query serial configs: %w", err)
	}
	defer rows.Close()

	var configs []SerialConfig
	for rows.Next() {
		c, err := scanSerialConfig(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan serial config: %w", err)
		}
		configs = append(configs, *c)
	}
	return configs, rows.Err()
}

// GetSerialConfig returns a single serial configuration by ID.
func (db *DB) GetSerialConfig(id int) (*SerialConfig, error) {
	c, err := scanSerialConfig(db.QueryRow(
		`SELECT `+serialConfigColumns+` FROM serial_config WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrConfigNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get serial config %d: %w", id, err)
	}
	return c, nil
}

// GetEnabledSerialConfig returns the active configuration, or
// ErrConfigNotFound when none is enabled.
func (db *DB) GetEnabledSerialConfig() (*SerialConfig, error) {
	c, err := scanSerialConfig(db.QueryRow(
		`SELECT ` + serialConfigColumns + ` FROM serial_config WHERE enabled = 1 ORDER BY updated_at DESC LIMIT 1`))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrConfigNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get enabled serial config: %w", err)
	}
	return c, nil
}

// CreateSerialConfig inserts a new configuration and fills in its ID. When the
// config is enabled, any previously enabled config is disabled in the same
// transaction so only one stays active.
func (db *DB) CreateSerialConfig(c *SerialConfig) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if c.Enabled {
		if _, err := tx.Exec(`UPDATE serial_config SET enabled = 0, updated_at = unixepoch() WHERE enabled = 1`); err != nil {
			return fmt.Errorf("failed to disable previous config: %w", err)
		}
	}

	res, err := tx.Exec(
		`INSERT INTO serial_config (name, port_path, baud_rate, data_bits, stop_bits, parity, enabled, description)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.Name, c.PortPath, c.BaudRate, c.DataBits, c.StopBits, c.Parity, boolToInt(c.Enabled), c.Description,
	)
	if err != nil {
		return fmt.Errorf("failed to create serial config: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = int(id)
	return tx.Commit()
}

// UpdateSerialConfig updates an existing configuration by ID.
func (db *DB) UpdateSerialConfig(c *SerialConfig) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if c.Enabled {
		if _, err := tx.Exec(`UPDATE serial_config SET enabled = 0, updated_at = unixepoch() WHERE enabled = 1 AND id != ?`, c.ID); err != nil {
			return fmt.Errorf("failed to disable previous config: %w", err)
		}
	}

	res, err := tx.Exec(
		`UPDATE serial_config
		 SET name = ?, port_path = ?, baud_rate = ?, data_bits = ?, stop_bits = ?, parity = ?, enabled = ?, description = ?, updated_at = unixepoch()
		 WHERE id = ?`,
		c.Name, c.PortPath, c.BaudRate, c.DataBits, c.StopBits, c.Parity, boolToInt(c.Enabled), c.Description, c.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update serial config %d: %w", c.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConfigNotFound
	}
	return tx.Commit()
}

// DeleteSerialConfig removes a configuration by ID.
func (db *DB) DeleteSerialConfig(id int) error {
	res, err := db.Exec(`DELETE FROM serial_config WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete serial config %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConfigNotFound
	}
	return nil
}
