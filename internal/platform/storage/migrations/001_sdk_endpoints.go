package migrations

import "gorm.io/gorm"

// Migration001SDKEndpoints creates the SDK endpoint registry table.
type Migration001SDKEndpoints struct{}

func (m *Migration001SDKEndpoints) Version() string {
	return "001_sdk_endpoints"
}

func (m *Migration001SDKEndpoints) Description() string {
	return "Create sdk_endpoints table"
}

func (m *Migration001SDKEndpoints) Up(db *gorm.DB) error {
	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS sdk_endpoints (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			tag VARCHAR(64) NOT NULL UNIQUE,
			url VARCHAR(2048) NOT NULL,
			headers JSON,
			position INTEGER NOT NULL,
			created_at DATETIME,
			updated_at DATETIME
		)
	`).Error; err != nil {
		return err
	}
	return db.Exec(`CREATE INDEX IF NOT EXISTS idx_sdk_endpoints_position ON sdk_endpoints(position)`).Error
}
