package repo

import (
	"context"
	"database/sql"
)

// DeviceTokensRepo stores FCM registration tokens per user.
type DeviceTokensRepo struct {
	db *sql.DB
}

// NewDeviceTokensRepo constructs a DeviceTokensRepo.
func NewDeviceTokensRepo(db *sql.DB) *DeviceTokensRepo {
	return &DeviceTokensRepo{db: db}
}

// Save upserts a device token for the user.
func (r *DeviceTokensRepo) Save(ctx context.Context, userID int64, token string) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO device_tokens (user_id, token) VALUES (?,?) ON DUPLICATE KEY UPDATE user_id = VALUES(user_id)`, userID, token)
	return err
}

// ListByUser returns all registered tokens of the user.
func (r *DeviceTokensRepo) ListByUser(ctx context.Context, userID int64) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT token FROM device_tokens WHERE user_id = ?`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

// Delete removes a token that FCM reported dead.
func (r *DeviceTokensRepo) Delete(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM device_tokens WHERE token = ?`, token)
	return err
}
