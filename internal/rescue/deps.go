package rescue

import (
	"database/sql"
	"errors"

	"firebase.google.com/go/messaging"
	"github.com/redis/go-redis/v9"
)

// Logger provides minimal logging required by the rescue module.
type Logger interface {
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// RescueDeps groups external dependencies needed by the rescue module.
type RescueDeps struct {
	DB     *sql.DB
	RDB    *redis.Client
	FCM    *messaging.Client
	Logger Logger
	Config RescueConfig
	module *moduleState
}

// Validate ensures required dependencies are provided. FCM is optional:
// without it push delivery is skipped and only the websocket path is used.
func (d *RescueDeps) Validate() error {
	if d.DB == nil {
		return errors.New("rescue deps: DB is required")
	}
	if d.RDB == nil {
		return errors.New("rescue deps: RDB is required")
	}
	if d.Logger == nil {
		return errors.New("rescue deps: Logger is required")
	}
	return nil
}
