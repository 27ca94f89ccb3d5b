package ewelinktools

import (
	"github.com/clambin/opendoor/internal/ewelink"
	"github.com/clambin/opendoor/internal/store"
	"github.com/spf13/viper"
	"log/slog"
)

// OpenTokenStore opens the database holding the eWeLink tokens. If it can't be opened (e.g. because the monitor is
// running), it returns a nil store and the client falls back to the configured tokens.
func OpenTokenStore(v *viper.Viper, logger *slog.Logger) (ewelink.TokenStore, func()) {
	path := v.GetString("store.path")
	if path == "" {
		return nil, func() {}
	}
	db, err := store.OpenBolt(path)
	if err != nil {
		logger.Warn("token store not available. using configured tokens", "path", path, "err", err)
		return nil, func() {}
	}
	return db, func() { _ = db.Close() }
}
