package audit

import (
	"github.com/newtron-network/rogue-dhcp/pkg/config"
)

// Open returns the backend selected by cfg: Redis when an address is set,
// otherwise a rotating JSON-lines file. A disabled audit returns nil.
func Open(cfg config.AuditConfig) (Logger, error) {
	if cfg.Disabled {
		return nil, nil
	}
	if r := cfg.Redis; r != nil && r.Addr != "" {
		key := r.Key
		if key == "" {
			key = config.DefaultRedisKey
		}
		l, err := NewRedisLogger(r.Addr, r.DB, key, r.MaxLen)
		if err != nil {
			return nil, err
		}
		return l, nil
	}
	path := cfg.Path
	if path == "" {
		path = config.DefaultAuditPath()
	}
	l, err := NewFileLogger(path, RotationConfig{
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
	})
	if err != nil {
		return nil, err
	}
	return l, nil
}
