package store

import (
	"context"
	"strings"
	"time"
)

// Settings are small operational toggles stored in the database so they
// survive restarts and apply to every instance, e.g. "alerts.enabled".

// GetSetting returns the value for a key, or the empty string when unset.
func (s *Store) GetSetting(ctx context.Context, key string) (v string, err error) {
	defer instrument("settings.get", time.Now(), &err)
	err = s.db.QueryRowContext(ctx, `SELECT value FROM app_settings WHERE key = $1`, key).Scan(&v)
	if err != nil {
		if notFound(err) == ErrNotFound {
			return "", nil
		}
		return "", err
	}
	return v, nil
}

// SetSetting stores the value for a key, overwriting any previous value.
func (s *Store) SetSetting(ctx context.Context, key, value string) (err error) {
	defer instrument("settings.set", time.Now(), &err)
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO app_settings (key, value, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		key, strings.TrimSpace(value))
	return err
}

// ListSettings returns every stored setting.
func (s *Store) ListSettings(ctx context.Context) (out map[string]string, err error) {
	defer instrument("settings.list", time.Now(), &err)
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM app_settings ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out = make(map[string]string)
	for rows.Next() {
		var k, v string
		if err = rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	err = rows.Err()
	return out, err
}

// GetSettingBool reads a boolean setting, falling back to def when the key is
// unset or the value is not recognizably boolean.
func (s *Store) GetSettingBool(ctx context.Context, key string, def bool) (bool, error) {
	v, err := s.GetSetting(ctx, key)
	if err != nil {
		return def, err
	}
	if v == "" {
		return def, nil
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off":
		return false, nil
	default:
		return def, nil
	}
}
