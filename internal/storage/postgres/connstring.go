package postgres

import (
	"fmt"
	"strings"

	"github.com/dambry/nemsis-ingest/internal/config"
)

// ConnString builds a key/value PostgreSQL connection string from the
// loaded configuration. Values are single-quoted so passwords containing
// spaces or quotes survive intact.
func ConnString(cfg *config.Config) string {
	parts := []string{
		"host=" + quoteConnValue(cfg.Host),
		"port=" + quoteConnValue(cfg.Port),
		"dbname=" + quoteConnValue(cfg.Database),
		"user=" + quoteConnValue(cfg.User),
		"password=" + quoteConnValue(cfg.Password),
	}
	return strings.Join(parts, " ")
}

// quoteConnValue quotes a libpq-style connection parameter value.
func quoteConnValue(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return fmt.Sprintf("'%s'", v)
}
