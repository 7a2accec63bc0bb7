// Package capability reads the connected server's version and user so
// version bound fields and new record defaults match a real server.
package capability

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/goliatone/go-adminform/pkg/node"
)

// ServerTypes recognised from the version banner.
const (
	ServerPostgres = "pg"
	ServerAdvanced = "ppas"
)

const (
	probeQuery = `SELECT current_setting('server_version_num')::int, version(), current_user`
	rolesQuery = `SELECT rolname FROM pg_catalog.pg_roles ORDER BY rolname`
)

// ErrNotConnected is returned when probing a closed prober.
var ErrNotConnected = errors.New("capability: database connection not established")

// Prober queries server capabilities over database/sql.
type Prober struct {
	db     *sql.DB
	logger *slog.Logger
}

// New wraps an open database handle. If logger is nil, a discard logger is
// used.
func New(db *sql.DB, logger *slog.Logger) *Prober {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Prober{db: db, logger: logger}
}

// Open connects to dsn through the pgx driver and pings it.
func Open(ctx context.Context, dsn string, logger *slog.Logger) (*Prober, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("capability: open postgres connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("capability: ping postgres: %w", err)
	}
	return New(db, logger), nil
}

// Probe returns the server info for the server registered under id.
func (p *Prober) Probe(ctx context.Context, id string) (node.ServerInfo, error) {
	if p == nil || p.db == nil {
		return node.ServerInfo{}, ErrNotConnected
	}
	var (
		version int
		banner  string
		user    string
	)
	if err := p.db.QueryRowContext(ctx, probeQuery).Scan(&version, &banner, &user); err != nil {
		return node.ServerInfo{}, fmt.Errorf("capability: probe server %s: %w", id, err)
	}
	info := node.ServerInfo{ID: id, Type: serverType(banner), Version: version, User: user}
	p.logger.Debug("capability: probed server", "server", id, "type", info.Type, "version", info.Version)
	return info, nil
}

// Roles lists the login and group roles of the connected server by name.
func (p *Prober) Roles(ctx context.Context) ([]string, error) {
	if p == nil || p.db == nil {
		return nil, ErrNotConnected
	}
	rows, err := p.db.QueryContext(ctx, rolesQuery)
	if err != nil {
		return nil, fmt.Errorf("capability: list roles: %w", err)
	}
	defer rows.Close()

	var roles []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("capability: scan role: %w", err)
		}
		roles = append(roles, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("capability: list roles: %w", err)
	}
	p.logger.Debug("capability: listed roles", "count", len(roles))
	return roles, nil
}

// Close releases the connection.
func (p *Prober) Close() error {
	if p == nil || p.db == nil {
		return nil
	}
	return p.db.Close()
}

func serverType(banner string) string {
	if strings.Contains(banner, "EnterpriseDB") {
		return ServerAdvanced
	}
	return ServerPostgres
}
