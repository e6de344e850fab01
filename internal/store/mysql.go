package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
)

//go:embed schema.sql
var schemaDDL string

// Config holds the connection settings for the MySQL store.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
}

// MySQL implements the inventory and registry on a MySQL database.
type MySQL struct {
	db *sqlx.DB
}

// Open creates a connection pool for the given configuration.
// The pool is lazy; call Ping to verify connectivity.
func Open(cfg Config) (*MySQL, error) {
	db, err := sqlx.Open("mysql", formatDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(5 * time.Minute)

	return New(db), nil
}

// formatDSN builds the driver DSN. Stacked statements stay disabled.
func formatDSN(cfg Config) string {
	dsn := mysql.NewConfig()
	dsn.User = cfg.User
	dsn.Passwd = cfg.Password
	dsn.Net = "tcp"
	dsn.Addr = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	dsn.DBName = cfg.Database
	dsn.ParseTime = true
	return dsn.FormatDSN()
}

// New wraps an existing connection pool.
func New(db *sqlx.DB) *MySQL {
	return &MySQL{db: db}
}

// Ping verifies the database is reachable.
func (s *MySQL) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the connection pool.
func (s *MySQL) Close() error {
	return s.db.Close()
}

// Migrate applies the schema contract one statement at a time. Statements
// are idempotent.
func (s *MySQL) Migrate(ctx context.Context) error {
	for i, stmt := range schemaStatements(schemaDDL) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema statement %d: %w", i+1, err)
		}
	}
	return nil
}

// schemaStatements splits a DDL script on semicolons. The schema holds no
// string literals or routines, so a plain split is enough.
func schemaStatements(ddl string) []string {
	var out []string
	for _, stmt := range strings.Split(ddl, ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}

// withTx runs fn inside a transaction. The transaction is committed only if fn
// returns nil; any error or panic rolls it back.
func (s *MySQL) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		if cerr := tx.Commit(); cerr != nil {
			err = fmt.Errorf("commit transaction: %w", cerr)
		}
	}()

	return fn(tx)
}

// RegisterSwitch inserts the switch for a node and provisions count free
// interfaces for it. If the switch already exists nothing changes and created
// is false, so replayed notifications never duplicate interfaces.
func (s *MySQL) RegisterSwitch(ctx context.Context, node string, count int) (created bool, err error) {
	err = s.withTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `INSERT IGNORE INTO switches (node_name) VALUES (?)`, node)
		if err != nil {
			return fmt.Errorf("insert switch: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
		switchID, err := res.LastInsertId()
		if err != nil {
			return err
		}
		created = true

		if count <= 0 {
			return nil
		}
		values := make([]string, 0, count)
		args := make([]any, 0, 2*count)
		for i := 1; i <= count; i++ {
			values = append(values, "(?, ?)")
			args = append(args, InterfaceName(i), switchID)
		}
		query := `INSERT INTO interfaces (name, switch_id) VALUES ` + strings.Join(values, ", ")
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("provision interfaces: %w", err)
		}
		return nil
	})
	return created, err
}

// UpdateSwitchIP records a new management address for the switch on node and
// clears the cached device identifier. It reports whether the address changed.
func (s *MySQL) UpdateSwitchIP(ctx context.Context, node, ip string) (changed bool, err error) {
	err = s.withTx(ctx, func(tx *sqlx.Tx) error {
		var sw Switch
		if err := tx.GetContext(ctx, &sw,
			`SELECT id, node_name, openflow_id, ip FROM switches WHERE node_name = ? FOR UPDATE`, node); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrSwitchNotFound
			}
			return fmt.Errorf("lock switch: %w", err)
		}
		if current, ok := sw.Address(); ok && current == ip {
			return nil
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE switches SET ip = ?, openflow_id = NULL WHERE id = ?`, ip, sw.ID); err != nil {
			return fmt.Errorf("update switch address: %w", err)
		}
		changed = true
		return nil
	})
	return changed, err
}

// GetSwitch returns the switch registered for node.
func (s *MySQL) GetSwitch(ctx context.Context, node string) (*Switch, error) {
	var sw Switch
	err := s.db.GetContext(ctx, &sw,
		`SELECT id, node_name, openflow_id, ip FROM switches WHERE node_name = ?`, node)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSwitchNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get switch: %w", err)
	}
	return &sw, nil
}

// CacheSwitchDevice stores a resolved device identifier. The write only lands
// if the switch still has the address the identifier was resolved from.
func (s *MySQL) CacheSwitchDevice(ctx context.Context, switchID int64, ip, deviceID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE switches SET openflow_id = ? WHERE id = ? AND ip = ?`, deviceID, switchID, ip)
	if err != nil {
		return fmt.Errorf("cache device id: %w", err)
	}
	return nil
}

// DeleteSwitch removes the switch for node together with all of its
// interfaces. Deleting an unknown switch is a no-op.
func (s *MySQL) DeleteSwitch(ctx context.Context, node string) (removed int64, err error) {
	err = s.withTx(ctx, func(tx *sqlx.Tx) error {
		var id int64
		if err := tx.GetContext(ctx, &id,
			`SELECT id FROM switches WHERE node_name = ? FOR UPDATE`, node); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil
			}
			return fmt.Errorf("lock switch: %w", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM interfaces WHERE switch_id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete interfaces: %w", err)
		}
		if removed, err = res.RowsAffected(); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM switches WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete switch: %w", err)
		}
		return nil
	})
	return removed, err
}

// RegisterNetwork upserts (name, type) and then runs provision inside the same
// transaction. If provision fails the upsert is rolled back, so the registry
// never shows a network the SDN controller does not hold. The row stays locked
// while provision runs. provision may be nil.
func (s *MySQL) RegisterNetwork(ctx context.Context, ref NetworkRef, provision func(context.Context) error) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO networks (name, type) VALUES (?, ?) ON DUPLICATE KEY UPDATE type = VALUES(type)`,
			ref.Name, ref.Type); err != nil {
			return fmt.Errorf("upsert network: %w", err)
		}
		if provision == nil {
			return nil
		}
		return provision(ctx)
	})
}

// DeleteNetwork frees every interface bound to the network, deletes the
// network row and runs teardown, all in one transaction. Nothing is committed
// unless teardown succeeds. A missing row is not an error: teardown still runs
// so repeated deletions converge. teardown may be nil.
func (s *MySQL) DeleteNetwork(ctx context.Context, ref NetworkRef, teardown func(context.Context) error) (released []Binding, err error) {
	err = s.withTx(ctx, func(tx *sqlx.Tx) error {
		var id int64
		err := tx.GetContext(ctx, &id,
			`SELECT id FROM networks WHERE name = ? AND type = ? FOR UPDATE`, ref.Name, ref.Type)
		switch {
		case errors.Is(err, sql.ErrNoRows):
		case err != nil:
			return fmt.Errorf("lock network: %w", err)
		default:
			if err := tx.SelectContext(ctx, &released, bindingQuery+` WHERE i.network_id = ? ORDER BY i.id FOR UPDATE`, id); err != nil {
				return fmt.Errorf("list network bindings: %w", err)
			}
			if _, err := tx.ExecContext(ctx,
				`UPDATE interfaces SET network_id = NULL, pod = NULL WHERE network_id = ?`, id); err != nil {
				return fmt.Errorf("release interfaces: %w", err)
			}
			if _, err := tx.ExecContext(ctx, `DELETE FROM networks WHERE id = ?`, id); err != nil {
				return fmt.Errorf("delete network: %w", err)
			}
		}
		if teardown == nil {
			return nil
		}
		return teardown(ctx)
	})
	if err != nil {
		return nil, err
	}
	return released, nil
}

const bindingQuery = `SELECT i.id AS interface_id, i.name AS interface_name, i.switch_id AS switch_id,
	s.node_name AS node_name, COALESCE(n.id, 0) AS network_id, COALESCE(n.name, '') AS network_name,
	COALESCE(n.type, '') AS network_type, COALESCE(i.pod, '') AS pod
	FROM interfaces i
	JOIN switches s ON s.id = i.switch_id
	LEFT JOIN networks n ON n.id = i.network_id`

// ClaimInterfaces atomically binds one free interface on node to pod, a
// PodKey, for each requested network, in request order. Candidates are the
// lowest-id free interfaces of the node. Either every network gets an interface or nothing
// is claimed: ErrNodeExhausted when too few are free, ErrClaimConflict when a
// candidate was taken concurrently.
func (s *MySQL) ClaimInterfaces(ctx context.Context, node, pod string, networks []NetworkRef) (claimed []Binding, err error) {
	if len(networks) == 0 {
		return nil, nil
	}

	err = s.withTx(ctx, func(tx *sqlx.Tx) error {
		resolved := make([]Network, 0, len(networks))
		for _, ref := range networks {
			var n Network
			if err := tx.GetContext(ctx, &n,
				`SELECT id, name, type FROM networks WHERE name = ? AND type = ?`, ref.Name, ref.Type); err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return fmt.Errorf("network %s: %w", ref, ErrNotFound)
				}
				return fmt.Errorf("resolve network %s: %w", ref, err)
			}
			resolved = append(resolved, n)
		}

		var free []struct {
			ID       int64  `db:"id"`
			Name     string `db:"name"`
			SwitchID int64  `db:"switch_id"`
		}
		if err := tx.SelectContext(ctx, &free,
			`SELECT i.id, i.name, i.switch_id FROM interfaces i
			JOIN switches s ON s.id = i.switch_id
			WHERE s.node_name = ? AND i.network_id IS NULL AND i.pod IS NULL
			ORDER BY i.id LIMIT ? FOR UPDATE`, node, len(networks)); err != nil {
			return fmt.Errorf("select free interfaces: %w", err)
		}
		if len(free) < len(networks) {
			return fmt.Errorf("%w: node %s has %d free, %d requested", ErrNodeExhausted, node, len(free), len(networks))
		}

		claimed = make([]Binding, 0, len(networks))
		for i, n := range resolved {
			iface := free[i]
			res, err := tx.ExecContext(ctx,
				`UPDATE interfaces SET network_id = ?, pod = ? WHERE id = ? AND network_id IS NULL AND pod IS NULL`,
				n.ID, pod, iface.ID)
			if err != nil {
				return fmt.Errorf("claim interface %s: %w", iface.Name, err)
			}
			affected, err := res.RowsAffected()
			if err != nil {
				return err
			}
			if affected != 1 {
				return fmt.Errorf("%w: %s on %s", ErrClaimConflict, iface.Name, node)
			}
			claimed = append(claimed, Binding{
				InterfaceID:   iface.ID,
				InterfaceName: iface.Name,
				SwitchID:      iface.SwitchID,
				NodeName:      node,
				NetworkID:     n.ID,
				NetworkName:   n.Name,
				NetworkType:   n.Type,
				Pod:           pod,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

// PodBindings returns the interfaces currently bound to pod, ordered by id.
func (s *MySQL) PodBindings(ctx context.Context, pod string) ([]Binding, error) {
	var out []Binding
	if err := s.db.SelectContext(ctx, &out, bindingQuery+` WHERE i.pod = ? ORDER BY i.id`, pod); err != nil {
		return nil, fmt.Errorf("list pod bindings: %w", err)
	}
	return out, nil
}

// ReleasePod frees every interface bound to pod and returns exactly the
// bindings it held.
func (s *MySQL) ReleasePod(ctx context.Context, pod string) (released []Binding, err error) {
	err = s.withTx(ctx, func(tx *sqlx.Tx) error {
		if err := tx.SelectContext(ctx, &released, bindingQuery+` WHERE i.pod = ? ORDER BY i.id FOR UPDATE`, pod); err != nil {
			return fmt.Errorf("lock pod bindings: %w", err)
		}
		if len(released) == 0 {
			return nil
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE interfaces SET network_id = NULL, pod = NULL WHERE pod = ?`, pod); err != nil {
			return fmt.Errorf("release interfaces: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return released, nil
}

// ListSwitches returns all registered switches ordered by node name.
func (s *MySQL) ListSwitches(ctx context.Context) ([]Switch, error) {
	var out []Switch
	if err := s.db.SelectContext(ctx, &out,
		`SELECT id, node_name, openflow_id, ip FROM switches ORDER BY node_name`); err != nil {
		return nil, fmt.Errorf("list switches: %w", err)
	}
	return out, nil
}

// ListNetworks returns all registered networks ordered by name.
func (s *MySQL) ListNetworks(ctx context.Context) ([]Network, error) {
	var out []Network
	if err := s.db.SelectContext(ctx, &out, `SELECT id, name, type FROM networks ORDER BY name, type`); err != nil {
		return nil, fmt.Errorf("list networks: %w", err)
	}
	return out, nil
}

// ListInterfaces returns the interfaces of node, or of every node when node is empty.
func (s *MySQL) ListInterfaces(ctx context.Context, node string) ([]InterfaceRow, error) {
	query := `SELECT i.id, i.name, s.node_name, n.name AS network_name, i.pod
		FROM interfaces i
		JOIN switches s ON s.id = i.switch_id
		LEFT JOIN networks n ON n.id = i.network_id`
	var args []any
	if node != "" {
		query += ` WHERE s.node_name = ?`
		args = append(args, node)
	}
	query += ` ORDER BY s.node_name, i.id`

	var out []InterfaceRow
	if err := s.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, fmt.Errorf("list interfaces: %w", err)
	}
	return out, nil
}

// CountFreeInterfaces returns the number of unbound interfaces on node.
func (s *MySQL) CountFreeInterfaces(ctx context.Context, node string) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n,
		`SELECT COUNT(*) FROM interfaces i JOIN switches s ON s.id = i.switch_id
		WHERE s.node_name = ? AND i.network_id IS NULL AND i.pod IS NULL`, node); err != nil {
		return 0, fmt.Errorf("count free interfaces: %w", err)
	}
	return n, nil
}

// IsAccessDenied reports whether err is a MySQL authentication or
// authorization failure. Retrying such errors cannot succeed.
func IsAccessDenied(err error) bool {
	var me *mysql.MySQLError
	if !errors.As(err, &me) {
		return false
	}
	return me.Number == 1044 || me.Number == 1045
}
