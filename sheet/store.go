package sheet

import (
	"fmt"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	yaml "gopkg.in/yaml.v3"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"nestcss/css"
)

const schema = `
CREATE TABLE IF NOT EXISTS rules (
	seq      INTEGER PRIMARY KEY AUTOINCREMENT,
	selector TEXT NOT NULL,
	body     TEXT NOT NULL
);`

// Store is a Sheet persisted in SQLite database, so rules from several runs
// may be collected into one stylesheet. Declarations of a rule are kept as
// YAML list in a single column.
type Store struct {
	mu   sync.Mutex
	conn *sqlite.Conn
	log  *zap.Logger
}

// OpenStore opens (creating if necessary) SQLite database at path.
func OpenStore(path string, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}

	conn, err := sqlite.OpenConn(path, sqlite.OpenReadWrite, sqlite.OpenCreate)
	if err != nil {
		return nil, fmt.Errorf("unable to open sheet store '%s': %w", path, err)
	}
	if err := sqlitex.ExecuteScript(conn, schema, nil); err != nil {
		return nil, multierr.Append(fmt.Errorf("unable to prepare sheet store '%s': %w", path, err), conn.Close())
	}

	log = log.Named("sheet-store")
	log.Debug("Sheet store opened", zap.String("path", path))
	return &Store{conn: conn, log: log}, nil
}

func (s *Store) Add(rules ...css.Rule) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	defer sqlitex.Save(s.conn)(&err)

	for _, r := range rules {
		body, err := yaml.Marshal(r.Body)
		if err != nil {
			return fmt.Errorf("unable to encode body of '%s': %w", r.Selector, err)
		}
		err = sqlitex.ExecuteTransient(s.conn, `INSERT INTO rules (selector, body) VALUES (?, ?)`,
			&sqlitex.ExecOptions{Args: []any{r.Selector, string(body)}})
		if err != nil {
			return fmt.Errorf("unable to store rule '%s': %w", r.Selector, err)
		}
	}
	s.log.Debug("Rules stored", zap.Int("count", len(rules)))
	return nil
}

func (s *Store) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := sqlitex.ExecuteTransient(s.conn, `DELETE FROM rules`, nil); err != nil {
		return fmt.Errorf("unable to flush sheet store: %w", err)
	}
	return nil
}

// Rules loads all stored rules in insertion order.
func (s *Store) Rules() (css.Rules, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rules css.Rules
	err := sqlitex.ExecuteTransient(s.conn, `SELECT selector, body FROM rules ORDER BY seq`,
		&sqlitex.ExecOptions{ResultFunc: func(stmt *sqlite.Stmt) error {
			r := css.Rule{Selector: stmt.ColumnText(0)}
			if err := yaml.Unmarshal([]byte(stmt.ColumnText(1)), &r.Body); err != nil {
				return fmt.Errorf("unable to decode body of '%s': %w", r.Selector, err)
			}
			rules = append(rules, r)
			return nil
		}})
	if err != nil {
		return nil, fmt.Errorf("unable to load rules: %w", err)
	}
	return rules, nil
}

func (s *Store) Serialise() (string, error) {
	rules, err := s.Rules()
	if err != nil {
		return "", err
	}
	return rules.String(), nil
}

// Close releases database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.conn.Close()
}
