package store

import (
	"database/sql"
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"

	"github.com/duskresolve/duskresolve/internal/dnswire"
)

// ManualRecord is an administrator-entered DNS record. Preference is only
// meaningful (non-nil) for MX records.
type ManualRecord struct {
	ID         string
	Name       string
	Type       string
	TTL        uint32
	RData      string
	Preference *uint16
	CreatedAt  time.Time
}

// Insert validates and stores rec, assigning it a fresh ID. Returns the
// stored record (with ID and normalized fields populated).
func (s *Store) Insert(rec ManualRecord) (ManualRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec.Name = dnswire.NormalizeName(rec.Name)
	if err := validate(&rec); err != nil {
		return ManualRecord{}, err
	}
	rec.ID = uuid.NewString()

	var pref sql.NullInt64
	if rec.Preference != nil {
		pref = sql.NullInt64{Int64: int64(*rec.Preference), Valid: true}
	}

	_, err := s.conn.Exec(
		`INSERT INTO manual_records (id, name, type, ttl, rdata, preference) VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Name, rec.Type, rec.TTL, rec.RData, pref,
	)
	if err != nil {
		return ManualRecord{}, fmt.Errorf("store: insert %s %s: %w", rec.Name, rec.Type, err)
	}
	return rec, nil
}

// ListAll returns every manual record, ordered by name then type.
func (s *Store) ListAll() ([]ManualRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.conn.Query(`SELECT id, name, type, ttl, rdata, preference, created_at FROM manual_records ORDER BY name, type`)
	if err != nil {
		return nil, fmt.Errorf("store: list all: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

// ListByName returns every manual record for name, across all types
// (used to answer ANY queries).
func (s *Store) ListByName(name string) ([]ManualRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	name = dnswire.NormalizeName(name)
	rows, err := s.conn.Query(
		`SELECT id, name, type, ttl, rdata, preference, created_at FROM manual_records WHERE name = ? ORDER BY type`,
		name,
	)
	if err != nil {
		return nil, fmt.Errorf("store: list by name: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

// ListByNameAndType returns manual records matching name and rrType exactly.
func (s *Store) ListByNameAndType(name, rrType string) ([]ManualRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	name = dnswire.NormalizeName(name)
	rows, err := s.conn.Query(
		`SELECT id, name, type, ttl, rdata, preference, created_at FROM manual_records WHERE name = ? AND type = ?`,
		name, rrType,
	)
	if err != nil {
		return nil, fmt.Errorf("store: list by name and type: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

// Update replaces the mutable fields (ttl, rdata, preference) of the
// record identified by id.
func (s *Store) Update(id string, ttl uint32, rdata string, preference *uint16) (ManualRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var pref sql.NullInt64
	if preference != nil {
		pref = sql.NullInt64{Int64: int64(*preference), Valid: true}
	}

	res, err := s.conn.Exec(
		`UPDATE manual_records SET ttl = ?, rdata = ?, preference = ? WHERE id = ?`,
		ttl, rdata, pref, id,
	)
	if err != nil {
		return ManualRecord{}, fmt.Errorf("store: update %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return ManualRecord{}, fmt.Errorf("store: update %s: %w", id, err)
	}
	if n == 0 {
		return ManualRecord{}, ErrNotFound
	}
	return s.getByID(id)
}

// DeleteByName removes every manual record for name, regardless of type.
// Returns ErrNotFound if no rows matched.
func (s *Store) DeleteByName(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name = dnswire.NormalizeName(name)
	res, err := s.conn.Exec(`DELETE FROM manual_records WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("store: delete by name %s: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: delete by name %s: %w", name, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteByID removes a single manual record by its ID.
func (s *Store) DeleteByID(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.conn.Exec(`DELETE FROM manual_records WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete by id %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: delete by id %s: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) getByID(id string) (ManualRecord, error) {
	row := s.conn.QueryRow(`SELECT id, name, type, ttl, rdata, preference, created_at FROM manual_records WHERE id = ?`, id)
	var rec ManualRecord
	var pref sql.NullInt64
	if err := row.Scan(&rec.ID, &rec.Name, &rec.Type, &rec.TTL, &rec.RData, &pref, &rec.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return ManualRecord{}, ErrNotFound
		}
		return ManualRecord{}, fmt.Errorf("store: get by id %s: %w", id, err)
	}
	if pref.Valid {
		v := uint16(pref.Int64)
		rec.Preference = &v
	}
	return rec, nil
}

func scanRecords(rows *sql.Rows) ([]ManualRecord, error) {
	var out []ManualRecord
	for rows.Next() {
		var rec ManualRecord
		var pref sql.NullInt64
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.Type, &rec.TTL, &rec.RData, &pref, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: scan record: %w", err)
		}
		if pref.Valid {
			v := uint16(pref.Int64)
			rec.Preference = &v
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate records: %w", err)
	}
	return out, nil
}

// validate normalizes and checks rec against the type-specific rdata
// rules spec.md §4.2 requires, returning ErrInvalidRecord on failure.
func validate(rec *ManualRecord) error {
	if rec.Name == "" {
		return fmt.Errorf("%w: name must be non-empty", ErrInvalidRecord)
	}
	rec.Type = normalizeType(rec.Type)
	if _, ok := dnswire.TypeFromName(rec.Type); !ok || rec.Type == "ANY" {
		return fmt.Errorf("%w: unsupported record type %q", ErrInvalidRecord, rec.Type)
	}

	switch rec.Type {
	case "A":
		ip := net.ParseIP(rec.RData)
		if ip == nil || ip.To4() == nil {
			return fmt.Errorf("%w: A record rdata must be an IPv4 address", ErrInvalidRecord)
		}
	case "AAAA":
		ip := net.ParseIP(rec.RData)
		if ip == nil || ip.To4() != nil {
			return fmt.Errorf("%w: AAAA record rdata must be an IPv6 address", ErrInvalidRecord)
		}
	case "MX":
		if rec.Preference == nil {
			return fmt.Errorf("%w: MX record requires a preference", ErrInvalidRecord)
		}
		if rec.RData == "" {
			return fmt.Errorf("%w: MX record requires an exchange host", ErrInvalidRecord)
		}
	case "CNAME", "NS", "PTR":
		if rec.RData == "" {
			return fmt.Errorf("%w: %s record requires a target name", ErrInvalidRecord, rec.Type)
		}
	case "TXT":
		if len(rec.RData) > 255 {
			return fmt.Errorf("%w: TXT record rdata exceeds 255 bytes", ErrInvalidRecord)
		}
	}

	if rec.TTL == 0 {
		rec.TTL = 300
	}
	return nil
}

func normalizeType(t string) string {
	out := make([]byte, len(t))
	for i := 0; i < len(t); i++ {
		c := t[i]
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		out[i] = c
	}
	return string(out)
}
