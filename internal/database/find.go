package database

import (
	"context"
	"fmt"
	"strings"
)

// FindMode selects how many matches FindClient returns.
type FindMode string

const (
	// FindFirst returns the lowest matching client id only.
	FindFirst FindMode = "first"
	// FindAll returns every matching client id.
	FindAll FindMode = "all"
)

// ParseFindMode accepts "first" (or "") and "all".
func ParseFindMode(s string) (FindMode, error) {
	switch FindMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", FindFirst:
		return FindFirst, nil
	case FindAll:
		return FindAll, nil
	default:
		return "", fmt.Errorf("invalid find mode %q (want first or all)", s)
	}
}

// ClientQuery holds the search values for FindClient. Nil or blank fields
// are not searched.
type ClientQuery struct {
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
	Email     *string `json:"email,omitempty"`
	Phone     *string `json:"phone,omitempty"`
}

// FindClient returns the ids of matching clients in ascending order.
//
// A phone value takes precedence: clients owning that exact number match and
// the other fields are ignored. Otherwise a client matches when any supplied
// name or email field equals its column. With FindFirst at most one id is
// returned. No match, or no search value at all, gives an empty slice.
func (db *db) FindClient(ctx context.Context, q ClientQuery, mode FindMode) ([]int64, error) {
	var (
		stmt string
		args []any
	)

	if phone := nullString(q.Phone); phone.Valid {
		stmt = `
			SELECT DISTINCT clients.id FROM clients
			JOIN phones ON phones.client_id = clients.id
			WHERE phones.phone = ?
			ORDER BY clients.id`
		args = append(args, phone.String)
	} else {
		var conds []string
		for _, f := range []struct {
			column string
			value  *string
		}{
			{"first_name", q.FirstName},
			{"last_name", q.LastName},
			{"email", q.Email},
		} {
			if v := nullString(f.value); v.Valid {
				conds = append(conds, f.column+" = ?")
				args = append(args, v.String)
			}
		}
		if len(conds) == 0 {
			return []int64{}, nil
		}
		stmt = "SELECT id FROM clients WHERE " + strings.Join(conds, " OR ") + " ORDER BY id"
	}

	if mode == FindFirst {
		stmt += " LIMIT 1"
	}

	rows, err := db.query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to find client: %w", err)
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan client id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
