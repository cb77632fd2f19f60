package database

import (
	"context"
	"database/sql"
	"fmt"
)

// ClientRecord is a client row together with the phones it owns.
type ClientRecord struct {
	ID        int64         `json:"id"`
	FirstName string        `json:"first_name"`
	LastName  string        `json:"last_name"`
	Email     string        `json:"email"`
	Phones    []PhoneRecord `json:"phones"`
}

// NewClient holds the values for AddClient. Blank names are stored as NULL;
// a blank Email violates the NOT NULL constraint.
type NewClient struct {
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	Email     string  `json:"email"`
	Phone     *string `json:"phone,omitempty"`
}

// ClientUpdate lists the fields ChangeClient should touch. Nil fields are
// left alone.
type ClientUpdate struct {
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
	Email     *string `json:"email,omitempty"`
	Phone     *string `json:"phone,omitempty"`
}

// Empty reports whether the update names no field at all.
func (u ClientUpdate) Empty() bool {
	return u.FirstName == nil && u.LastName == nil && u.Email == nil && u.Phone == nil
}

// FieldChange is a single column rewritten by ChangeClient.
type FieldChange struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

// ChangeResult summarises what ChangeClient did.
type ChangeResult struct {
	ClientID   int64         `json:"client_id"`
	Changed    []FieldChange `json:"changed"`
	Phone      string        `json:"phone,omitempty"`
	PhoneAdded bool          `json:"phone_added"`
}

// DeleteResult summarises what DeleteClient removed.
type DeleteResult struct {
	ClientID      int64 `json:"client_id"`
	PhonesDeleted int64 `json:"phones_deleted"`
	ClientDeleted bool  `json:"client_deleted"`
}

// AddClient inserts a client and, when c.Phone is set, its first phone. Both
// rows are written in one transaction. It returns the new client id.
func (db *db) AddClient(ctx context.Context, c NewClient) (int64, error) {
	var id int64
	err := db.Transaction(ctx, func(tx *sql.Tx) error {
		err := db.queryRowOn(ctx, tx, `
			INSERT INTO clients (first_name, last_name, email)
			VALUES (?, ?, ?)
			RETURNING id
		`, nullIfEmpty(c.FirstName), nullIfEmpty(c.LastName), nullIfEmpty(c.Email)).Scan(&id)
		if err != nil {
			return fmt.Errorf("failed to add client: %w", err)
		}

		if c.Phone != nil {
			if err := db.insertPhone(ctx, tx, id, *c.Phone); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// ChangeClient updates each non-nil name or email field with its own
// statement and adds u.Phone through the same duplicate check as AddPhone.
// Existing phones are never removed. Fields of a missing client are reported
// as unchanged; adding a phone to a missing client fails on the foreign key.
func (db *db) ChangeClient(ctx context.Context, clientID int64, u ClientUpdate) (*ChangeResult, error) {
	result := &ChangeResult{ClientID: clientID}

	fields := []struct {
		column string
		value  *string
	}{
		{"first_name", u.FirstName},
		{"last_name", u.LastName},
		{"email", u.Email},
	}

	err := db.Transaction(ctx, func(tx *sql.Tx) error {
		for _, f := range fields {
			if f.value == nil {
				continue
			}
			// column comes from the fixed list above
			res, err := db.execOn(ctx, tx, "UPDATE clients SET "+f.column+" = ? WHERE id = ?", nullString(f.value), clientID)
			if err != nil {
				return fmt.Errorf("failed to update %s: %w", f.column, err)
			}
			if n, _ := res.RowsAffected(); n > 0 {
				result.Changed = append(result.Changed, FieldChange{Field: f.column, Value: *f.value})
			}
		}

		if u.Phone != nil {
			result.Phone = *u.Phone
			added, err := db.addPhoneOn(ctx, tx, clientID, *u.Phone)
			if err != nil {
				return err
			}
			result.PhoneAdded = added
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// DeleteClient removes every phone of the client and then the client row,
// as one committed unit.
func (db *db) DeleteClient(ctx context.Context, clientID int64) (*DeleteResult, error) {
	result := &DeleteResult{ClientID: clientID}

	err := db.Transaction(ctx, func(tx *sql.Tx) error {
		res, err := db.execOn(ctx, tx, "DELETE FROM phones WHERE client_id = ?", clientID)
		if err != nil {
			return fmt.Errorf("failed to delete client phones: %w", err)
		}
		result.PhonesDeleted, _ = res.RowsAffected()

		res, err = db.execOn(ctx, tx, "DELETE FROM clients WHERE id = ?", clientID)
		if err != nil {
			return fmt.Errorf("failed to delete client: %w", err)
		}
		n, _ := res.RowsAffected()
		result.ClientDeleted = n > 0
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GetClient returns the client with its phones, or nil when no such client
// exists.
func (db *db) GetClient(ctx context.Context, clientID int64) (*ClientRecord, error) {
	var (
		c           ClientRecord
		first, last sql.NullString
	)
	err := db.queryRow(ctx, `
		SELECT id, first_name, last_name, email
		FROM clients WHERE id = ?
	`, clientID).Scan(&c.ID, &first, &last, &c.Email)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get client: %w", err)
	}
	c.FirstName = nullStringValue(first)
	c.LastName = nullStringValue(last)

	phones, err := db.ListPhones(ctx, clientID)
	if err != nil {
		return nil, err
	}
	c.Phones = phones
	return &c, nil
}

// ListClients returns every client with its phones, ordered by id.
func (db *db) ListClients(ctx context.Context) ([]*ClientRecord, error) {
	rows, err := db.query(ctx, `
		SELECT id, first_name, last_name, email
		FROM clients
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}

	var clients []*ClientRecord
	byID := make(map[int64]*ClientRecord)
	for rows.Next() {
		c := &ClientRecord{Phones: []PhoneRecord{}}
		var first, last sql.NullString
		if err := rows.Scan(&c.ID, &first, &last, &c.Email); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan client: %w", err)
		}
		c.FirstName = nullStringValue(first)
		c.LastName = nullStringValue(last)
		clients = append(clients, c)
		byID[c.ID] = c
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	// Release the single connection before the next query.
	rows.Close()

	phoneRows, err := db.query(ctx, `
		SELECT id, phone, client_id
		FROM phones
		ORDER BY client_id, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list phones: %w", err)
	}
	defer phoneRows.Close()

	for phoneRows.Next() {
		var p PhoneRecord
		if err := phoneRows.Scan(&p.ID, &p.Phone, &p.ClientID); err != nil {
			return nil, fmt.Errorf("failed to scan phone: %w", err)
		}
		if c, ok := byID[p.ClientID]; ok {
			c.Phones = append(c.Phones, p)
		}
	}

	return clients, phoneRows.Err()
}

// CountClients returns the number of client rows.
func (db *db) CountClients(ctx context.Context) (int, error) {
	var count int
	if err := db.queryRow(ctx, "SELECT COUNT(*) FROM clients").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count clients: %w", err)
	}
	return count, nil
}
