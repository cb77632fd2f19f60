package database

import (
	"context"
	"database/sql"
	"fmt"
)

// PhoneRecord is a phone number owned by one client.
type PhoneRecord struct {
	ID       int64  `json:"id"`
	Phone    string `json:"phone"`
	ClientID int64  `json:"client_id"`
}

// AddPhone stores phone for the client unless the client already has that
// exact number. It reports whether a row was inserted.
func (db *db) AddPhone(ctx context.Context, clientID int64, phone string) (bool, error) {
	var added bool
	err := db.Transaction(ctx, func(tx *sql.Tx) error {
		var err error
		added, err = db.addPhoneOn(ctx, tx, clientID, phone)
		return err
	})
	if err != nil {
		return false, err
	}
	return added, nil
}

// HasPhone reports whether the client already owns phone.
func (db *db) HasPhone(ctx context.Context, clientID int64, phone string) (bool, error) {
	return db.hasPhoneOn(ctx, db.conn, clientID, phone)
}

// DeletePhone removes the matching phone rows of the client and returns how
// many were removed. No match is not an error.
func (db *db) DeletePhone(ctx context.Context, clientID int64, phone string) (int64, error) {
	res, err := db.exec(ctx, "DELETE FROM phones WHERE client_id = ? AND phone = ?", clientID, phone)
	if err != nil {
		return 0, fmt.Errorf("failed to delete phone: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted phones: %w", err)
	}
	return n, nil
}

// ListPhones returns the phones of a client ordered by id.
func (db *db) ListPhones(ctx context.Context, clientID int64) ([]PhoneRecord, error) {
	rows, err := db.query(ctx, `
		SELECT id, phone, client_id
		FROM phones
		WHERE client_id = ?
		ORDER BY id
	`, clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list phones: %w", err)
	}
	defer rows.Close()

	phones := []PhoneRecord{}
	for rows.Next() {
		var p PhoneRecord
		if err := rows.Scan(&p.ID, &p.Phone, &p.ClientID); err != nil {
			return nil, fmt.Errorf("failed to scan phone: %w", err)
		}
		phones = append(phones, p)
	}
	return phones, rows.Err()
}

func (db *db) addPhoneOn(ctx context.Context, q querier, clientID int64, phone string) (bool, error) {
	exists, err := db.hasPhoneOn(ctx, q, clientID, phone)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}
	if err := db.insertPhone(ctx, q, clientID, phone); err != nil {
		return false, err
	}
	return true, nil
}

func (db *db) hasPhoneOn(ctx context.Context, q querier, clientID int64, phone string) (bool, error) {
	var count int
	err := db.queryRowOn(ctx, q, `
		SELECT COUNT(*) FROM phones WHERE client_id = ? AND phone = ?
	`, clientID, phone).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check phone: %w", err)
	}
	return count > 0, nil
}

func (db *db) insertPhone(ctx context.Context, q querier, clientID int64, phone string) error {
	_, err := db.execOn(ctx, q, `
		INSERT INTO phones (client_id, phone) VALUES (?, ?)
	`, clientID, nullIfEmpty(phone))
	if err != nil {
		return fmt.Errorf("failed to add phone: %w", err)
	}
	return nil
}
