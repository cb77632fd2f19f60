// Package demo holds the scripted walkthrough run by the bare clientdir
// command.
package demo

import (
	"context"
	"fmt"

	"github.com/saltyorg/clientdir/internal/database"
	"github.com/saltyorg/clientdir/internal/directory"
)

func ptr(s string) *string { return &s }

// Run wipes the schema and replays the fixed sequence of directory
// operations. It stops at the first error.
func Run(ctx context.Context, svc *directory.Service) error {
	if err := svc.InitSchema(ctx); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}

	vanya, err := svc.AddClient(ctx, database.NewClient{FirstName: "Vanya", LastName: "Ivanov", Email: "god@ya.ru", Phone: ptr("5474578123")})
	if err != nil {
		return err
	}
	igor, err := svc.AddClient(ctx, database.NewClient{FirstName: "Igor", LastName: "Petrov", Email: "Igor@ya.ru"})
	if err != nil {
		return err
	}
	sasha, err := svc.AddClient(ctx, database.NewClient{FirstName: "Sasha", LastName: "Sidorov", Email: "Sasha@ya.ru", Phone: ptr("85312873")})
	if err != nil {
		return err
	}

	phones := []struct {
		clientID int64
		phone    string
	}{
		{sasha, "6347347347"},
		{vanya, "3476347343"},
		{igor, "6646347342"},
	}
	for _, p := range phones {
		if _, err := svc.AddPhone(ctx, p.clientID, p.phone); err != nil {
			return err
		}
	}

	changes := []struct {
		clientID int64
		update   database.ClientUpdate
	}{
		{vanya, database.ClientUpdate{FirstName: ptr("Petya"), Phone: ptr("83125717")}},
		{igor, database.ClientUpdate{LastName: ptr("Sobakin")}},
		{sasha, database.ClientUpdate{Email: ptr("idorov@ya.ru")}},
		{igor, database.ClientUpdate{Phone: ptr("87328515")}},
	}
	for _, c := range changes {
		if _, err := svc.ChangeClient(ctx, c.clientID, c.update); err != nil {
			return err
		}
	}

	for _, phone := range []string{"83125717", "82312352"} {
		if _, err := svc.DeletePhone(ctx, vanya, phone); err != nil {
			return err
		}
	}

	if _, err := svc.DeleteClient(ctx, sasha); err != nil {
		return err
	}

	queries := []database.ClientQuery{
		{FirstName: ptr("Igor")},
		{LastName: ptr("Ivanov")},
		{Email: ptr("god@ya.ru")},
		{Phone: ptr("5474578123")},
	}
	for _, q := range queries {
		if _, err := svc.Find(ctx, q); err != nil {
			return err
		}
	}

	return nil
}
