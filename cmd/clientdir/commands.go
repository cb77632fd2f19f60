package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/saltyorg/clientdir/internal/database"
	"github.com/saltyorg/clientdir/internal/directory"
)

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Drop and recreate the clients and phones tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, false, func(ctx context.Context, svc *directory.Service) error {
				return svc.InitSchema(ctx)
			})
		},
	}
}

func newAddClientCmd() *cobra.Command {
	var first, last, email, phone string

	cmd := &cobra.Command{
		Use:   "add-client",
		Short: "Add a client, optionally with a first phone",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := database.NewClient{FirstName: first, LastName: last, Email: email}
			c.Phone = flagValue(cmd, "phone", phone)

			return withService(cmd, true, func(ctx context.Context, svc *directory.Service) error {
				_, err := svc.AddClient(ctx, c)
				return err
			})
		},
	}

	cmd.Flags().StringVar(&first, "first", "", "First name")
	cmd.Flags().StringVar(&last, "last", "", "Last name")
	cmd.Flags().StringVar(&email, "email", "", "Email address (required)")
	cmd.Flags().StringVar(&phone, "phone", "", "Phone number")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newAddPhoneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add-phone <client-id> <phone>",
		Short: "Add a phone number to a client",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseClientID(args[0])
			if err != nil {
				return err
			}
			return withService(cmd, true, func(ctx context.Context, svc *directory.Service) error {
				_, err := svc.AddPhone(ctx, id, args[1])
				return err
			})
		},
	}
}

func newChangeClientCmd() *cobra.Command {
	var first, last, email, phone string

	cmd := &cobra.Command{
		Use:   "change-client <client-id>",
		Short: "Change a client's name or email, or add a phone",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseClientID(args[0])
			if err != nil {
				return err
			}

			u := database.ClientUpdate{
				FirstName: flagValue(cmd, "first", first),
				LastName:  flagValue(cmd, "last", last),
				Email:     flagValue(cmd, "email", email),
				Phone:     flagValue(cmd, "phone", phone),
			}
			if u.Empty() {
				return fmt.Errorf("nothing to change: set at least one of --first, --last, --email, --phone")
			}

			return withService(cmd, true, func(ctx context.Context, svc *directory.Service) error {
				_, err := svc.ChangeClient(ctx, id, u)
				return err
			})
		},
	}

	cmd.Flags().StringVar(&first, "first", "", "New first name")
	cmd.Flags().StringVar(&last, "last", "", "New last name")
	cmd.Flags().StringVar(&email, "email", "", "New email address")
	cmd.Flags().StringVar(&phone, "phone", "", "Phone number to add")
	return cmd
}

func newDeletePhoneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete-phone <client-id> <phone>",
		Short: "Remove a phone number from a client",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseClientID(args[0])
			if err != nil {
				return err
			}
			return withService(cmd, true, func(ctx context.Context, svc *directory.Service) error {
				_, err := svc.DeletePhone(ctx, id, args[1])
				return err
			})
		},
	}
}

func newDeleteClientCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete-client <client-id>",
		Short: "Delete a client and all of its phones",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseClientID(args[0])
			if err != nil {
				return err
			}
			return withService(cmd, true, func(ctx context.Context, svc *directory.Service) error {
				_, err := svc.DeleteClient(ctx, id)
				return err
			})
		},
	}
}

func newFindCmd() *cobra.Command {
	var first, last, email, phone, mode string

	cmd := &cobra.Command{
		Use:   "find",
		Short: "Find clients by name, email or phone",
		Long: `Find clients by name, email or phone.

A phone search ignores the other fields. Otherwise a client matches when any
given field equals its value. Results are ordered by client id.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q := database.ClientQuery{
				FirstName: flagValue(cmd, "first", first),
				LastName:  flagValue(cmd, "last", last),
				Email:     flagValue(cmd, "email", email),
				Phone:     flagValue(cmd, "phone", phone),
			}

			return withService(cmd, true, func(ctx context.Context, svc *directory.Service) error {
				m := svc.FindMode()
				if mode != "" {
					parsed, err := database.ParseFindMode(mode)
					if err != nil {
						return err
					}
					m = parsed
				}
				_, err := svc.FindWithMode(ctx, q, m)
				return err
			})
		},
	}

	cmd.Flags().StringVar(&first, "first", "", "First name")
	cmd.Flags().StringVar(&last, "last", "", "Last name")
	cmd.Flags().StringVar(&email, "email", "", "Email address")
	cmd.Flags().StringVar(&phone, "phone", "", "Phone number")
	cmd.Flags().StringVar(&mode, "mode", "", "Result mode for this search: first or all")
	return cmd
}

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <client-id>",
		Short: "Show a client and its phones",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseClientID(args[0])
			if err != nil {
				return err
			}
			return withService(cmd, true, func(ctx context.Context, svc *directory.Service) error {
				client, err := svc.GetClient(ctx, id)
				if err != nil {
					return err
				}
				if client == nil {
					fmt.Fprintf(cmd.OutOrStdout(), "No client %d\n", id)
					return nil
				}
				printClient(cmd.OutOrStdout(), client)
				return nil
			})
		},
	}
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every client with its phones",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, true, func(ctx context.Context, svc *directory.Service) error {
				clients, err := svc.ListClients(ctx)
				if err != nil {
					return err
				}
				if len(clients) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No clients")
					return nil
				}
				for _, c := range clients {
					printClient(cmd.OutOrStdout(), c)
				}
				return nil
			})
		},
	}
}

// flagValue returns a pointer to value when the flag was set on the command
// line, so an explicit empty value differs from an absent one.
func flagValue(cmd *cobra.Command, name, value string) *string {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	return &value
}

func parseClientID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid client id %q", s)
	}
	return id, nil
}

func printClient(w io.Writer, c *database.ClientRecord) {
	name := strings.TrimSpace(c.FirstName + " " + c.LastName)
	if name == "" {
		name = "-"
	}

	phones := make([]string, 0, len(c.Phones))
	for _, p := range c.Phones {
		phones = append(phones, p.Phone)
	}
	phoneList := "none"
	if len(phones) > 0 {
		phoneList = strings.Join(phones, ", ")
	}

	fmt.Fprintf(w, "%d\t%s\t%s\tphones: %s\n", c.ID, name, c.Email, phoneList)
}
