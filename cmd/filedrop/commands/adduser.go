package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"filedrop/internal/server"
)

// adduserCmd provisions a user out of band. This is the only way accounts
// are created; the HTTP surface has no registration endpoint.
var adduserCmd = &cobra.Command{
	Use:   "adduser <sqlite-db-file> <username> <password>",
	Short: "Create a user account in the credential store",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		dbPath, username, password := args[0], args[1], args[2]
		if username == "" || password == "" {
			return fmt.Errorf("username and password must be non-empty")
		}

		cmd.Printf("creating %s with password %s @ %s\n",
			username, strings.Repeat("*", len(password)), dbPath)

		db, err := server.OpenDB(dbPath)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer func() { _ = db.Close() }()

		users, err := server.NewUsersStore(db, "users")
		if err != nil {
			return err
		}

		info, err := server.CreatePasswordHash(password)
		if err != nil {
			return err
		}

		n, err := users.AddUser(server.UserRecord{
			Username:         username,
			PasswordHashInfo: info,
		})
		if err != nil {
			return fmt.Errorf("add user: %w", err)
		}
		if n != 1 {
			return fmt.Errorf("expected to insert 1 user row, inserted %d", n)
		}

		cmd.Printf("created user %s\n", username)
		return nil
	},
}
