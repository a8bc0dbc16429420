package main

import (
	"fmt"

	"github.com/spf13/cobra"

	garden "github.com/goliatone/go-garden"
)

var (
	userEmail    string
	userName     string
	userPassword string
	userRole     string
	userPhone    string
)

// userCmd is the parent command for account management
var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage user accounts",
}

var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a user account",
	RunE: func(cmd *cobra.Command, args []string) error {
		role, ok := garden.ParseRole(userRole)
		if !ok {
			return fmt.Errorf("invalid role %q, expected one of %v", userRole, garden.GetAllRoles())
		}

		opts, logger, err := loadConfig()
		if err != nil {
			return err
		}

		repo, closeDB, err := openRepo(opts)
		if err != nil {
			return err
		}
		defer closeDB()

		if err := repo.Migrate(cmd.Context()); err != nil {
			return err
		}

		user, err := garden.NewRegistrar(repo, opts.Auth.PhoneRegion).RegisterUser(cmd.Context(), garden.RegisterUserMessage{
			Username:  userName,
			Email:     userEmail,
			Phone:     userPhone,
			Password:  userPassword,
			Role:      role,
			UseHashid: opts.Auth.HashidUserIDs,
		})
		if err != nil {
			return err
		}

		logger.Info("user created", "id", user.ID.String(), "username", user.Username, "role", user.Role)
		return nil
	},
}

func init() {
	userCreateCmd.Flags().StringVar(&userEmail, "email", "", "account email")
	userCreateCmd.Flags().StringVar(&userName, "username", "", "account username, defaults to the email local part")
	userCreateCmd.Flags().StringVar(&userPassword, "password", "", "account password")
	userCreateCmd.Flags().StringVar(&userRole, "role", garden.RoleMember, "account role")
	userCreateCmd.Flags().StringVar(&userPhone, "phone", "", "phone number")
	_ = userCreateCmd.MarkFlagRequired("email")
	_ = userCreateCmd.MarkFlagRequired("password")
}
