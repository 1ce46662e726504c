package main

import (
	"fmt"
	"time"

	"lms_backend/internal/model"
	"lms_backend/internal/util"

	"github.com/spf13/cobra"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a development JWT signed with jwt.secret",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv(cmd)
		if err != nil {
			return err
		}
		userID, _ := cmd.Flags().GetUint("user")
		role, _ := cmd.Flags().GetString("role")
		ttl, _ := cmd.Flags().GetDuration("ttl")
		if userID == 0 {
			return fmt.Errorf("--user is required")
		}

		token, err := util.GenerateJWT(userID, model.UserRole(role), e.cfg.JWT.Secret, ttl)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().Uint("user", 0, "User ID")
	tokenCmd.Flags().String("role", string(model.Student), "student, teacher or admin")
	tokenCmd.Flags().Duration("ttl", 24*time.Hour, "Token lifetime")
}
