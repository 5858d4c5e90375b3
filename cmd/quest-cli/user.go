package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "用户管理",
	}
	cmd.AddCommand(userCreateCmd(), userShowCmd(), userListCmd())
	return cmd
}

func userCreateCmd() *cobra.Command {
	var name, email string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "创建用户",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := core.RequireWritable(); err != nil {
				return err
			}
			u, err := core.Services.Users.Create(cmd.Context(), name, email)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✅ 用户 #%d %s <%s>\n", u.ID, u.Name, u.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "用户名")
	cmd.Flags().StringVar(&email, "email", "", "邮箱")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func userShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "查看用户",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "用户")
			if err != nil {
				return err
			}
			u, err := core.Services.Users.Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "👤 #%d %s <%s>  Lv.%d  %d XP\n", u.ID, u.Name, u.Email, u.Level, u.XP)
			return nil
		},
	}
}

func userListCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "列出用户",
		RunE: func(cmd *cobra.Command, args []string) error {
			users, err := core.Services.Users.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, u := range users {
				fmt.Fprintf(out, "  #%-4d Lv.%-3d %5d XP  %s <%s>\n", u.ID, u.Level, u.XP, u.Name, u.Email)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 100, "最多条数")
	return cmd
}
