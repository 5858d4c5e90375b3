package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func notificationsCmd() *cobra.Command {
	var userID int64
	cmd := &cobra.Command{
		Use:     "notifications",
		Aliases: []string{"notif"},
		Short:   "通知收件箱",
	}
	cmd.PersistentFlags().Int64Var(&userID, "user", 0, "用户 ID")
	_ = cmd.MarkPersistentFlagRequired("user")

	var (
		unread bool
		limit  int
	)
	list := &cobra.Command{
		Use:   "list",
		Short: "列出通知（新到旧）",
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := core.Services.Notifications.List(cmd.Context(), userID, unread, limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(items) == 0 {
				fmt.Fprintln(out, "📭 没有通知")
				return nil
			}
			unreadCount, err := core.Services.Notifications.UnreadCount(cmd.Context(), userID)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "🔔 未读 %d 条\n", unreadCount)
			for _, n := range items {
				mark := "🔵"
				if n.Read {
					mark = "  "
				}
				at := time.UnixMilli(n.CreatedAt).In(core.Loc).Format("01-02 15:04")
				fmt.Fprintf(out, "%s #%-4d %s  %s\n", mark, n.ID, at, n.Message)
			}
			return nil
		},
	}
	list.Flags().BoolVar(&unread, "unread", false, "只看未读")
	list.Flags().IntVar(&limit, "limit", 20, "最多条数")

	read := &cobra.Command{
		Use:   "read <id>",
		Short: "标记一条通知为已读",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := core.RequireWritable(); err != nil {
				return err
			}
			id, err := parseID(args[0], "通知")
			if err != nil {
				return err
			}
			ok, err := core.Services.Notifications.MarkRead(cmd.Context(), userID, id)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("通知 #%d 不存在", id)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✅ 通知 #%d 已读\n", id)
			return nil
		},
	}

	readAll := &cobra.Command{
		Use:   "read-all",
		Short: "全部标记为已读",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := core.RequireWritable(); err != nil {
				return err
			}
			n, err := core.Services.Notifications.MarkAllRead(cmd.Context(), userID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✅ %d 条通知已读\n", n)
			return nil
		},
	}

	cmd.AddCommand(list, read, readAll)
	return cmd
}
