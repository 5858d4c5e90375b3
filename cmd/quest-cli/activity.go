package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/yuqie6/HabitQuest/internal/schema"
	"github.com/yuqie6/HabitQuest/internal/service"
)

func activityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "activity",
		Aliases: []string{"act"},
		Short:   "活动管理",
	}
	cmd.AddCommand(activityCreateCmd(), activityListCmd(), activityCompleteCmd(), activityCancelCmd())
	return cmd
}

func activityCreateCmd() *cobra.Command {
	var (
		in        service.CreateActivityInput
		scheduled string
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "创建活动",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := core.RequireWritable(); err != nil {
				return err
			}
			if scheduled != "" {
				t, err := time.ParseInLocation("2006-01-02 15:04", scheduled, core.Loc)
				if err != nil {
					return fmt.Errorf("无效的计划时间 %q（格式 YYYY-MM-DD HH:MM）", scheduled)
				}
				in.ScheduledAt = t
			}
			a, outcome, err := core.Services.Activities.Create(cmd.Context(), in)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "✅ 活动 #%d %q（%s，%d 分钟，%d XP）\n", a.ID, a.Name, a.Difficulty, a.EstimatedMinutes, a.XPReward)
			printOutcome(cmd, outcome)
			return nil
		},
	}
	cmd.Flags().Int64Var(&in.UserID, "user", 0, "用户 ID")
	cmd.Flags().StringVar(&in.Name, "name", "", "活动名称")
	cmd.Flags().StringVar(&in.Description, "desc", "", "描述")
	cmd.Flags().StringVar(&in.Difficulty, "difficulty", schema.DifficultyMedium, "难度: muito_facil|facil|medio|dificil|muito_dificil")
	cmd.Flags().IntVar(&in.EstimatedMinutes, "minutes", 30, "预计时长（分钟）")
	cmd.Flags().StringVar(&in.Recurrence, "recurrence", schema.RecurrenceOnce, "重复方式: unica|recorrente")
	cmd.Flags().StringVar(&scheduled, "at", "", "计划时间 YYYY-MM-DD HH:MM（默认现在）")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func activityListCmd() *cobra.Command {
	var (
		userID int64
		status string
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "列出活动",
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := core.Services.Activities.List(cmd.Context(), userID, status, limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(list) == 0 {
				fmt.Fprintln(out, "📭 没有活动")
				return nil
			}
			for _, a := range list {
				fmt.Fprintf(out, "  #%-4d %-10s %-14s %-10s %3d min  %3d XP  %s\n",
					a.ID, a.Status, a.Difficulty, a.Recurrence, a.EstimatedMinutes, a.XPReward, a.Name)
			}
			return nil
		},
	}
	cmd.Flags().Int64Var(&userID, "user", 0, "用户 ID")
	cmd.Flags().StringVar(&status, "status", "", "状态过滤: ativa|realizada|cancelada")
	cmd.Flags().IntVar(&limit, "limit", 50, "最多条数")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func activityCompleteCmd() *cobra.Command {
	var (
		userID    int64
		requestID string
	)
	cmd := &cobra.Command{
		Use:   "complete <id>",
		Short: "完成活动并结算奖励",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := core.RequireWritable(); err != nil {
				return err
			}
			id, err := parseID(args[0], "活动")
			if err != nil {
				return err
			}
			res, err := core.Services.Activities.Realize(cmd.Context(), userID, id, requestID)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if res.Duplicate {
				fmt.Fprintf(out, "ℹ️  请求已处理过（完成记录 #%d）\n", res.Completion.ID)
				return nil
			}
			fmt.Fprintf(out, "✅ 完成记录 #%d\n", res.Completion.ID)
			if res.Outcome == nil {
				fmt.Fprintln(out, "⚠️  奖励结算失败，已记录待重试（quest retry）")
				return nil
			}
			printOutcome(cmd, res.Outcome)
			return nil
		},
	}
	cmd.Flags().Int64Var(&userID, "user", 0, "用户 ID")
	cmd.Flags().StringVar(&requestID, "request-id", "", "幂等键（默认自动生成）")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func activityCancelCmd() *cobra.Command {
	var userID int64
	cmd := &cobra.Command{
		Use:   "cancel <id>",
		Short: "取消活动",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := core.RequireWritable(); err != nil {
				return err
			}
			id, err := parseID(args[0], "活动")
			if err != nil {
				return err
			}
			if err := core.Services.Activities.Cancel(cmd.Context(), userID, id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "🗑️  活动 #%d 已取消\n", id)
			return nil
		},
	}
	cmd.Flags().Int64Var(&userID, "user", 0, "用户 ID")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

// printOutcome 打印一次结算的奖励明细
func printOutcome(cmd *cobra.Command, o *service.Outcome) {
	if o == nil || o.Skipped {
		return
	}
	out := cmd.OutOrStdout()
	if o.ActivityXP > 0 {
		fmt.Fprintf(out, "  ⭐ 活动经验 +%d\n", o.ActivityXP)
	}
	for _, a := range o.Awards {
		icon := "🏁"
		if a.Kind == service.AwardAchievement {
			icon = "🏆"
		}
		fmt.Fprintf(out, "  %s %s +%d XP\n", icon, a.Name, a.XP)
	}
	if o.LeveledUp() {
		fmt.Fprintf(out, "  🎉 升级 Lv.%d → Lv.%d\n", o.PrevLevel, o.Level)
	}
}
