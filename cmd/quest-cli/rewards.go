package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

func userArg(args []string) (int64, error) {
	return parseID(args[0], "用户")
}

func progressCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "progress <user>",
		Short: "查看等级、经验与连续天数",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := userArg(args)
			if err != nil {
				return err
			}
			p, err := core.Services.Users.Progress(cmd.Context(), id, core.Now())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "👤 %s  Lv.%d\n", p.User.Name, p.User.Level)
			fmt.Fprintf(out, "⭐ %d XP  [%s] %.0f%%  距下一级 %d XP\n", p.User.XP, progressBar(p.LevelPercent, 20), p.LevelPercent, p.XPToNext)
			fmt.Fprintf(out, "🔥 完成连续 %d 天  ✏️  创建连续 %d 天\n", p.CompletionStreak, p.CreationStreak)
			fmt.Fprintf(out, "🏁 已完成挑战 %d  🏆 已解锁成就 %d  🔔 未读通知 %d\n", p.ChallengesWon, p.AchievementsCount, p.UnreadCount)
			return nil
		},
	}
}

func streakCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "streak <user>",
		Short: "本周打卡周历",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := userArg(args)
			if err != nil {
				return err
			}
			week, err := core.Services.Streaks.WeekCalendar(cmd.Context(), core.Store, id, core.Now())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			var labels, marks []string
			for _, d := range week.Days {
				labels = append(labels, fmt.Sprintf("%-4s", d.Label))
				marks = append(marks, fmt.Sprintf("%-3s", dayMark(d.State)))
			}
			fmt.Fprintln(out, strings.Join(labels, " "))
			fmt.Fprintln(out, strings.Join(marks, "  "))
			fmt.Fprintf(out, "本周活跃 %d 天，连续 %d 天\n", week.ActiveDays, week.Streak)
			return nil
		},
	}
}

func challengesCmd() *cobra.Command {
	var history bool
	cmd := &cobra.Command{
		Use:   "challenges <user>",
		Short: "当前挑战进度",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := userArg(args)
			if err != nil {
				return err
			}
			if history {
				return printChallengeHistory(cmd, id)
			}
			list, err := core.Services.Challenges.Progress(cmd.Context(), id, core.Now())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(list) == 0 {
				fmt.Fprintln(out, "📭 暂无进行中的挑战")
				return nil
			}
			for _, c := range list {
				mark := "⬜"
				if c.Completed {
					mark = "✅"
				}
				fmt.Fprintf(out, "%s %-28s %-8s %d/%d  +%d XP\n", mark, c.Challenge.Name, c.Challenge.Cycle, c.Progress, c.Target, c.Challenge.XPReward)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&history, "history", false, "显示历史授予记录")
	return cmd
}

func printChallengeHistory(cmd *cobra.Command, userID int64) error {
	items, err := core.Services.Challenges.History(cmd.Context(), userID, core.Now(), 50)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(items) == 0 {
		fmt.Fprintln(out, "📭 还没有完成过挑战")
		return nil
	}
	for _, it := range items {
		at := time.UnixMilli(it.AwardedAt).In(core.Loc).Format("2006-01-02 15:04")
		mark := "🏁"
		if it.Current {
			mark = "⭐"
		}
		fmt.Fprintf(out, "%s %s  %-28s 周期 %s  +%d XP\n", mark, at, it.Name, it.CycleKey, it.XPReward)
	}
	return nil
}

func achievementsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "achievements <user>",
		Short: "成就列表与解锁状态",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := userArg(args)
			if err != nil {
				return err
			}
			list, err := core.Services.Achievements.List(cmd.Context(), id, core.Now())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, a := range list {
				if a.Unlocked {
					at := time.UnixMilli(a.AwardedAt).In(core.Loc).Format("2006-01-02")
					fmt.Fprintf(out, "🏆 %-28s 解锁于 %s\n", a.Achievement.Name, at)
					continue
				}
				fmt.Fprintf(out, "🔒 %-28s %d/%d\n", a.Achievement.Name, a.Progress, a.Target)
			}
			return nil
		},
	}
}

func dayMark(state string) string {
	switch state {
	case "active":
		return "🔥"
	case "frozen":
		return "🧊"
	default:
		return "·"
	}
}

func progressBar(pct float64, width int) string {
	filled := int(pct / 100 * float64(width))
	if filled < 0 {
		filled = 0
	}
	if filled > width {
		filled = width
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}
