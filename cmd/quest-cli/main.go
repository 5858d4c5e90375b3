package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/yuqie6/HabitQuest/internal/bootstrap"
	"github.com/yuqie6/HabitQuest/internal/pkg/buildinfo"
)

// skipCore 标记不需要数据库的子命令
const skipCore = "skip-core"

var (
	cfgFile string
	core    *bootstrap.Core
)

func main() {
	err := newRootCmd().Execute()
	closeCore()
	if err != nil {
		os.Exit(1)
	}
}

// closeCore 命令出错时 cobra 不执行 PostRun，这里统一释放
func closeCore() {
	if core != nil {
		_ = core.Close()
		core = nil
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "quest",
		Short:        "HabitQuest - 习惯养成游戏化引擎",
		Long:         `HabitQuest 记录活动完成情况，按规则发放经验、挑战与成就奖励。`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Annotations[skipCore] == "true" {
				return nil
			}
			var err error
			core, err = bootstrap.NewCore(cfgFile)
			if err != nil {
				return fmt.Errorf("初始化失败: %w", err)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			closeCore()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "配置文件路径")

	rootCmd.AddCommand(versionCmd())
	rootCmd.AddCommand(initConfigCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(retryCmd())
	rootCmd.AddCommand(userCmd())
	rootCmd.AddCommand(activityCmd())
	rootCmd.AddCommand(progressCmd())
	rootCmd.AddCommand(streakCmd())
	rootCmd.AddCommand(challengesCmd())
	rootCmd.AddCommand(achievementsCmd())
	rootCmd.AddCommand(notificationsCmd())
	return rootCmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "显示版本",
		Annotations: map[string]string{skipCore: "true"},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), buildinfo.String())
		},
	}
}

func parseID(s, what string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("无效的%s ID: %q", what, s)
	}
	return id, nil
}
