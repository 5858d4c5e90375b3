package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/yuqie6/HabitQuest/internal/catalog"
	"github.com/yuqie6/HabitQuest/internal/pkg/config"
)

func initConfigCmd() *cobra.Command {
	var (
		path  string
		force bool
	)
	cmd := &cobra.Command{
		Use:         "init-config",
		Short:       "写出默认配置文件",
		Annotations: map[string]string{skipCore: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if path == "" {
				p, err := config.DefaultConfigPath()
				if err != nil {
					return err
				}
				path = p
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("配置文件已存在: %s（使用 --force 覆盖）", path)
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}
			if err := config.WriteFile(path, config.Default()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✅ 已写入 %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&path, "path", "", "输出路径")
	cmd.Flags().BoolVar(&force, "force", false, "覆盖已有文件")
	return cmd
}

func seedCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "同步规则目录（挑战与成就），按名称幂等",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := core.RequireWritable(); err != nil {
				return err
			}
			if file == "" {
				file = core.Cfg.Catalog.Path
			}
			cat, err := catalog.Load(file)
			if err != nil {
				return err
			}
			res, err := catalog.Sync(cmd.Context(), core.Store, cat, core.Loc)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✅ 规则目录已同步: %d 个挑战, %d 个成就\n", res.Challenges, res.Achievements)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "目录文件（.yaml/.toml），默认使用配置或内置目录")
	return cmd
}

func retryCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "retry",
		Short: "重新结算失败的完成记录",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := core.RequireWritable(); err != nil {
				return err
			}
			if limit <= 0 {
				limit = core.Cfg.Gamification.RetryBatchSize
			}
			n, err := core.Services.Activities.RetryPending(cmd.Context(), limit)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "🔁 已补偿结算 %d 条完成记录\n", n)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "本次最多处理条数")
	return cmd
}
