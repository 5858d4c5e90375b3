package catalog

import (
	"context"
	"log/slog"
	"time"

	"github.com/yuqie6/HabitQuest/internal/repository"
)

// SyncResult 一次同步写入的定义数量
type SyncResult struct {
	Challenges   int
	Achievements int
}

// Sync 在单个事务内按名称 upsert 全部定义；已有授予记录不受影响
func Sync(ctx context.Context, store *repository.Store, cat *Catalog, loc *time.Location) (SyncResult, error) {
	var res SyncResult
	if loc == nil {
		loc = time.Local
	}
	err := store.Transaction(ctx, func(tx *repository.Store) error {
		for _, d := range cat.Challenges {
			ch, err := d.toSchema(loc)
			if err != nil {
				return err
			}
			if err := tx.Challenges.UpsertByName(ctx, ch); err != nil {
				return err
			}
			res.Challenges++
		}
		for _, d := range cat.Achievements {
			if err := tx.Achievements.UpsertByName(ctx, d.toSchema()); err != nil {
				return err
			}
			res.Achievements++
		}
		return nil
	})
	if err != nil {
		return SyncResult{}, err
	}
	slog.Info("规则目录已同步", "challenges", res.Challenges, "achievements", res.Achievements)
	return res, nil
}
