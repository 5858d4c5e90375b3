// Package observability 汇总运行状态供运维端点展示。
package observability

import (
	"context"
	"errors"
	"time"

	"github.com/yuqie6/HabitQuest/internal/dto"
	"github.com/yuqie6/HabitQuest/internal/repository"
)

var ErrNotReady = errors.New("runtime not ready")

// StatusInput 构建状态所需的依赖
type StatusInput struct {
	Name            string
	Version         string
	StartedAt       time.Time
	Location        *time.Location
	DB              *repository.Database
	Store           *repository.Store
	CatalogPath     string
	Watching        bool
	IsolateFailures bool
}

// BuildStatus 汇总应用、存储、规则目录与结算积压状态。
// 安全模式下跳过查询，只返回静态信息。
func BuildStatus(ctx context.Context, in StatusInput, now time.Time) (*dto.StatusDTO, error) {
	if in.DB == nil || in.Store == nil {
		return nil, ErrNotReady
	}

	tz := "Local"
	if in.Location != nil {
		tz = in.Location.String()
	}
	out := &dto.StatusDTO{
		App: dto.AppStatusDTO{
			Name:      in.Name,
			Version:   in.Version,
			StartedAt: in.StartedAt.Format(time.RFC3339),
			UptimeSec: int64(now.Sub(in.StartedAt).Seconds()),
			SafeMode:  in.DB.SafeMode,
			Timezone:  tz,
		},
		Storage: dto.StorageStatusDTO{
			Driver:         in.DB.Driver,
			SchemaVersion:  in.DB.SchemaVersion,
			SafeModeReason: in.DB.MigrationError,
		},
		Catalog: dto.CatalogStatusDTO{
			Path:     in.CatalogPath,
			Watching: in.Watching,
		},
		Rewards: dto.RewardsStatusDTO{
			IsolateFailures: in.IsolateFailures,
		},
	}
	if in.DB.SafeMode {
		return out, nil
	}

	challenges, err := in.Store.Challenges.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	achievements, err := in.Store.Achievements.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	out.Catalog.Challenges = len(challenges)
	out.Catalog.Achievements = len(achievements)

	if out.Rewards.PendingRewards, err = in.Store.Completions.CountUnrewarded(ctx); err != nil {
		return nil, err
	}
	if out.Rewards.Completions24h, err = in.Store.Completions.CountSince(ctx, now.Add(-24*time.Hour).UnixMilli()); err != nil {
		return nil, err
	}
	return out, nil
}
