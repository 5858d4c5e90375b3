package dto

type StatusDTO struct {
	App     AppStatusDTO     `json:"app"`
	Storage StorageStatusDTO `json:"storage"`
	Catalog CatalogStatusDTO `json:"catalog"`
	Rewards RewardsStatusDTO `json:"rewards"`
}

type AppStatusDTO struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	StartedAt string `json:"started_at"`
	UptimeSec int64  `json:"uptime_sec"`
	SafeMode  bool   `json:"safe_mode"`
	Timezone  string `json:"timezone"`
}

type StorageStatusDTO struct {
	Driver         string `json:"driver"`
	SchemaVersion  int    `json:"schema_version"`
	SafeModeReason string `json:"safe_mode_reason,omitempty"`
}

type CatalogStatusDTO struct {
	Path         string `json:"path,omitempty"` // 为空表示内置目录
	Watching     bool   `json:"watching"`
	Challenges   int    `json:"challenges"`
	Achievements int    `json:"achievements"`
}

type RewardsStatusDTO struct {
	Completions24h  int64 `json:"completions_24h"`
	PendingRewards  int64 `json:"pending_rewards"`
	IsolateFailures bool  `json:"isolate_failures"`
}
