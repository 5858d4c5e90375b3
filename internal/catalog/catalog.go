// Package catalog 管理挑战与成就的规则目录：内置 YAML、外部 YAML/TOML 文件，按名称同步到数据库。
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/yuqie6/HabitQuest/internal/repository"
	"github.com/yuqie6/HabitQuest/internal/schema"
	"github.com/yuqie6/HabitQuest/internal/service"
	"go.yaml.in/yaml/v3"
)

//go:embed default_catalog.yaml
var defaultCatalog []byte

// Catalog 规则目录
type Catalog struct {
	Challenges   []ChallengeDef   `yaml:"challenges" toml:"challenges"`
	Achievements []AchievementDef `yaml:"achievements" toml:"achievements"`
}

// ChallengeDef 挑战定义；窗口边界支持 RFC3339 或 YYYY-MM-DD（按配置时区）
type ChallengeDef struct {
	Name        string `yaml:"name" toml:"name"`
	Description string `yaml:"description" toml:"description"`
	Cycle       string `yaml:"cycle" toml:"cycle"`
	Rule        string `yaml:"rule" toml:"rule"`
	Target      int    `yaml:"target" toml:"target"`
	XP          int    `yaml:"xp" toml:"xp"`
	WindowStart string `yaml:"window_start,omitempty" toml:"window_start"`
	WindowEnd   string `yaml:"window_end,omitempty" toml:"window_end"`
}

// AchievementDef 成就定义
type AchievementDef struct {
	Name            string `yaml:"name" toml:"name"`
	Description     string `yaml:"description" toml:"description"`
	Image           string `yaml:"image,omitempty" toml:"image"`
	Rule            string `yaml:"rule" toml:"rule"`
	Target          int    `yaml:"target" toml:"target"`
	XP              int    `yaml:"xp" toml:"xp"`
	Difficulty      string `yaml:"difficulty,omitempty" toml:"difficulty"`
	ChallengeCycle  string `yaml:"challenge_cycle,omitempty" toml:"challenge_cycle"`
	PomodoroMinutes int    `yaml:"pomodoro_minutes,omitempty" toml:"pomodoro_minutes"`
}

// Format 目录文件格式
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatFromPath 按扩展名判断格式
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("不支持的目录格式: %s", path)
	}
}

// Default 内置目录
func Default() (*Catalog, error) {
	return Parse(defaultCatalog, FormatYAML)
}

// Load 读取目录文件；path 为空返回内置目录
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取目录文件失败: %w", err)
	}
	return Parse(data, format)
}

// Parse 解析并校验目录
func Parse(data []byte, format Format) (*Catalog, error) {
	var cat Catalog
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &cat); err != nil {
			return nil, fmt.Errorf("解析 YAML 目录失败: %w", err)
		}
	case FormatTOML:
		if _, err := toml.Decode(string(data), &cat); err != nil {
			return nil, fmt.Errorf("解析 TOML 目录失败: %w", err)
		}
	default:
		return nil, fmt.Errorf("不支持的目录格式: %s", format)
	}
	if err := cat.Validate(); err != nil {
		return nil, err
	}
	return &cat, nil
}

// Validate 校验名称唯一、规则与周期可识别、目标值为正
func (c *Catalog) Validate() error {
	var errs []error
	seen := make(map[string]struct{})
	for i, d := range c.Challenges {
		name := strings.TrimSpace(d.Name)
		if name == "" {
			errs = append(errs, fmt.Errorf("challenges[%d]: 名称为空", i))
			continue
		}
		if _, dup := seen["c:"+name]; dup {
			errs = append(errs, fmt.Errorf("挑战 %q 重复", name))
		}
		seen["c:"+name] = struct{}{}
		if _, ok := service.ParseChallengeRule(d.Rule); !ok {
			errs = append(errs, fmt.Errorf("挑战 %q: 未知规则 %q", name, d.Rule))
		}
		if _, ok := service.ParseCycle(d.Cycle); !ok {
			errs = append(errs, fmt.Errorf("挑战 %q: 未知周期 %q", name, d.Cycle))
		}
		if d.Target <= 0 {
			errs = append(errs, fmt.Errorf("挑战 %q: target 必须为正", name))
		}
	}
	for i, d := range c.Achievements {
		name := strings.TrimSpace(d.Name)
		if name == "" {
			errs = append(errs, fmt.Errorf("achievements[%d]: 名称为空", i))
			continue
		}
		if _, dup := seen["a:"+name]; dup {
			errs = append(errs, fmt.Errorf("成就 %q 重复", name))
		}
		seen["a:"+name] = struct{}{}
		rule, ok := service.ParseAchievementRule(d.Rule)
		if !ok {
			errs = append(errs, fmt.Errorf("成就 %q: 未知规则 %q", name, d.Rule))
		}
		if d.Target <= 0 {
			errs = append(errs, fmt.Errorf("成就 %q: target 必须为正", name))
		}
		switch rule {
		case service.RuleTotalByDifficulty:
			if !service.ValidDifficulty(d.Difficulty) {
				errs = append(errs, fmt.Errorf("成就 %q: 缺少有效 difficulty", name))
			}
		case service.RuleChallengesByCycle:
			if _, ok := service.ParseCycle(d.ChallengeCycle); !ok {
				errs = append(errs, fmt.Errorf("成就 %q: 缺少有效 challenge_cycle", name))
			}
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("规则目录无效: %w", errors.Join(errs...))
	}
	return nil
}

// toSchema 转为存储模型；周期统一为规范名
func (d ChallengeDef) toSchema(loc *time.Location) (*schema.Challenge, error) {
	cycle, _ := service.ParseCycle(d.Cycle)
	ch := &schema.Challenge{
		Name:        strings.TrimSpace(d.Name),
		Description: d.Description,
		Cycle:       string(cycle),
		RuleKind:    strings.ToLower(strings.TrimSpace(d.Rule)),
		Target:      d.Target,
		XPReward:    d.XP,
	}
	var err error
	if ch.WindowStart, err = parseBound(d.WindowStart, loc, false); err != nil {
		return nil, fmt.Errorf("挑战 %q window_start: %w", ch.Name, err)
	}
	if ch.WindowEnd, err = parseBound(d.WindowEnd, loc, true); err != nil {
		return nil, fmt.Errorf("挑战 %q window_end: %w", ch.Name, err)
	}
	return ch, nil
}

func (d AchievementDef) toSchema() *schema.Achievement {
	a := &schema.Achievement{
		Name:             strings.TrimSpace(d.Name),
		Description:      d.Description,
		Image:            d.Image,
		RuleKind:         strings.ToLower(strings.TrimSpace(d.Rule)),
		Target:           d.Target,
		TargetDifficulty: d.Difficulty,
		PomodoroMinutes:  d.PomodoroMinutes,
		XPReward:         d.XP,
	}
	if c, ok := service.ParseCycle(d.ChallengeCycle); ok {
		a.TargetChallengeCycle = string(c)
	}
	if a.PomodoroMinutes <= 0 {
		a.PomodoroMinutes = schema.DefaultPomodoroMinutes
	}
	return a
}

// parseBound 解析窗口边界；纯日期作为结束边界时取当天最后一毫秒
func parseBound(s string, loc *time.Location, end bool) (*int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		ms := t.UnixMilli()
		return &ms, nil
	}
	day, err := repository.DayRange(s, loc)
	if err != nil {
		return nil, fmt.Errorf("无法解析时间 %q", s)
	}
	ms := day.StartMs
	if end {
		ms = day.EndMs
	}
	return &ms, nil
}
