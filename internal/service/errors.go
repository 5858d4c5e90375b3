package service

import "errors"

var (
	ErrUserNotFound      = errors.New("用户不存在")
	ErrActivityNotFound  = errors.New("活动不存在")
	ErrActivityClosed    = errors.New("活动已取消或已完成")
	ErrInvalidInput      = errors.New("参数无效")
	ErrUnknownRule       = errors.New("未知规则类型")
	ErrRuleMisconfigured = errors.New("规则参数缺失")
	ErrSafeMode          = errors.New("数据库处于安全模式")
)
