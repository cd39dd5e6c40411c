package interfaces

import (
	"context"

	"DailyPick/internal/model"
)

// PickStore 推荐存储，唯一负责"一天一条"约束
type PickStore interface {
	// InsertPick 原子插入；当日已存在时返回已有记录和 *model.AlreadyExistsError
	InsertPick(ctx context.Context, draft *model.Pick) (*model.Pick, error)
	// GetToday 规范时区下今天的推荐，不存在返回 nil
	GetToday(ctx context.Context) (*model.Pick, error)
	GetByDate(ctx context.Context, day model.Day) (*model.Pick, error)
	GetByID(ctx context.Context, id string) (*model.Pick, error)
	// ListPicks 按日期区间/联赛/状态分页查询
	ListPicks(ctx context.Context, filter model.PickFilter) ([]*model.Pick, int64, error)
	// ListPending 日期晚于 after 的 PENDING 推荐，按日期升序，最多 limit 条
	ListPending(ctx context.Context, after model.Day, limit int) ([]*model.Pick, error)
	// Transition 仅允许 PENDING → WON/LOST/PUSHED/VOIDED，重复提交相同结果幂等
	Transition(ctx context.Context, id string, status model.PickStatus, payload *model.ResultPayload) (*model.Pick, error)
	// AdminVoid 管理员作废，任意状态可用
	AdminVoid(ctx context.Context, id string, reason string) (*model.Pick, error)
	// Performance 仅由已结算推荐汇总
	Performance(ctx context.Context) (*model.PerformanceSnapshot, error)
}

// Locker 按 key 的咨询锁；返回的 unlock 必须在所有退出路径调用
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}
