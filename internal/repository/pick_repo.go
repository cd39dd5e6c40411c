package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"time"

	"DailyPick/internal/interfaces"
	"DailyPick/internal/model"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// performanceViewSQL 战绩视图（仅 PostgreSQL）；连胜/连败依赖结算顺序，由应用层计算
const performanceViewSQL = `
CREATE OR REPLACE VIEW v_performance AS
SELECT
	COALESCE(league, 'ALL') AS league,
	COUNT(*) AS total,
	COUNT(*) FILTER (WHERE status = 'WON') AS won,
	COUNT(*) FILTER (WHERE status = 'LOST') AS lost,
	COUNT(*) FILTER (WHERE status = 'PUSHED') AS pushed,
	COUNT(*) FILTER (WHERE status = 'VOIDED') AS voided,
	CASE WHEN COUNT(*) FILTER (WHERE status IN ('WON', 'LOST')) = 0 THEN NULL
		ELSE ROUND(COUNT(*) FILTER (WHERE status = 'WON')::numeric
			/ COUNT(*) FILTER (WHERE status IN ('WON', 'LOST')), 4)
	END AS win_rate,
	ROUND(SUM(CASE
		WHEN status = 'WON' AND odds > 0 THEN odds / 100.0
		WHEN status = 'WON' THEN 100.0 / ABS(odds)
		WHEN status = 'LOST' THEN -1
		ELSE 0
	END), 4) AS roi
FROM picks
WHERE status <> 'PENDING'
GROUP BY ROLLUP (league)`

// PickRepository picks 表的唯一写入方，"一天一条"由 date 唯一约束保证
type PickRepository struct {
	db     *gorm.DB
	logger *logrus.Logger
	now    func() time.Time
}

var _ interfaces.PickStore = (*PickRepository)(nil)

func NewPickRepository(db *gorm.DB, logger *logrus.Logger) *PickRepository {
	return &PickRepository{db: db, logger: logger, now: time.Now}
}

// WithClock 替换时钟（测试用）
func (r *PickRepository) WithClock(now func() time.Time) *PickRepository {
	r.now = now
	return r
}

func persistErr(action string, err error) error {
	return fmt.Errorf("%w: %s: %w", model.ErrPersistenceFailure, action, err)
}

// Migrate 建表；PostgreSQL 下额外创建 v_performance 视图
func (r *PickRepository) Migrate(ctx context.Context) error {
	db := r.db.WithContext(ctx)
	if err := db.AutoMigrate(&model.Pick{}); err != nil {
		return persistErr("迁移picks表失败", err)
	}
	if db.Dialector.Name() == "postgres" {
		if err := db.Exec(performanceViewSQL).Error; err != nil {
			return persistErr("创建v_performance视图失败", err)
		}
	}
	return nil
}

// Ping 检查数据库连通性
func (r *PickRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return persistErr("获取SQL DB失败", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return persistErr("数据库不可达", err)
	}
	return nil
}

// InsertPick 原子插入：ON CONFLICT (date) DO NOTHING，冲突时返回已有记录
func (r *PickRepository) InsertPick(ctx context.Context, draft *model.Pick) (*model.Pick, error) {
	if draft == nil {
		return nil, errors.New("draft不能为空")
	}
	if _, err := model.ParseDay(string(draft.Date)); err != nil {
		return nil, err
	}
	p := *draft
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.Status = model.StatusPending
	p.GradedAt = nil
	p.ResultPayload = nil
	if p.CreatedAt.IsZero() {
		p.CreatedAt = r.now().UTC().Truncate(time.Microsecond)
	}
	if p.FeatureSchemaVersion == 0 {
		p.FeatureSchemaVersion = model.FeatureSchemaVersion
	}

	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "date"}}, DoNothing: true}).
		Create(&p)
	if res.Error != nil {
		return nil, persistErr("写入推荐失败", res.Error)
	}
	if res.RowsAffected == 0 {
		existing, err := r.GetByDate(ctx, p.Date)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			return nil, persistErr("读取已存在推荐失败", fmt.Errorf("date %s 冲突但未找到记录", p.Date))
		}
		return existing, &model.AlreadyExistsError{Date: p.Date, Existing: existing}
	}
	return &p, nil
}

// GetToday 规范时区下的今天
func (r *PickRepository) GetToday(ctx context.Context) (*model.Pick, error) {
	return r.GetByDate(ctx, model.DayOf(r.now()))
}

func (r *PickRepository) GetByDate(ctx context.Context, day model.Day) (*model.Pick, error) {
	return r.first(ctx, "date = ?", day)
}

func (r *PickRepository) GetByID(ctx context.Context, id string) (*model.Pick, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}
	return r.first(ctx, "id = ?", id)
}

func (r *PickRepository) first(ctx context.Context, query string, arg interface{}) (*model.Pick, error) {
	var p model.Pick
	err := r.db.WithContext(ctx).Where(query, arg).Take(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, persistErr("查询推荐失败", err)
	}
	return &p, nil
}

// ListPicks 按日期倒序分页
func (r *PickRepository) ListPicks(ctx context.Context, filter model.PickFilter) ([]*model.Pick, int64, error) {
	f := filter.Normalize()
	q := r.db.WithContext(ctx).Model(&model.Pick{})
	if f.From != "" {
		q = q.Where("date >= ?", f.From)
	}
	if f.To != "" {
		q = q.Where("date <= ?", f.To)
	}
	if f.League != "" {
		q = q.Where("league = ?", f.League)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, persistErr("统计推荐失败", err)
	}
	var picks []*model.Pick
	if err := q.Order("date DESC").Offset((f.Page - 1) * f.PageSize).Limit(f.PageSize).Find(&picks).Error; err != nil {
		return nil, 0, persistErr("查询推荐列表失败", err)
	}
	return picks, total, nil
}

// ListPending 按 date 做 keyset 分页，结算中状态变化不影响翻页
func (r *PickRepository) ListPending(ctx context.Context, after model.Day, limit int) ([]*model.Pick, error) {
	if limit <= 0 {
		limit = 100
	}
	q := r.db.WithContext(ctx).Where("status = ?", model.StatusPending)
	if after != "" {
		q = q.Where("date > ?", after)
	}
	var picks []*model.Pick
	if err := q.Order("date ASC").Limit(limit).Find(&picks).Error; err != nil {
		return nil, persistErr("查询待结算推荐失败", err)
	}
	return picks, nil
}

// Transition 条件更新 WHERE status='PENDING'；0 行时判断是否为相同结果的重复提交
func (r *PickRepository) Transition(ctx context.Context, id string, status model.PickStatus, payload *model.ResultPayload) (*model.Pick, error) {
	if _, err := model.ParsePickStatus(string(status)); err != nil {
		return nil, err
	}
	raw, err := model.EncodeResult(payload)
	if err != nil {
		return nil, fmt.Errorf("序列化赛果失败: %w", err)
	}

	var affected int64
	if status.IsTerminal() {
		gradedAt := r.now().UTC().Truncate(time.Microsecond)
		res := r.db.WithContext(ctx).Model(&model.Pick{}).
			Where("id = ? AND status = ?", id, model.StatusPending).
			Updates(map[string]interface{}{
				"status":         status,
				"graded_at":      gradedAt,
				"result_payload": raw,
			})
		if res.Error != nil {
			return nil, persistErr("更新推荐状态失败", res.Error)
		}
		affected = res.RowsAffected
	}

	current, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, fmt.Errorf("%w: %s", model.ErrPickNotFound, id)
	}
	if affected == 1 {
		return current, nil
	}
	if status.IsTerminal() && current.Status == status && samePayload(current.ResultPayload, raw) {
		return current, nil
	}
	return current, &model.InvalidTransitionError{PickID: id, From: current.Status, To: status}
}

// AdminVoid 管理员作废：任意状态 → VOIDED，已作废则原样返回
func (r *PickRepository) AdminVoid(ctx context.Context, id string, reason string) (*model.Pick, error) {
	current, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, fmt.Errorf("%w: %s", model.ErrPickNotFound, id)
	}
	if current.Status == model.StatusVoided {
		return current, nil
	}

	payload, err := current.Result()
	if err != nil || payload == nil {
		payload = &model.ResultPayload{GameID: current.GameID}
	}
	payload.Profit = 0
	payload.Reason = model.ReasonAdmin
	if reason != "" {
		payload.Reason = model.ReasonAdmin + ": " + reason
	}
	raw, err := model.EncodeResult(payload)
	if err != nil {
		return nil, fmt.Errorf("序列化赛果失败: %w", err)
	}

	gradedAt := r.now().UTC().Truncate(time.Microsecond)
	res := r.db.WithContext(ctx).Model(&model.Pick{}).
		Where("id = ? AND status = ?", id, current.Status).
		Updates(map[string]interface{}{
			"status":         model.StatusVoided,
			"graded_at":      gradedAt,
			"result_payload": raw,
		})
	if res.Error != nil {
		return nil, persistErr("作废推荐失败", res.Error)
	}
	updated, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if res.RowsAffected == 0 && (updated == nil || updated.Status != model.StatusVoided) {
		// 并发修改，交由调用方重试
		return updated, &model.InvalidTransitionError{PickID: id, From: current.Status, To: model.StatusVoided}
	}
	r.logger.WithFields(logrus.Fields{
		"pick_id": id,
		"from":    current.Status,
		"reason":  reason,
	}).Info("推荐已被管理员作废")
	return updated, nil
}

// Performance 只汇总已结算推荐
func (r *PickRepository) Performance(ctx context.Context) (*model.PerformanceSnapshot, error) {
	var picks []*model.Pick
	if err := r.db.WithContext(ctx).Where("status <> ?", model.StatusPending).Find(&picks).Error; err != nil {
		return nil, persistErr("查询已结算推荐失败", err)
	}
	return model.BuildPerformance(picks, r.now().UTC()), nil
}

// samePayload JSONB 会重排键顺序，按语义比较
func samePayload(stored, incoming datatypes.JSON) bool {
	if isNullJSON(stored) || isNullJSON(incoming) {
		return isNullJSON(stored) && isNullJSON(incoming)
	}
	var a, b interface{}
	if json.Unmarshal(stored, &a) != nil || json.Unmarshal(incoming, &b) != nil {
		return false
	}
	return reflect.DeepEqual(a, b)
}

func isNullJSON(j datatypes.JSON) bool {
	return len(j) == 0 || string(j) == "null"
}
