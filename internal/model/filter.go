package model

// PickFilter 推荐列表筛选条件
type PickFilter struct {
	From     Day        // 起始日期（含），空表示不限
	To       Day        // 截止日期（含），空表示不限
	League   League     // 空表示全部联赛
	Status   PickStatus // 空表示全部状态
	Page     int
	PageSize int
}

// Normalize 分页参数兜底
func (f PickFilter) Normalize() PickFilter {
	if f.Page <= 0 {
		f.Page = 1
	}
	switch {
	case f.PageSize <= 0:
		f.PageSize = 20
	case f.PageSize > 100:
		f.PageSize = 100
	}
	return f
}
