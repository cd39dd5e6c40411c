package model

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// FeatureSchemaVersion 当前特征向量版本，写入每条推荐
const FeatureSchemaVersion = 1

// Rationale 推荐理由：2-5 个要点 + 一段不超过 500 字符的说明
type Rationale struct {
	TopFactors        []string           `json:"top_factors"`
	Reasoning         string             `json:"reasoning"`
	RiskAssessment    string             `json:"risk_assessment,omitempty"`
	ConfidenceFactors map[string]float64 `json:"confidence_factors,omitempty"`
}

// ResultPayload 评分器观察到的赛果快照，写入 picks.result_payload
type ResultPayload struct {
	GameID     string     `json:"game_id"`
	GameStatus GameStatus `json:"game_status,omitempty"`
	HomeTeam   string     `json:"home_team,omitempty"`
	AwayTeam   string     `json:"away_team,omitempty"`
	HomeScore  *int       `json:"home_score,omitempty"`
	AwayScore  *int       `json:"away_score,omitempty"`
	Margin     *float64   `json:"margin,omitempty"` // 让分盘：选中方得分 - 对手得分 + line
	Total      *float64   `json:"total,omitempty"`  // 大小分：两队总分
	Profit     float64    `json:"profit"`           // 单位注额下的盈亏
	Reason     string     `json:"reason,omitempty"` // unresolved / tie / admin 等
}

const (
	ReasonUnresolved = "unresolved"
	ReasonTie        = "tie"
	ReasonAdmin      = "admin"
)

// Pick 每日推荐，对应 picks 表；date 唯一，一天至多一条
type Pick struct {
	ID                   string                        `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Date                 Day                           `gorm:"column:date;type:date;uniqueIndex:uk_picks_date;not null" json:"date"`
	League               League                        `gorm:"column:league;type:text;not null" json:"league"`
	GameID               string                        `gorm:"column:game_id;type:text;not null" json:"game_id"`
	HomeTeam             string                        `gorm:"column:home_team;type:text;not null" json:"home_team"`
	AwayTeam             string                        `gorm:"column:away_team;type:text;not null" json:"away_team"`
	StartTime            time.Time                     `gorm:"column:start_time;not null" json:"start_time"`
	Market               Market                        `gorm:"column:market;type:text;not null" json:"market"`
	Side                 Side                          `gorm:"column:side;type:text;not null" json:"side"`
	Selection            string                        `gorm:"column:selection;type:text;not null" json:"selection"`
	Line                 *float64                      `gorm:"column:line;type:numeric" json:"line"`
	Odds                 int                           `gorm:"column:odds;type:integer;not null" json:"odds"`
	Confidence           float64                       `gorm:"column:confidence;type:numeric(4,1);not null" json:"confidence"`
	Rationale            datatypes.JSONType[Rationale] `gorm:"column:rationale;type:jsonb;not null" json:"rationale"`
	FeatureSchemaVersion int                           `gorm:"column:feature_schema_version;type:integer;not null" json:"feature_schema_version"`
	Degraded             bool                          `gorm:"column:degraded;type:boolean;not null" json:"degraded"`
	Status               PickStatus                    `gorm:"column:status;type:text;not null;index;check:chk_picks_status,status IN ('PENDING','WON','LOST','PUSHED','VOIDED')" json:"status"`
	GradedAt             *time.Time                    `gorm:"column:graded_at" json:"graded_at"`
	ResultPayload        datatypes.JSON                `gorm:"column:result_payload;type:jsonb" json:"result_payload"`
	CreatedAt            time.Time                     `gorm:"column:created_at;not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (Pick) TableName() string { return "picks" }

// Result 解析 result_payload，未结算返回 nil
func (p *Pick) Result() (*ResultPayload, error) {
	if len(p.ResultPayload) == 0 || string(p.ResultPayload) == "null" {
		return nil, nil
	}
	var r ResultPayload
	if err := json.Unmarshal(p.ResultPayload, &r); err != nil {
		return nil, fmt.Errorf("解析result_payload失败: %w", err)
	}
	return &r, nil
}

// EncodeResult 序列化赛果快照
func EncodeResult(r *ResultPayload) (datatypes.JSON, error) {
	if r == nil {
		return nil, nil
	}
	b, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}

// Profit 按状态计算单位注额盈亏：赢按美式赔率，输 -1，走水/作废 0
func (p *Pick) Profit() float64 {
	switch p.Status {
	case StatusWon:
		return WinProfit(p.Odds)
	case StatusLost:
		return -1
	case StatusPushed, StatusVoided, StatusPending:
		return 0
	default:
		return 0
	}
}
