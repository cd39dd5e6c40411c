package model

import (
	"errors"
	"fmt"
)

var (
	// ErrGatewayUnavailable 实时调用与兜底快照均不可用
	ErrGatewayUnavailable = errors.New("gateway unavailable")
	// ErrGatewayDegraded 仅提示：数据来自冻结快照
	ErrGatewayDegraded       = errors.New("gateway degraded")
	ErrNoQualifyingCandidate = errors.New("no qualifying candidate")
	ErrAlreadyExists         = errors.New("pick already exists")
	ErrInvalidTransition     = errors.New("invalid status transition")
	ErrDeadlineExceeded      = errors.New("deadline exceeded")
	ErrConfigurationMissing  = errors.New("configuration missing")
	ErrPersistenceFailure    = errors.New("persistence failure")
	ErrPickNotFound          = errors.New("pick not found")
)

// AlreadyExistsError 当日已有推荐，携带已存在的记录
type AlreadyExistsError struct {
	Date     Day
	Existing *Pick
}

func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("%s: %s", ErrAlreadyExists.Error(), e.Date)
}

func (e *AlreadyExistsError) Is(target error) bool {
	return target == ErrAlreadyExists
}

// InvalidTransitionError 非法状态迁移
type InvalidTransitionError struct {
	PickID string
	From   PickStatus
	To     PickStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("%s: pick %s %s -> %s", ErrInvalidTransition.Error(), e.PickID, e.From, e.To)
}

func (e *InvalidTransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}
