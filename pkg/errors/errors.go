// Package errors 提供统一错误辅助与查询管线的错误分类，不依赖 internal
package errors

import (
	"errors"
	"fmt"
)

// 常用哨兵错误
var (
	ErrNotFound   = errors.New("not found")
	ErrInvalidArg = errors.New("invalid argument")
)

// 管线阶段错误分类：上游拉取失败 / 本地读写失败 / 绘制失败
var (
	ErrFetch  = errors.New("fetch failure")
	ErrIO     = errors.New("io failure")
	ErrRender = errors.New("render failure")
)

// Stage 查询管线阶段名，出现在对外的错误响应中
type Stage string

const (
	StageFetchProfile    Stage = "fetch_profile"
	StageFetchRelation   Stage = "fetch_relation"
	StageFetchEngagement Stage = "fetch_engagement"
	StageLoadRecord      Stage = "load_record"
	StageSaveRecord      Stage = "save_record"
	StageRender          Stage = "render"
	StageSaveCard        Stage = "save_card"
	StageLoadCard        Stage = "load_card"
)

// StageError 带阶段与主体 ID 的错误；errors.Is 同时匹配阶段哨兵（Kind）与原因（Err）
type StageError struct {
	Stage   Stage
	Subject int64
	Kind    error
	Err     error
}

func (e *StageError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: subject %d: %v", e.Stage, e.Subject, e.Kind)
	}
	return fmt.Sprintf("%s: subject %d: %v", e.Stage, e.Subject, e.Err)
}

// Unwrap 返回阶段哨兵与原因
func (e *StageError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NewStageError 构造阶段错误，kind 为 ErrFetch / ErrIO / ErrRender 之一
func NewStageError(stage Stage, subject int64, kind, err error) *StageError {
	return &StageError{Stage: stage, Subject: subject, Kind: kind, Err: err}
}

// StageOf 取出错误链上的阶段名，没有时返回空串
func StageOf(err error) Stage {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}

// Is 透传标准库 errors.Is，方便调用方只引入本包
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As 透传标准库 errors.As
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Wrap 包装错误并附加消息
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf 带格式的 Wrap
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
