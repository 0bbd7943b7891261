package labline

import (
	"errors"
	"fmt"
)

// InvalidArgumentError 参数类型或取值范围校验失败。
// 属于调用方错误，命令不会发往仪器。
type InvalidArgumentError struct {
	Cmd    string
	Reason string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid argument for %s: %s", e.Cmd, e.Reason)
}

// ConnectionError 传输层打开/读写失败或超时。调用方可重试或重连。
type ConnectionError struct {
	Op  string
	Err error
}

func (e *ConnectionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("connection error during %s", e.Op)
	}
	return fmt.Sprintf("connection error during %s: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// MalformedReplyError 应答解码失败：切片越界或类型转换失败。
// 通常意味着协议不匹配或固件异常。
type MalformedReplyError struct {
	Cmd    string
	Raw    string
	Reason string
}

func (e *MalformedReplyError) Error() string {
	return fmt.Sprintf("malformed reply to %s (%q): %s", e.Cmd, e.Raw, e.Reason)
}

// UnsupportedOperationError 仪器不支持的功能
type UnsupportedOperationError struct {
	Op string
}

func (e *UnsupportedOperationError) Error() string {
	return fmt.Sprintf("operation not supported by this device: %s", e.Op)
}

// IsConnectionError 判断 err 链上是否存在 ConnectionError
func IsConnectionError(err error) bool {
	var ce *ConnectionError
	return errors.As(err, &ce)
}
