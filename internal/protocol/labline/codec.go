package labline

import (
	"fmt"
	"strconv"
	"strings"
)

// EncodeFrame 构造发送帧：命令字 [+ 分隔符 + 参数] + 命令终结符。
// 参数须已通过 Validate。
func EncodeFrame(fr Framing, cmd Command, arg any) (string, error) {
	var b strings.Builder
	b.WriteString(cmd.Name)
	if arg != nil {
		s, err := formatArg(cmd, arg)
		if err != nil {
			return "", err
		}
		b.WriteString(fr.ArgDelimiter)
		b.WriteString(s)
	}
	b.WriteString(fr.CommandTerminator)
	return b.String(), nil
}

func formatArg(cmd Command, arg any) (string, error) {
	switch v := arg.(type) {
	case string:
		return v, nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32), nil
	}
	if i, ok := toInt(arg); ok {
		return strconv.Itoa(i), nil
	}
	return "", &InvalidArgumentError{Cmd: cmd.Name, Reason: fmt.Sprintf("cannot encode %T argument", arg)}
}

// DecodeReply 按命令的 ReplySpec 解码一行原始应答（终结符已由传输层剥离）。
// 无 ReplySpec 的命令返回零值。切片越界或类型转换失败返回 MalformedReplyError。
func DecodeReply(cmd Command, raw string) (Value, error) {
	spec := cmd.Reply
	if spec == nil {
		return Value{}, nil
	}

	body := raw
	if spec.Slice != nil {
		var err error
		body, err = applySlice(raw, spec.Slice)
		if err != nil {
			return Value{}, &MalformedReplyError{Cmd: cmd.Name, Raw: raw, Reason: err.Error()}
		}
	}

	switch spec.Kind {
	case KindString:
		return Value{Kind: KindString, Str: body}, nil
	case KindInt:
		n, err := strconv.Atoi(strings.TrimSpace(body))
		if err != nil {
			return Value{}, &MalformedReplyError{Cmd: cmd.Name, Raw: raw, Reason: fmt.Sprintf("not an integer: %q", body)}
		}
		return Value{Kind: KindInt, Int: n}, nil
	case KindFloat:
		f, err := strconv.ParseFloat(strings.TrimSpace(body), 64)
		if err != nil {
			return Value{}, &MalformedReplyError{Cmd: cmd.Name, Raw: raw, Reason: fmt.Sprintf("not a number: %q", body)}
		}
		return Value{Kind: KindFloat, Real: f}, nil
	}
	return Value{}, nil
}

// applySlice 截取 [start, end)，负偏移自行尾计算。越界视为应答畸形。
func applySlice(raw string, s *Slice) (string, error) {
	start := s.Start
	if start < 0 {
		start += len(raw)
	}
	end := len(raw)
	if s.HasEnd {
		end = s.End
		if end < 0 {
			end += len(raw)
		}
	}
	if start < 0 || end > len(raw) || start > end {
		return "", fmt.Errorf("slice [%d:%d] out of range for %d-char reply", s.Start, s.End, len(raw))
	}
	return raw[start:end], nil
}
