package labline

import "fmt"

// Validate 在编码前校验调用方参数。纯函数，无副作用。
//
// 规则：
//   - arg == nil 始终合法（声明了参数类型的命令参数可选）
//   - 未声明参数类型的命令收到参数 → InvalidArgumentError
//   - 类型不符 → InvalidArgumentError（声明 float 的命令接受 int）
//   - 声明了 Check 且数值落在 [Min, Max] 闭区间之外 → InvalidArgumentError
func Validate(cmd Command, arg any) error {
	if arg == nil {
		return nil
	}
	if cmd.Arg == KindNone {
		return &InvalidArgumentError{Cmd: cmd.Name, Reason: "command takes no argument"}
	}

	switch cmd.Arg {
	case KindString:
		if _, ok := arg.(string); !ok {
			return &InvalidArgumentError{Cmd: cmd.Name, Reason: fmt.Sprintf("want string, got %T", arg)}
		}
		return nil
	case KindInt:
		if _, ok := toInt(arg); !ok {
			return &InvalidArgumentError{Cmd: cmd.Name, Reason: fmt.Sprintf("want int, got %T", arg)}
		}
	case KindFloat:
		if _, ok := toFloat(arg); !ok {
			return &InvalidArgumentError{Cmd: cmd.Name, Reason: fmt.Sprintf("want number, got %T", arg)}
		}
	}

	if cmd.Check != nil {
		v, _ := toFloat(arg)
		if v < cmd.Check.Min || v > cmd.Check.Max {
			return &InvalidArgumentError{
				Cmd:    cmd.Name,
				Reason: fmt.Sprintf("value %v out of range [%v, %v]", arg, cmd.Check.Min, cmd.Check.Max),
			}
		}
	}
	return nil
}

func toInt(arg any) (int, bool) {
	switch v := arg.(type) {
	case int:
		return v, true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	}
	return 0, false
}

func toFloat(arg any) (float64, bool) {
	switch v := arg.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	}
	if i, ok := toInt(arg); ok {
		return float64(i), true
	}
	return 0, false
}
