// Package labline 实现面向行文本协议实验仪器的声明式命令/应答引擎。
// 每条协议命令用一条不可变的 Command 描述（命令字、参数类型、取值范围、
// 应答解析规则），由统一的 Dispatcher 完成 校验→编码→发送→读取→解码。
package labline

// ValueKind 参数与应答的语义类型
type ValueKind int

const (
	KindNone ValueKind = iota // 无参数 / 无应答体
	KindString
	KindInt
	KindFloat
)

func (k ValueKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	default:
		return "none"
	}
}

// Bounds 参数取值范围（闭区间）
type Bounds struct {
	Min float64
	Max float64
}

// Slice 应答切片规则。语义与仪器手册中按固定偏移截取一致：
// 负偏移自行尾计算，HasEnd 为 false 表示截取到行尾。
type Slice struct {
	Start  int
	End    int
	HasEnd bool
}

// From 返回「自 start 起到行尾」的切片规则
func From(start int) *Slice { return &Slice{Start: start} }

// Until 返回「自行首到 end（不含）」的切片规则
func Until(end int) *Slice { return &Slice{End: end, HasEnd: true} }

// Between 返回 [start, end) 切片规则
func Between(start, end int) *Slice { return &Slice{Start: start, End: end, HasEnd: true} }

// ReplySpec 描述如何解释一行原始应答：先按 Slice 截取（可选），再转为 Kind 类型。
// 偏移量是每条命令协议约定的固定值，应答本身不携带结构信息。
type ReplySpec struct {
	Kind  ValueKind
	Slice *Slice
}

// Command 一条协议命令的完整描述。在包初始化时定义，此后只读。
type Command struct {
	// Name 发往仪器的命令字面量，如 "OUT_SP_1"
	Name string
	// Arg 唯一允许的参数类型；KindNone 表示该命令不接受参数。
	// 声明了 Arg 的命令参数仍然可选（部分查询命令带可选参数）。
	Arg ValueKind
	// Check 参数取值范围，仅对数值参数有意义
	Check *Bounds
	// Reply 应答解析规则；nil 表示忽略应答体（fire-and-forget）
	Reply *ReplySpec
}

// Framing 仪器的行帧约定
type Framing struct {
	// CommandTerminator 命令行终结符（主机→仪器）
	CommandTerminator string
	// ReplyTerminator 应答行终结符（仪器→主机）
	ReplyTerminator string
	// ArgDelimiter 命令字与参数之间的分隔符
	ArgDelimiter string
}

// Value 解码后的类型化应答
type Value struct {
	Kind ValueKind
	Str  string
	Int  int
	Real float64
}

// Float64 以浮点返回数值应答，整型应答自动提升
func (v Value) Float64() float64 {
	if v.Kind == KindInt {
		return float64(v.Int)
	}
	return v.Real
}
