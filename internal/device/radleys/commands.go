// Package radleys 驱动 Radleys Carousel Connect 加热搅拌器。
// 协议为 9600 8N1 行文本命令/应答，命令集取自厂商手册的英文章节。
package radleys

import "github.com/labforge/labdevice-server/internal/protocol/labline"

// DriverName 仪器清单中引用本驱动的标识
const DriverName = "radleys-carousel"

// DefaultName GET_NAME 类命令的出厂应答
const DefaultName = "Radleys Carousel Connect"

// 只读查表数据，包级常量，不随实例变化。
var (
	// TempSensors 温度探头选择
	TempSensors = map[int]string{0: "HOTPLATE", 1: "PROBE"}
	// HeatModes 控温模式
	HeatModes = map[int]string{0: "PRECISE", 1: "FAST"}
	// ResetModes 断电恢复模式
	ResetModes = map[int]string{0: "ALL OFF", 1: "ALL ON"}
	// StatusText 状态码查表。范围检查见 Status()：
	// 只有 (-2, 3) 开区间内的码有定义，其余一律报 "ERROR"。
	StatusText = map[int]string{
		-1: "REMOTE BLOCKED",
		0:  "MANUAL",
		1:  "REMOTE START",
		2:  "REMOTE STOP",
	}
)

// statusRemoteStart 唯一计为空闲的状态码
const statusRemoteStart = 1

// framing Carousel Connect 的行帧约定
var framing = labline.Framing{
	CommandTerminator: "\r\n",
	ReplyTerminator:   "\r\n",
	ArgDelimiter:      " ",
}

// 控制命令。应答里的数值位于固定偏移处（手册约定，应答不自描述）。
var (
	cmdSetTemp = labline.Command{
		Name: "OUT_SP_1", Arg: labline.KindInt,
		Check: &labline.Bounds{Min: 20, Max: 300},
		Reply: &labline.ReplySpec{Kind: labline.KindFloat, Slice: labline.From(9)},
	}
	cmdSetSpeed = labline.Command{
		Name: "OUT_SP_3", Arg: labline.KindFloat,
		Check: &labline.Bounds{Min: 100, Max: 1400},
		Reply: &labline.ReplySpec{Kind: labline.KindString, Slice: labline.From(9)},
	}
	cmdSetResetMode = labline.Command{
		Name: "OUT_MODE_2", Arg: labline.KindInt,
		Check: &labline.Bounds{Min: 0, Max: 1},
		Reply: &labline.ReplySpec{Kind: labline.KindString, Slice: labline.From(0)},
	}
	cmdSetHeatMode = labline.Command{
		Name: "OUT_MODE_4", Arg: labline.KindInt,
		Check: &labline.Bounds{Min: 0, Max: 1},
		Reply: &labline.ReplySpec{Kind: labline.KindString, Slice: labline.From(0)},
	}

	cmdStartHeat = labline.Command{Name: "START_1", Reply: &labline.ReplySpec{Kind: labline.KindString}}
	cmdStartStir = labline.Command{Name: "START_2", Reply: &labline.ReplySpec{Kind: labline.KindString}}
	cmdStopHeat  = labline.Command{Name: "STOP_1", Reply: &labline.ReplySpec{Kind: labline.KindString}}
	cmdStopStir  = labline.Command{Name: "STOP_2", Reply: &labline.ReplySpec{Kind: labline.KindString}}
	cmdReset     = labline.Command{Name: "RESET"}

	cmdGetProbeTemp         = floatQuery("IN_PV_1", 8)
	cmdGetProbeSafetyTemp   = floatQuery("IN_PV_2", 8)
	cmdGetHotplateTemp      = floatQuery("IN_PV_3", 8)
	cmdGetHotplateSafetyTmp = floatQuery("IN_PV_4", 8)
	cmdGetStirSpeed         = floatQuery("IN_PV_5", 8)
	cmdGetSetTemp           = floatQuery("IN_SP_1", 8)
	cmdGetSafetyDelta       = floatQuery("IN_SP_2", 8)
	cmdGetSetSpeed          = floatQuery("IN_SP_3", 8)

	cmdQuerySensorType = intQuery("IN_MODE_1", 10)
	cmdQueryResetMode  = intQuery("IN_MODE_2", 10)
	cmdQueryHeatMode   = intQuery("IN_MODE_4", 10)
	cmdQueryStatus     = intQuery("STATUS", 7)
)

// 配置命令
var (
	cmdProtocolNew     = labline.Command{Name: "PA_NEW", Reply: &labline.ReplySpec{Kind: labline.KindString}}
	cmdProtocolOld     = labline.Command{Name: "PA_OLD", Reply: &labline.ReplySpec{Kind: labline.KindString}}
	cmdSoftwareVersion = labline.Command{Name: "SW_VERS", Reply: &labline.ReplySpec{Kind: labline.KindString}}
	cmdConnCheckOn     = labline.Command{Name: "CC_ON", Reply: &labline.ReplySpec{Kind: labline.KindString}}
	cmdConnCheckOff    = labline.Command{Name: "CC_OFF", Reply: &labline.ReplySpec{Kind: labline.KindString}}
)

func floatQuery(name string, offset int) labline.Command {
	return labline.Command{
		Name:  name,
		Reply: &labline.ReplySpec{Kind: labline.KindFloat, Slice: labline.From(offset)},
	}
}

func intQuery(name string, offset int) labline.Command {
	return labline.Command{
		Name:  name,
		Reply: &labline.ReplySpec{Kind: labline.KindInt, Slice: labline.From(offset)},
	}
}
