package labline

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testFraming = Framing{
	CommandTerminator: "\r\n",
	ReplyTerminator:   "\r\n",
	ArgDelimiter:      " ",
}

func TestEncodeFrame(t *testing.T) {
	tests := []struct {
		name string
		cmd  Command
		arg  any
		want string
	}{
		{"int_arg", setTemp, 150, "OUT_SP_1 150\r\n"},
		{"no_arg", Command{Name: "RESET"}, nil, "RESET\r\n"},
		{"float_arg_whole", Command{Name: "OUT_SP_3", Arg: KindFloat}, 300.0, "OUT_SP_3 300\r\n"},
		{"float_arg_fraction", Command{Name: "OUT_SP_3", Arg: KindFloat}, 99.5, "OUT_SP_3 99.5\r\n"},
		{"string_arg", Command{Name: "OUT_NAME", Arg: KindString}, "IKARET", "OUT_NAME IKARET\r\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EncodeFrame(testFraming, tt.cmd, tt.arg)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeReply_SliceAndCast(t *testing.T) {
	getTemp := Command{Name: "IN_PV_3", Reply: &ReplySpec{Kind: KindFloat, Slice: From(8)}}

	v, err := DecodeReply(getTemp, "IN_PV_3 123.4")
	require.NoError(t, err)
	assert.Equal(t, KindFloat, v.Kind)
	assert.InDelta(t, 123.4, v.Real, 1e-9)
}

func TestDecodeReply_NegativeOffset(t *testing.T) {
	// 形如 "123.4 2" 的应答，截掉末尾两个字符后取数值
	getTemp := Command{Name: "IN_PV_2", Reply: &ReplySpec{Kind: KindFloat, Slice: Until(-2)}}

	v, err := DecodeReply(getTemp, "123.4 2")
	require.NoError(t, err)
	assert.InDelta(t, 123.4, v.Real, 1e-9)
}

func TestDecodeReply_NoSpec(t *testing.T) {
	v, err := DecodeReply(Command{Name: "START_1"}, "whatever the device said")
	require.NoError(t, err)
	assert.Equal(t, KindNone, v.Kind)
}

func TestDecodeReply_PlainString(t *testing.T) {
	getName := Command{Name: "IN_NAME", Reply: &ReplySpec{Kind: KindString}}
	v, err := DecodeReply(getName, "Radleys Carousel Connect")
	require.NoError(t, err)
	assert.Equal(t, "Radleys Carousel Connect", v.Str)
}

func TestDecodeReply_Malformed(t *testing.T) {
	var mre *MalformedReplyError

	// 切片越界
	getTemp := Command{Name: "IN_PV_3", Reply: &ReplySpec{Kind: KindFloat, Slice: From(8)}}
	_, err := DecodeReply(getTemp, "short")
	require.True(t, errors.As(err, &mre), "got %v", err)

	// 数值位置出现非数字文本
	_, err = DecodeReply(getTemp, "IN_PV_3 garbage")
	require.True(t, errors.As(err, &mre), "got %v", err)

	// 整型应答中出现小数
	status := Command{Name: "STATUS", Reply: &ReplySpec{Kind: KindInt, Slice: From(7)}}
	_, err = DecodeReply(status, "STATUS 1.5")
	require.True(t, errors.As(err, &mre), "got %v", err)
}

func TestDecodeReply_IntWithWhitespace(t *testing.T) {
	status := Command{Name: "STATUS", Reply: &ReplySpec{Kind: KindInt, Slice: From(7)}}
	v, err := DecodeReply(status, "STATUS -1")
	require.NoError(t, err)
	assert.Equal(t, -1, v.Int)
}
