// Package transport 提供实验仪器的物理连接实现。
// 当前仅有 RS-232 串口一种，行为与 labline.Transport 合同一致：
// 整帧写出、按终结符读行、读有界等待。
package transport

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"
	"go.uber.org/zap"
)

// ErrNotOpen 在未打开连接上读写
var ErrNotOpen = errors.New("serial port not open")

// ErrReadTimeout 在超时窗口内未等到完整应答行
var ErrReadTimeout = errors.New("read timeout waiting for reply terminator")

// Params 串口连接参数，构造后不再变更，由连接对象独占。
type Params struct {
	// Port 设备路径，如 /dev/ttyUSB0 或 COM3
	Port string
	// Baud 波特率，默认 9600
	Baud int
	// DataBits 数据位，默认 8
	DataBits int
	// Parity 校验位：none/even/odd，默认 none
	Parity string
	// Strict7Bit 写出前将每字节高位清零（部分仪器只认 7-bit ASCII）
	Strict7Bit bool
	// ReadTimeout 单行应答的最长等待
	ReadTimeout time.Duration
}

func (p Params) withDefaults() Params {
	if p.Baud == 0 {
		p.Baud = 9600
	}
	if p.DataBits == 0 {
		p.DataBits = 8
	}
	if p.Parity == "" {
		p.Parity = "none"
	}
	if p.ReadTimeout == 0 {
		p.ReadTimeout = 2 * time.Second
	}
	return p
}

// SerialPort labline.Transport 的串口实现。
// 非并发安全，调用方须自行串行化（见设备控制器）。
type SerialPort struct {
	params Params
	log    *zap.Logger

	mu   sync.Mutex
	port serial.Port
	// leftover 上一次读取中终结符之后多读到的字节
	leftover bytes.Buffer
}

// NewSerialPort 创建串口连接对象（不打开端口）
func NewSerialPort(p Params, log *zap.Logger) *SerialPort {
	if log == nil {
		log = zap.NewNop()
	}
	return &SerialPort{params: p.withDefaults(), log: log}
}

func parityOf(s string) (serial.Parity, error) {
	switch strings.ToLower(s) {
	case "", "none", "n":
		return serial.NoParity, nil
	case "even", "e":
		return serial.EvenParity, nil
	case "odd", "o":
		return serial.OddParity, nil
	}
	return serial.NoParity, fmt.Errorf("unknown parity %q", s)
}

// Open 打开并配置串口
func (s *SerialPort) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.port != nil {
		return nil
	}

	parity, err := parityOf(s.params.Parity)
	if err != nil {
		return err
	}
	mode := &serial.Mode{
		BaudRate: s.params.Baud,
		DataBits: s.params.DataBits,
		Parity:   parity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(s.params.Port, mode)
	if err != nil {
		return fmt.Errorf("open %s: %w", s.params.Port, err)
	}
	if err := port.SetReadTimeout(s.params.ReadTimeout); err != nil {
		_ = port.Close()
		return fmt.Errorf("set read timeout: %w", err)
	}

	s.port = port
	s.leftover.Reset()
	s.log.Info("serial port opened",
		zap.String("port", s.params.Port),
		zap.Int("baud", s.params.Baud),
		zap.Int("data_bits", s.params.DataBits),
		zap.String("parity", s.params.Parity))
	return nil
}

// Close 关闭串口
func (s *SerialPort) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.port == nil {
		return nil
	}
	err := s.port.Close()
	s.port = nil
	s.leftover.Reset()
	return err
}

// Write 整帧写出，必要时先做 7-bit 掩码
func (s *SerialPort) Write(p []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.port == nil {
		return ErrNotOpen
	}

	if s.params.Strict7Bit {
		p = mask7bit(p)
	}
	for len(p) > 0 {
		n, err := s.port.Write(p)
		if err != nil {
			return err
		}
		p = p[n:]
	}
	return nil
}

// ReadUntil 读取一行应答，直到出现 terminator，返回时终结符已剥离。
// 串口底层超时（零长度读）即视为整行超时：宁可报错也不把上一条
// 命令的残余应答当作本条的结果返回。
func (s *SerialPort) ReadUntil(terminator string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.port == nil {
		return "", ErrNotOpen
	}
	return readLine(s.port, &s.leftover, terminator)
}

// readLine 从 r 中累积字节直到 terminator。leftover 保存越过终结符
// 的多余字节，留给下一行。单独成函数便于用替身端口测试。
func readLine(r io.Reader, leftover *bytes.Buffer, terminator string) (string, error) {
	term := []byte(terminator)
	acc := leftover.Bytes()
	leftover.Reset()

	if i := bytes.Index(acc, term); i >= 0 {
		leftover.Write(acc[i+len(term):])
		return string(acc[:i]), nil
	}

	buf := make([]byte, 256)
	for {
		n, err := r.Read(buf)
		if err != nil {
			return "", err
		}
		if n == 0 {
			// go.bug.st/serial 超时语义：n==0 且 err==nil
			return "", ErrReadTimeout
		}
		acc = append(acc, buf[:n]...)
		if i := bytes.Index(acc, term); i >= 0 {
			leftover.Write(acc[i+len(term):])
			return string(acc[:i]), nil
		}
	}
}

func mask7bit(p []byte) []byte {
	out := make([]byte, len(p))
	for i, b := range p {
		out[i] = b & 0x7F
	}
	return out
}
