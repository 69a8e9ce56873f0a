package touch

import (
	"encoding/binary"
	"fmt"
)

// 帧定义
const (
	FrameHeader byte   = 0xAA
	FrameTail   byte   = 0x55
	MinFrameLen uint16 = 9 // 帧头(1) + 长度(2) + 命令(1) + 序列号(2) + CRC(2) + 帧尾(1)
)

// 命令码定义
const (
	CmdSetTouchMode byte = 0x41 // 设置触摸模式
	CmdACK          byte = 0x80 // ACK确认
	CmdNACK         byte = 0x81 // NACK拒绝
)

// Frame 触摸MCU数据帧
type Frame struct {
	Length   uint16 // 整帧长度
	Command  byte   // 命令码
	Sequence uint16 // 序列号
	Data     []byte // 数据
	CRC16    uint16 // CRC校验
}

// NewFrame 创建新的数据帧
func NewFrame(cmd byte, seq uint16, data []byte) *Frame {
	f := &Frame{
		Length:   MinFrameLen + uint16(len(data)),
		Command:  cmd,
		Sequence: seq,
		Data:     data,
	}
	f.CRC16 = f.CalculateCRC()
	return f
}

// NewSetModeFrame 创建模式设置帧，数据为大端序的 [功能号, 模式]
func NewSetModeFrame(seq uint16, selector int32, enabled bool) *Frame {
	payload := Payload(selector, enabled)
	data := make([]byte, 8)
	binary.BigEndian.PutUint32(data[0:4], uint32(payload[0]))
	binary.BigEndian.PutUint32(data[4:8], uint32(payload[1]))
	return NewFrame(CmdSetTouchMode, seq, data)
}

// ToBytes 将帧转换为字节数组
func (f *Frame) ToBytes() []byte {
	buf := make([]byte, f.Length)
	buf[0] = FrameHeader
	binary.BigEndian.PutUint16(buf[1:3], f.Length)
	buf[3] = f.Command
	binary.BigEndian.PutUint16(buf[4:6], f.Sequence)
	copy(buf[6:], f.Data)
	binary.BigEndian.PutUint16(buf[f.Length-3:], f.CRC16)
	buf[f.Length-1] = FrameTail
	return buf
}

// ParseFrame 从字节数组解析帧
func ParseFrame(data []byte) (*Frame, error) {
	if len(data) < int(MinFrameLen) {
		return nil, fmt.Errorf("frame too short: %d < %d", len(data), MinFrameLen)
	}
	if data[0] != FrameHeader {
		return nil, fmt.Errorf("invalid frame header: 0x%02X", data[0])
	}

	length := binary.BigEndian.Uint16(data[1:3])
	if length < MinFrameLen {
		return nil, fmt.Errorf("invalid frame length: %d", length)
	}
	if len(data) < int(length) {
		return nil, fmt.Errorf("incomplete frame: %d < %d", len(data), length)
	}
	if data[length-1] != FrameTail {
		return nil, fmt.Errorf("invalid frame tail: 0x%02X", data[length-1])
	}

	f := &Frame{
		Length:   length,
		Command:  data[3],
		Sequence: binary.BigEndian.Uint16(data[4:6]),
		CRC16:    binary.BigEndian.Uint16(data[length-3 : length-1]),
	}
	if n := length - MinFrameLen; n > 0 {
		f.Data = make([]byte, n)
		copy(f.Data, data[6:6+n])
	}

	if calc := f.CalculateCRC(); calc != f.CRC16 {
		return nil, fmt.Errorf("CRC mismatch: calc=0x%04X, recv=0x%04X", calc, f.CRC16)
	}
	return f, nil
}

// CalculateCRC 计算从命令码到数据的CRC
func (f *Frame) CalculateCRC() uint16 {
	data := make([]byte, 0, 3+len(f.Data))
	data = append(data, f.Command, byte(f.Sequence>>8), byte(f.Sequence))
	data = append(data, f.Data...)
	return CRC16XMODEM(data)
}

// CRC16XMODEM CRC16-XMODEM算法
func CRC16XMODEM(data []byte) uint16 {
	crc := uint16(0x0000)
	for _, b := range data {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
