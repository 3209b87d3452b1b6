package z21

import (
	"encoding/binary"
	"encoding/hex"
)

// LAN 报文头（2 字节，小端）
const (
	HeaderSerialNumber      uint16 = 0x0010 // LAN_GET_SERIAL_NUMBER
	HeaderGetCode           uint16 = 0x0018 // LAN_GET_CODE
	HeaderHwInfo            uint16 = 0x001A // LAN_GET_HWINFO
	HeaderLogoff            uint16 = 0x0030 // LAN_LOGOFF
	HeaderXBus              uint16 = 0x0040 // LAN_X_*
	HeaderSetBroadcastFlags uint16 = 0x0050 // LAN_SET_BROADCASTFLAGS
	HeaderGetBroadcastFlags uint16 = 0x0051 // LAN_GET_BROADCASTFLAGS
	HeaderRMBusDataChanged  uint16 = 0x0080 // LAN_RMBUS_DATACHANGED
	HeaderRMBusGetData      uint16 = 0x0081 // LAN_RMBUS_GETDATA
	HeaderSystemState       uint16 = 0x0084 // LAN_SYSTEMSTATE_DATACHANGED
	HeaderSystemStateGet    uint16 = 0x0085 // LAN_SYSTEMSTATE_GETDATA
)

// X-Bus 子报文头
const (
	XHeaderGet             byte = 0x21 // 版本/状态/轨道电源
	XHeaderTurnoutInfo     byte = 0x43
	XHeaderSetTurnout      byte = 0x53
	XHeaderBroadcast       byte = 0x61
	XHeaderStatusChanged   byte = 0x62
	XHeaderVersion         byte = 0x63
	XHeaderSetStop         byte = 0x80
	XHeaderStopped         byte = 0x81
	XHeaderGetLocoInfo     byte = 0xE3
	XHeaderSetLoco         byte = 0xE4
	XHeaderLocoInfo        byte = 0xEF
	XHeaderGetFirmware     byte = 0xF1
	XHeaderFirmwareVersion byte = 0xF3
)

// recordHeaderLen len(2) + header(2)
const recordHeaderLen = 4

// MaxDatagramSize 单个数据报的接收上限
const MaxDatagramSize = 1024

// Record 一条自定界的协议记录
// 布局：len(2,LE) | header(2,LE) | payload
type Record []byte

// DeclaredLen 记录自身声明的长度；不足 2 字节时返回 -1
func (r Record) DeclaredLen() int {
	if len(r) < 2 {
		return -1
	}
	return int(binary.LittleEndian.Uint16(r[0:2]))
}

// Header 返回报文头；记录不足 4 字节时 ok=false
func (r Record) Header() (uint16, bool) {
	if len(r) < recordHeaderLen {
		return 0, false
	}
	return binary.LittleEndian.Uint16(r[2:4]), true
}

// XHeader 返回 X-Bus 子报文头；仅对 0x0040 记录有意义
func (r Record) XHeader() (byte, bool) {
	if len(r) < recordHeaderLen+1 {
		return 0, false
	}
	return r[recordHeaderLen], true
}

// Payload 返回报文头之后的数据
func (r Record) Payload() []byte {
	if len(r) < recordHeaderLen {
		return nil
	}
	return r[recordHeaderLen:]
}

func (r Record) String() string { return hex.EncodeToString(r) }

// Extract 将一个数据报按记录首字节（长度低字节）切分为若干记录
// 空输入返回空序列；声明长度超出剩余字节时返回已切出的记录与 *ExtractionError
func Extract(payload []byte) ([]Record, error) {
	var records []Record
	off := 0
	for off < len(payload) {
		declared := int(payload[off])
		remaining := len(payload) - off
		// 长度为 0 的记录无法前进
		if declared == 0 || declared > remaining {
			return records, &ExtractionError{Offset: off, Declared: declared, Remaining: remaining}
		}
		rec := make(Record, declared)
		copy(rec, payload[off:off+declared])
		records = append(records, rec)
		off += declared
	}
	return records, nil
}
