package z21

import "encoding/binary"

// buildLAN 组装 LAN 报文：len(2,LE) | header(2,LE) | data
func buildLAN(header uint16, data ...byte) []byte {
	buf := make([]byte, 0, recordHeaderLen+len(data))
	buf = binary.LittleEndian.AppendUint16(buf, uint16(recordHeaderLen+len(data)))
	buf = binary.LittleEndian.AppendUint16(buf, header)
	return append(buf, data...)
}

// buildXBus 组装 X-Bus 报文，末尾追加 xHeader 与数据的异或校验
func buildXBus(xHeader byte, data ...byte) []byte {
	sub := make([]byte, 0, len(data)+2)
	sub = append(sub, xHeader)
	sub = append(sub, data...)
	sub = append(sub, XOR(sub))
	return buildLAN(HeaderXBus, sub...)
}

// locoAddressBytes 机车地址（大端）；>=128 为长地址，高字节带 0xC0 标记
func locoAddressBytes(addr int) (msb, lsb byte) {
	if addr >= 128 {
		return 0xC0 | byte(addr>>8), byte(addr)
	}
	return 0, byte(addr)
}

func checkLocoAddress(cmd string, addr int) error {
	if addr < MinLocoAddress || addr > MaxLocoAddress {
		return argErr(cmd, "address", addr, "want 1..9999")
	}
	return nil
}

// Encode 编码任意指令
func Encode(cmd Command) ([]byte, error) {
	if cmd == nil {
		return nil, argErr("<nil>", "command", 0, "nil command")
	}
	return cmd.Encode()
}

func (GetSerialNumber) Encode() ([]byte, error) { return buildLAN(HeaderSerialNumber), nil }

func (Logoff) Encode() ([]byte, error) { return buildLAN(HeaderLogoff), nil }

func (GetVersion) Encode() ([]byte, error) { return buildXBus(XHeaderGet, 0x21), nil }

func (GetStatus) Encode() ([]byte, error) { return buildXBus(XHeaderGet, 0x24), nil }

func (SetTrackPowerOff) Encode() ([]byte, error) { return buildXBus(XHeaderGet, 0x80), nil }

func (SetTrackPowerOn) Encode() ([]byte, error) { return buildXBus(XHeaderGet, 0x81), nil }

func (SetStop) Encode() ([]byte, error) { return buildXBus(XHeaderSetStop), nil }

func (GetFirmwareVersion) Encode() ([]byte, error) { return buildXBus(XHeaderGetFirmware, 0x0A), nil }

func (SetBroadcastFlags) Encode() ([]byte, error) {
	flags := binary.LittleEndian.AppendUint32(nil, DefaultBroadcastFlags)
	return buildLAN(HeaderSetBroadcastFlags, flags...), nil
}

func (GetBroadcastFlags) Encode() ([]byte, error) { return buildLAN(HeaderGetBroadcastFlags), nil }

func (GetSystemState) Encode() ([]byte, error) { return buildLAN(HeaderSystemStateGet), nil }

func (GetHwInfo) Encode() ([]byte, error) { return buildLAN(HeaderHwInfo), nil }

func (GetCode) Encode() ([]byte, error) { return buildLAN(HeaderGetCode), nil }

func (c GetLocoInfo) Encode() ([]byte, error) {
	if err := checkLocoAddress(c.Name(), c.Address); err != nil {
		return nil, err
	}
	msb, lsb := locoAddressBytes(c.Address)
	return buildXBus(XHeaderGetLocoInfo, 0xF0, msb, lsb), nil
}

// Encode 速度码：0 停车，1 紧急停车，2..127 对应速度 1..126；bit7 为前进
func (c SetLocoDrive) Encode() ([]byte, error) {
	if err := checkLocoAddress(c.Name(), c.Address); err != nil {
		return nil, err
	}
	if c.Speed < 0 || c.Speed > MaxLocoSpeed {
		return nil, argErr(c.Name(), "speed", c.Speed, "want 0..126")
	}
	if !c.Direction.valid() {
		return nil, argErr(c.Name(), "direction", int(c.Direction), "want forward or backward")
	}
	if !c.Stop.valid() {
		return nil, argErr(c.Name(), "stop", int(c.Stop), "want none, normal or emergency")
	}

	var code byte
	switch {
	case c.Stop == StopEmergency:
		code = 1
	case c.Stop == StopNormal || c.Speed == 0:
		code = 0
	default:
		code = byte(c.Speed + 1)
	}
	if c.Direction == DirectionForward {
		code |= 0x80
	}
	msb, lsb := locoAddressBytes(c.Address)
	return buildXBus(XHeaderSetLoco, 0x13, msb, lsb, code), nil
}

// Encode DB3 = TTNNNNNN
func (c SetLocoFunction) Encode() ([]byte, error) {
	if err := checkLocoAddress(c.Name(), c.Address); err != nil {
		return nil, err
	}
	if c.Function < 0 || c.Function > MaxLocoFunction {
		return nil, argErr(c.Name(), "function", c.Function, "want 0..63")
	}
	if !c.Mode.valid() {
		return nil, argErr(c.Name(), "mode", int(c.Mode), "want off, on or switch")
	}
	msb, lsb := locoAddressBytes(c.Address)
	db3 := byte(c.Mode)<<6 | byte(c.Function)
	return buildXBus(XHeaderSetLoco, 0xF8, msb, lsb, db3), nil
}

func checkTurnoutAddress(cmd string, addr int) error {
	if addr < MinTurnoutAddress || addr > MaxTurnoutAddress {
		return argErr(cmd, "address", addr, "want 1..255")
	}
	return nil
}

func (c GetTurnoutInfo) Encode() ([]byte, error) {
	if err := checkTurnoutAddress(c.Name(), c.Address); err != nil {
		return nil, err
	}
	return buildXBus(XHeaderTurnoutInfo, 0x00, byte(c.Address-1)), nil
}

// Encode DB2 = 10101000 | P，A=1 激活输出
func (c SetTurnout) Encode() ([]byte, error) {
	if err := checkTurnoutAddress(c.Name(), c.Address); err != nil {
		return nil, err
	}
	if !c.Position.valid() {
		return nil, argErr(c.Name(), "position", int(c.Position), "want straight or branched")
	}
	return buildXBus(XHeaderSetTurnout, 0x00, byte(c.Address-1), 0b10101000|byte(c.Position)), nil
}

func (c GetFeedbackGroup) Encode() ([]byte, error) {
	if c.Group < MinFeedbackGroup || c.Group > MaxFeedbackGroup {
		return nil, argErr(c.Name(), "group", c.Group, "want 1..2")
	}
	return buildLAN(HeaderRMBusGetData, byte(c.Group)), nil
}
