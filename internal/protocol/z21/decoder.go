package z21

import "encoding/binary"

// 固定长度报文的记录字节数
const (
	sizeSerialNumber    = 8
	sizeCode            = 5
	sizeHwInfo          = 12
	sizeBroadcastFlags  = 8
	sizeSystemState     = 20
	sizeFeedbackGroup   = 15
	sizeXBusVersion     = 9
	sizeFirmwareVersion = 9
	sizeTurnoutInfo     = 9
	sizeBroadcast       = 7
	sizeStopped         = 7
	sizeStatusChanged   = 8
	minSizeLocoInfo     = 14
	maxSizeLocoInfo     = 21
)

// checkLAN 校验记录长度（实际长度、声明长度）与报文头
func checkLAN(rec Record, msg string, header uint16, size int) error {
	if len(rec) != size {
		return decodeErr(msg, ErrBadLength, "got %d bytes, want %d", len(rec), size)
	}
	return checkDeclaredHeader(rec, msg, header)
}

func checkDeclaredHeader(rec Record, msg string, header uint16) error {
	if d := rec.DeclaredLen(); d != len(rec) {
		return decodeErr(msg, ErrBadLength, "declared %d, got %d bytes", d, len(rec))
	}
	if h, _ := rec.Header(); h != header {
		return decodeErr(msg, ErrBadHeader, "got 0x%04X, want 0x%04X", h, header)
	}
	return nil
}

// checkXBus 在 checkLAN 基础上校验 xHeader 与异或校验
func checkXBus(rec Record, msg string, xHeader byte, size int) error {
	if err := checkLAN(rec, msg, HeaderXBus, size); err != nil {
		return err
	}
	return checkXBusBody(rec, msg, xHeader)
}

func checkXBusBody(rec Record, msg string, xHeader byte) error {
	if xh, _ := rec.XHeader(); xh != xHeader {
		return decodeErr(msg, ErrBadXHeader, "got 0x%02X, want 0x%02X", xh, xHeader)
	}
	if err := VerifyXOR(rec.Payload()); err != nil {
		last := rec[len(rec)-1]
		return decodeErr(msg, err, "checksum 0x%02X, want 0x%02X", last, XOR(rec[recordHeaderLen:len(rec)-1]))
	}
	return nil
}

// DecodeSerialNumber 序列号为 4 字节小端
func DecodeSerialNumber(rec Record) (SerialNumber, error) {
	const msg = "LAN_GET_SERIAL_NUMBER"
	if err := checkLAN(rec, msg, HeaderSerialNumber, sizeSerialNumber); err != nil {
		return SerialNumber{}, err
	}
	return SerialNumber{Serial: binary.LittleEndian.Uint32(rec[4:8])}, nil
}

func DecodeFeatureScope(rec Record) (FeatureScope, error) {
	const msg = "LAN_GET_CODE"
	if err := checkLAN(rec, msg, HeaderGetCode, sizeCode); err != nil {
		return FeatureScope{}, err
	}
	code := rec[4]
	return FeatureScope{Code: code, Name: featureScopeName(code)}, nil
}

// DecodeHardwareInfo 硬件类型 4 字节小端；固件版本 byte4=次版本、byte5=主版本（BCD）
func DecodeHardwareInfo(rec Record) (HardwareInfo, error) {
	const msg = "LAN_GET_HWINFO"
	if err := checkLAN(rec, msg, HeaderHwInfo, sizeHwInfo); err != nil {
		return HardwareInfo{}, err
	}
	data := rec.Payload()
	hw := binary.LittleEndian.Uint32(data[0:4])
	return HardwareInfo{
		HardwareType:  hw,
		Name:          hardwareName(hw),
		FirmwareMinor: BCDValue(data[4]),
		FirmwareMajor: BCDValue(data[5]),
	}, nil
}

func DecodeBroadcastFlags(rec Record) (BroadcastFlags, error) {
	const msg = "LAN_GET_BROADCASTFLAGS"
	if err := checkLAN(rec, msg, HeaderGetBroadcastFlags, sizeBroadcastFlags); err != nil {
		return BroadcastFlags{}, err
	}
	return BroadcastFlags{Flags: binary.LittleEndian.Uint32(rec[4:8])}, nil
}

// DecodeSystemState 六个 16 位小端测量值 + CentralState + CentralStateEx
func DecodeSystemState(rec Record) (SystemState, error) {
	const msg = "LAN_SYSTEMSTATE_DATACHANGED"
	if err := checkLAN(rec, msg, HeaderSystemState, sizeSystemState); err != nil {
		return SystemState{}, err
	}
	d := rec.Payload()
	le := binary.LittleEndian
	cs, cse := d[12], d[13]
	return SystemState{
		MainCurrent:         int16(le.Uint16(d[0:2])),
		ProgCurrent:         int16(le.Uint16(d[2:4])),
		FilteredMainCurrent: int16(le.Uint16(d[4:6])),
		Temperature:         int16(le.Uint16(d[6:8])),
		SupplyVoltage:       le.Uint16(d[8:10]),
		VCCVoltage:          le.Uint16(d[10:12]),
		Central: CentralState{
			EmergencyStop:         cs&0x01 != 0,
			TrackVoltageOff:       cs&0x02 != 0,
			ShortCircuit:          cs&0x04 != 0,
			ProgrammingModeActive: cs&0x20 != 0,
		},
		CentralEx: CentralStateEx{
			HighTemperature:      cse&0x01 != 0,
			PowerLost:            cse&0x02 != 0,
			ShortCircuitExternal: cse&0x04 != 0,
			ShortCircuitInternal: cse&0x08 != 0,
		},
	}, nil
}

// DecodeFeedbackGroup 组号 + 每模块 1 字节，bit0 = 通道 1
func DecodeFeedbackGroup(rec Record) (FeedbackGroup, error) {
	const msg = "LAN_RMBUS_DATACHANGED"
	if err := checkLAN(rec, msg, HeaderRMBusDataChanged, sizeFeedbackGroup); err != nil {
		return FeedbackGroup{}, err
	}
	d := rec.Payload()
	status := d[1:]
	g := FeedbackGroup{Group: int(d[0]), Modules: make([][FeedbackChannels]bool, len(status))}
	for i, b := range status {
		for ch := 0; ch < FeedbackChannels; ch++ {
			g.Modules[i][ch] = bit(b, uint(ch))
		}
	}
	return g, nil
}

// DecodeXBusVersion X-Bus 版本为单字节 BCD，直接拆为 主.次
func DecodeXBusVersion(rec Record) (XBusVersion, error) {
	const msg = "LAN_X_GET_VERSION"
	if err := checkXBus(rec, msg, XHeaderVersion, sizeXBusVersion); err != nil {
		return XBusVersion{}, err
	}
	d := rec.Payload()
	if d[1] != 0x21 {
		return XBusVersion{}, decodeErr(msg, ErrBadPayload, "db0 0x%02X, want 0x21", d[1])
	}
	major, minor := SplitBCD(d[2])
	return XBusVersion{Major: major, Minor: minor, StationID: d[3], Station: stationName(d[3])}, nil
}

// DecodeFirmwareVersion 主/次版本各一个 BCD 字节
func DecodeFirmwareVersion(rec Record) (FirmwareVersion, error) {
	const msg = "LAN_X_GET_FIRMWARE_VERSION"
	if err := checkXBus(rec, msg, XHeaderFirmwareVersion, sizeFirmwareVersion); err != nil {
		return FirmwareVersion{}, err
	}
	d := rec.Payload()
	if d[1] != 0x0A {
		return FirmwareVersion{}, decodeErr(msg, ErrBadPayload, "db0 0x%02X, want 0x0A", d[1])
	}
	return FirmwareVersion{Major: BCDValue(d[2]), Minor: BCDValue(d[3])}, nil
}

// DecodeBroadcastStatus 0x61 广播按 db0 区分
func DecodeBroadcastStatus(rec Record) (BroadcastStatus, error) {
	const msg = "LAN_X_BC"
	if err := checkXBus(rec, msg, XHeaderBroadcast, sizeBroadcast); err != nil {
		return BroadcastStatus{}, err
	}
	db0 := rec.Payload()[1]
	return BroadcastStatus{Code: db0, Status: broadcastStatusName(db0)}, nil
}

func DecodeStatusChanged(rec Record) (StatusChanged, error) {
	const msg = "LAN_X_STATUS_CHANGED"
	if err := checkXBus(rec, msg, XHeaderStatusChanged, sizeStatusChanged); err != nil {
		return StatusChanged{}, err
	}
	d := rec.Payload()
	if d[1] != 0x22 {
		return StatusChanged{}, decodeErr(msg, ErrBadPayload, "db0 0x%02X, want 0x22", d[1])
	}
	s := d[2]
	return StatusChanged{
		Raw:                   s,
		EmergencyStop:         s&0x01 != 0,
		TrackVoltageOff:       s&0x02 != 0,
		ShortCircuit:          s&0x04 != 0,
		ProgrammingModeActive: s&0x20 != 0,
	}, nil
}

func DecodeStopped(rec Record) (Stopped, error) {
	const msg = "LAN_X_BC_STOPPED"
	if err := checkXBus(rec, msg, XHeaderStopped, sizeStopped); err != nil {
		return Stopped{}, err
	}
	if db0 := rec.Payload()[1]; db0 != 0x00 {
		return Stopped{}, decodeErr(msg, ErrBadPayload, "db0 0x%02X, want 0x00", db0)
	}
	return Stopped{}, nil
}

// DecodeTurnoutInfo 地址为大端 FAdr + 1；状态 0 未设置、1 弯轨、2 直轨
func DecodeTurnoutInfo(rec Record) (TurnoutInfo, error) {
	const msg = "LAN_X_TURNOUT_INFO"
	if err := checkXBus(rec, msg, XHeaderTurnoutInfo, sizeTurnoutInfo); err != nil {
		return TurnoutInfo{}, err
	}
	d := rec.Payload()
	info := TurnoutInfo{Address: int(binary.BigEndian.Uint16(d[1:3])) + 1}
	switch d[3] {
	case 0:
		info.Status = TurnoutStatusNotSet
	case 1:
		info.Status = TurnoutStatusBranched
	case 2:
		info.Status = TurnoutStatusStraight
	default:
		info.Status = TurnoutStatusError
	}
	return info, nil
}

// DecodeLocoInfo 变长 14..21 字节，校验字节为最后一个字节
//
//	DB0-1 地址（大端，高两位为长地址标记）
//	DB2   0000BKKK  B=忙 KKK=速度级
//	DB3   RVVVVVVV  R=方向 V=速度
//	DB4   0DSLFGHJ  D=双牵引 S=智能搜索 L=F0 F..J=F4..F1
//	DB5   F5..F12，DB6 F13..F20，DB7 F21..F28
func DecodeLocoInfo(rec Record) (LocoInfo, error) {
	const msg = "LAN_X_LOCO_INFO"
	if n := len(rec); n < minSizeLocoInfo || n > maxSizeLocoInfo {
		return LocoInfo{}, decodeErr(msg, ErrBadLength, "got %d bytes, want %d..%d", n, minSizeLocoInfo, maxSizeLocoInfo)
	}
	if err := checkDeclaredHeader(rec, msg, HeaderXBus); err != nil {
		return LocoInfo{}, err
	}
	if err := checkXBusBody(rec, msg, XHeaderLocoInfo); err != nil {
		return LocoInfo{}, err
	}

	db := rec[recordHeaderLen+1:]
	info := LocoInfo{
		Address:        int(binary.BigEndian.Uint16(db[0:2]) & 0x3FFF),
		Busy:           db[2]&0x08 != 0,
		Speed:          int(db[3] & 0x7F),
		DoubleTraction: db[4]&0x40 != 0,
		SmartSearch:    db[4]&0x20 != 0,
	}
	switch db[2] & 0x07 {
	case 0:
		info.SpeedSteps = 14
	case 2:
		info.SpeedSteps = 18
	default:
		info.SpeedSteps = 128
	}
	if db[3]&0x80 != 0 {
		info.Direction = DirectionForward
	}

	info.Functions[0] = bit(db[4], 4)
	for i := 0; i < 4; i++ {
		info.Functions[1+i] = bit(db[4], uint(i))
	}
	for i := 0; i < 8; i++ {
		info.Functions[5+i] = bit(db[5], uint(i))
		info.Functions[13+i] = bit(db[6], uint(i))
		info.Functions[21+i] = bit(db[7], uint(i))
	}
	return info, nil
}
