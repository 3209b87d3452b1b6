package z21

import "fmt"

// Event 解码得到的上行事件
type Event interface {
	EventName() string
	isEvent()
}

// SerialNumber LAN_GET_SERIAL_NUMBER 应答
type SerialNumber struct {
	Serial uint32 `json:"serial"`
}

// FeatureScope LAN_GET_CODE 应答
type FeatureScope struct {
	Code byte   `json:"code"`
	Name string `json:"name"`
}

// HardwareInfo LAN_GET_HWINFO 应答
type HardwareInfo struct {
	HardwareType  uint32 `json:"hardware_type"`
	Name          string `json:"name"`
	FirmwareMajor int    `json:"firmware_major"`
	FirmwareMinor int    `json:"firmware_minor"`
}

// XBusVersion LAN_X_GET_VERSION 应答；版本号按 BCD 直接拆成两位数字
type XBusVersion struct {
	Major     uint8  `json:"major"`
	Minor     uint8  `json:"minor"`
	StationID byte   `json:"station_id"`
	Station   string `json:"station"`
}

func (v XBusVersion) Version() string { return fmt.Sprintf("%d.%d", v.Major, v.Minor) }

// BroadcastStatus 状态类型
const (
	StatusTrackPowerOff   = "track-power-off"
	StatusTrackPowerOn    = "track-power-on"
	StatusProgrammingMode = "programming-mode"
	StatusShortCircuit    = "short-circuit"
	StatusUnknownCommand  = "unknown-command"
	StatusUnknown         = "unknown"
)

// BroadcastStatus LAN_X_BC_* 广播（0x61）
type BroadcastStatus struct {
	Code   byte   `json:"code"`
	Status string `json:"status"`
}

// StatusChanged LAN_X_STATUS_CHANGED 应答
type StatusChanged struct {
	Raw                   byte `json:"raw"`
	EmergencyStop         bool `json:"emergency_stop"`
	TrackVoltageOff       bool `json:"track_voltage_off"`
	ShortCircuit          bool `json:"short_circuit"`
	ProgrammingModeActive bool `json:"programming_mode_active"`
}

// Condition 返回最高优先级的状态名，无状态位时为 "normal"
func (s StatusChanged) Condition() string {
	switch {
	case s.EmergencyStop:
		return "emergency-stop"
	case s.TrackVoltageOff:
		return "track-voltage-off"
	case s.ShortCircuit:
		return "short-circuit"
	case s.ProgrammingModeActive:
		return "programming-mode-active"
	default:
		return "normal"
	}
}

// Stopped LAN_X_BC_STOPPED 广播
type Stopped struct{}

// FirmwareVersion LAN_X_GET_FIRMWARE_VERSION 应答
type FirmwareVersion struct {
	Major int `json:"major"`
	Minor int `json:"minor"`
}

func (v FirmwareVersion) String() string { return fmt.Sprintf("%d.%02d", v.Major, v.Minor) }

// BroadcastFlags LAN_GET_BROADCASTFLAGS 应答
type BroadcastFlags struct {
	Flags uint32 `json:"flags"`
}

// CentralState LAN_SYSTEMSTATE 中 CentralState 字节
type CentralState struct {
	EmergencyStop         bool `json:"emergency_stop"`
	TrackVoltageOff       bool `json:"track_voltage_off"`
	ShortCircuit          bool `json:"short_circuit"`
	ProgrammingModeActive bool `json:"programming_mode_active"`
}

// CentralStateEx LAN_SYSTEMSTATE 中 CentralStateEx 字节
type CentralStateEx struct {
	HighTemperature      bool `json:"high_temperature"`
	PowerLost            bool `json:"power_lost"`
	ShortCircuitExternal bool `json:"short_circuit_external"`
	ShortCircuitInternal bool `json:"short_circuit_internal"`
}

// SystemState LAN_SYSTEMSTATE_DATACHANGED；电流 mA，温度 °C，电压 mV
type SystemState struct {
	MainCurrent         int16          `json:"main_current"`
	ProgCurrent         int16          `json:"prog_current"`
	FilteredMainCurrent int16          `json:"filtered_main_current"`
	Temperature         int16          `json:"temperature"`
	SupplyVoltage       uint16         `json:"supply_voltage"`
	VCCVoltage          uint16         `json:"vcc_voltage"`
	Central             CentralState   `json:"central"`
	CentralEx           CentralStateEx `json:"central_ex"`
}

// LocoFunctionCount 解码的功能数量 F0..F28
const LocoFunctionCount = 29

// LocoInfo LAN_X_LOCO_INFO
type LocoInfo struct {
	Address        int                     `json:"address"`
	Busy           bool                    `json:"busy"`
	SpeedSteps     int                     `json:"speed_steps"`
	Direction      Direction               `json:"direction"`
	Speed          int                     `json:"speed"`
	DoubleTraction bool                    `json:"double_traction"`
	SmartSearch    bool                    `json:"smart_search"`
	Functions      [LocoFunctionCount]bool `json:"functions"`
}

// TurnoutStatus 道岔当前状态
type TurnoutStatus string

const (
	TurnoutStatusNotSet   TurnoutStatus = "not-set"
	TurnoutStatusBranched TurnoutStatus = "branched"
	TurnoutStatusStraight TurnoutStatus = "straight"
	TurnoutStatusError    TurnoutStatus = "error"
)

// TurnoutInfo LAN_X_TURNOUT_INFO
type TurnoutInfo struct {
	Address int           `json:"address"`
	Status  TurnoutStatus `json:"status"`
}

// FeedbackChannels 每个反馈模块 8 路
const FeedbackChannels = 8

// FeedbackGroup LAN_RMBUS_DATACHANGED；Modules[i][j] 为模块 i+1 第 j+1 路
type FeedbackGroup struct {
	Group   int                      `json:"group"`
	Modules [][FeedbackChannels]bool `json:"modules"`
}

// Occupied 查询模块/通道占用；超出范围返回 false
func (g FeedbackGroup) Occupied(module, channel int) bool {
	if module < 1 || module > len(g.Modules) || channel < 1 || channel > FeedbackChannels {
		return false
	}
	return g.Modules[module-1][channel-1]
}

// UnrecognizedCode 结构合法但没有对应解码器的记录
type UnrecognizedCode struct {
	Header     uint16 `json:"header"`
	XHeader    byte   `json:"x_header,omitempty"`
	HasXHeader bool   `json:"has_x_header"`
	Raw        string `json:"raw"`
}

// Empty 长度为 0 的记录
type Empty struct{}

func (SerialNumber) EventName() string     { return "LAN_GET_SERIAL_NUMBER" }
func (FeatureScope) EventName() string     { return "LAN_GET_CODE" }
func (HardwareInfo) EventName() string     { return "LAN_GET_HWINFO" }
func (XBusVersion) EventName() string      { return "LAN_X_GET_VERSION" }
func (BroadcastStatus) EventName() string  { return "LAN_X_BC" }
func (StatusChanged) EventName() string    { return "LAN_X_STATUS_CHANGED" }
func (Stopped) EventName() string          { return "LAN_X_BC_STOPPED" }
func (FirmwareVersion) EventName() string  { return "LAN_X_GET_FIRMWARE_VERSION" }
func (BroadcastFlags) EventName() string   { return "LAN_GET_BROADCASTFLAGS" }
func (SystemState) EventName() string      { return "LAN_SYSTEMSTATE_DATACHANGED" }
func (LocoInfo) EventName() string         { return "LAN_X_LOCO_INFO" }
func (TurnoutInfo) EventName() string      { return "LAN_X_TURNOUT_INFO" }
func (FeedbackGroup) EventName() string    { return "LAN_RMBUS_DATACHANGED" }
func (UnrecognizedCode) EventName() string { return "UNRECOGNIZED" }
func (Empty) EventName() string            { return "EMPTY" }

func (SerialNumber) isEvent()     {}
func (FeatureScope) isEvent()     {}
func (HardwareInfo) isEvent()     {}
func (XBusVersion) isEvent()      {}
func (BroadcastStatus) isEvent()  {}
func (StatusChanged) isEvent()    {}
func (Stopped) isEvent()          {}
func (FirmwareVersion) isEvent()  {}
func (BroadcastFlags) isEvent()   {}
func (SystemState) isEvent()      {}
func (LocoInfo) isEvent()         {}
func (TurnoutInfo) isEvent()      {}
func (FeedbackGroup) isEvent()    {}
func (UnrecognizedCode) isEvent() {}
func (Empty) isEvent()            {}

// 型号/功能范围名称
const (
	StationZ21      byte = 0x12
	StationZ21Small byte = 0x13
)

func stationName(id byte) string {
	switch id {
	case StationZ21:
		return "Z21"
	case StationZ21Small:
		return "z21"
	default:
		return "unknown"
	}
}

func hardwareName(code uint32) string {
	switch code {
	case 0x00000200:
		return "D_HWT_Z21_OLD"
	case 0x00000201:
		return "D_HWT_Z21_NEW"
	case 0x00000202:
		return "D_HWT_Z21_SMARTRAIL"
	case 0x00000203:
		return "D_HWT_z21_SMALL"
	case 0x00000204:
		return "D_HWT_z21_START"
	default:
		return "unknown"
	}
}

func featureScopeName(code byte) string {
	switch code {
	case 0x00:
		return "Z21_NO_LOCK"
	case 0x01:
		return "Z21_START_LOCKED"
	case 0x02:
		return "Z21_START_UNLOCKED"
	default:
		return "unknown"
	}
}

func broadcastStatusName(db0 byte) string {
	switch db0 {
	case 0x00:
		return StatusTrackPowerOff
	case 0x01:
		return StatusTrackPowerOn
	case 0x02:
		return StatusProgrammingMode
	case 0x08:
		return StatusShortCircuit
	case 0x82:
		return StatusUnknownCommand
	default:
		return StatusUnknown
	}
}
