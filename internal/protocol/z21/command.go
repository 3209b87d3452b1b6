package z21

import (
	"fmt"
	"strings"
)

// Direction 机车行驶方向
type Direction uint8

const (
	DirectionBackward Direction = iota
	DirectionForward
)

func (d Direction) String() string {
	switch d {
	case DirectionForward:
		return "forward"
	case DirectionBackward:
		return "backward"
	default:
		return fmt.Sprintf("direction(%d)", uint8(d))
	}
}

func (d Direction) valid() bool { return d <= DirectionForward }

func (d Direction) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

func (d *Direction) UnmarshalText(b []byte) error {
	switch strings.ToLower(string(b)) {
	case "forward":
		*d = DirectionForward
	case "backward":
		*d = DirectionBackward
	default:
		return fmt.Errorf("%w: unknown direction %q", ErrInvalidArgument, string(b))
	}
	return nil
}

// StopMode 驾驶指令附带的停车方式
type StopMode uint8

const (
	StopNone StopMode = iota
	StopNormal
	StopEmergency
)

func (s StopMode) String() string {
	switch s {
	case StopNone:
		return "none"
	case StopNormal:
		return "normal"
	case StopEmergency:
		return "emergency"
	default:
		return fmt.Sprintf("stop(%d)", uint8(s))
	}
}

func (s StopMode) valid() bool { return s <= StopEmergency }

func (s StopMode) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *StopMode) UnmarshalText(b []byte) error {
	switch strings.ToLower(string(b)) {
	case "", "none":
		*s = StopNone
	case "normal":
		*s = StopNormal
	case "emergency":
		*s = StopEmergency
	default:
		return fmt.Errorf("%w: unknown stop mode %q", ErrInvalidArgument, string(b))
	}
	return nil
}

// FunctionMode 机车功能开关方式，数值即 DB3 高两位 TT
type FunctionMode uint8

const (
	FunctionOff    FunctionMode = 0b00
	FunctionOn     FunctionMode = 0b01
	FunctionToggle FunctionMode = 0b10
)

func (m FunctionMode) String() string {
	switch m {
	case FunctionOff:
		return "off"
	case FunctionOn:
		return "on"
	case FunctionToggle:
		return "switch"
	default:
		return fmt.Sprintf("function_mode(%d)", uint8(m))
	}
}

func (m FunctionMode) valid() bool { return m <= FunctionToggle }

func (m FunctionMode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (m *FunctionMode) UnmarshalText(b []byte) error {
	switch strings.ToLower(string(b)) {
	case "off":
		*m = FunctionOff
	case "on":
		*m = FunctionOn
	case "switch", "toggle":
		*m = FunctionToggle
	default:
		return fmt.Errorf("%w: unknown function mode %q", ErrInvalidArgument, string(b))
	}
	return nil
}

// TurnoutPosition 道岔目标位置，数值即 DB2 最低位 P
type TurnoutPosition uint8

const (
	TurnoutBranched TurnoutPosition = 0
	TurnoutStraight TurnoutPosition = 1
)

func (p TurnoutPosition) String() string {
	switch p {
	case TurnoutBranched:
		return "branched"
	case TurnoutStraight:
		return "straight"
	default:
		return fmt.Sprintf("position(%d)", uint8(p))
	}
}

func (p TurnoutPosition) valid() bool { return p <= TurnoutStraight }

func (p TurnoutPosition) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *TurnoutPosition) UnmarshalText(b []byte) error {
	switch strings.ToLower(string(b)) {
	case "branched":
		*p = TurnoutBranched
	case "straight":
		*p = TurnoutStraight
	default:
		return fmt.Errorf("%w: unknown turnout position %q", ErrInvalidArgument, string(b))
	}
	return nil
}

// Command 下行指令；Encode 在参数越界时返回 *ArgumentError，不会产生残缺报文
type Command interface {
	Name() string
	Encode() ([]byte, error)
}

// 取值范围
const (
	MinLocoAddress    = 1
	MaxLocoAddress    = 9999
	MaxLocoSpeed      = 126
	MaxLocoFunction   = 63
	MinTurnoutAddress = 1
	MaxTurnoutAddress = 255
	MinFeedbackGroup  = 1
	MaxFeedbackGroup  = 2
)

// DefaultBroadcastFlags 自动驾驶所需订阅：驾驶/道岔 + 系统状态 + 全部机车信息
const DefaultBroadcastFlags uint32 = 0x00010101

type (
	GetSerialNumber    struct{}
	Logoff             struct{}
	GetVersion         struct{}
	GetStatus          struct{}
	SetTrackPowerOff   struct{}
	SetTrackPowerOn    struct{}
	SetStop            struct{}
	GetFirmwareVersion struct{}
	SetBroadcastFlags  struct{}
	GetBroadcastFlags  struct{}
	GetSystemState     struct{}
	GetHwInfo          struct{}
	GetCode            struct{}
)

// GetLocoInfo 查询机车状态
type GetLocoInfo struct {
	Address int `json:"address"`
}

// SetLocoDrive 机车驾驶（固定 128 级速度）
type SetLocoDrive struct {
	Address   int       `json:"address"`
	Direction Direction `json:"direction"`
	Speed     int       `json:"speed"`
	Stop      StopMode  `json:"stop"`
}

// SetLocoFunction 机车功能开关
type SetLocoFunction struct {
	Address  int          `json:"address"`
	Function int          `json:"function"`
	Mode     FunctionMode `json:"mode"`
}

// GetTurnoutInfo 查询道岔位置
type GetTurnoutInfo struct {
	Address int `json:"address"`
}

// SetTurnout 扳动道岔
type SetTurnout struct {
	Address  int             `json:"address"`
	Position TurnoutPosition `json:"position"`
}

// GetFeedbackGroup 查询 R-Bus 反馈组
type GetFeedbackGroup struct {
	Group int `json:"group"`
}

func (GetSerialNumber) Name() string    { return "LAN_GET_SERIAL_NUMBER" }
func (Logoff) Name() string             { return "LAN_LOGOFF" }
func (GetVersion) Name() string         { return "LAN_X_GET_VERSION" }
func (GetStatus) Name() string          { return "LAN_X_GET_STATUS" }
func (SetTrackPowerOff) Name() string   { return "LAN_X_SET_TRACK_POWER_OFF" }
func (SetTrackPowerOn) Name() string    { return "LAN_X_SET_TRACK_POWER_ON" }
func (SetStop) Name() string            { return "LAN_X_SET_STOP" }
func (GetFirmwareVersion) Name() string { return "LAN_X_GET_FIRMWARE_VERSION" }
func (SetBroadcastFlags) Name() string  { return "LAN_SET_BROADCASTFLAGS" }
func (GetBroadcastFlags) Name() string  { return "LAN_GET_BROADCASTFLAGS" }
func (GetSystemState) Name() string     { return "LAN_SYSTEMSTATE_GETDATA" }
func (GetHwInfo) Name() string          { return "LAN_GET_HWINFO" }
func (GetCode) Name() string            { return "LAN_GET_CODE" }
func (GetLocoInfo) Name() string        { return "LAN_X_GET_LOCO_INFO" }
func (SetLocoDrive) Name() string       { return "LAN_X_SET_LOCO_DRIVE" }
func (SetLocoFunction) Name() string    { return "LAN_X_SET_LOCO_FUNCTION" }
func (GetTurnoutInfo) Name() string     { return "LAN_X_GET_TURNOUT_INFO" }
func (SetTurnout) Name() string         { return "LAN_X_SET_TURNOUT" }
func (GetFeedbackGroup) Name() string   { return "LAN_RMBUS_GETDATA" }
