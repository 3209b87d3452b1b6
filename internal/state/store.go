package state

import (
	"sort"
	"sync"
	"time"

	"github.com/taoyao-code/z21-gateway/internal/protocol/z21"
)

// 轨道状态
const (
	TrackUnknown       = "unknown"
	TrackOn            = "on"
	TrackOff           = "off"
	TrackEmergencyStop = "emergency-stop"
	TrackShortCircuit  = "short-circuit"
	TrackProgramming   = "programming"
)

// Station 指令站自身信息
type Station struct {
	Serial         uint32               `json:"serial,omitempty"`
	Hardware       *z21.HardwareInfo    `json:"hardware,omitempty"`
	Firmware       *z21.FirmwareVersion `json:"firmware,omitempty"`
	XBus           *z21.XBusVersion     `json:"xbus,omitempty"`
	FeatureScope   *z21.FeatureScope    `json:"feature_scope,omitempty"`
	BroadcastFlags *uint32              `json:"broadcast_flags,omitempty"`
	Track          string               `json:"track"`
	SystemState    *z21.SystemState     `json:"system_state,omitempty"`
	LastSeen       time.Time            `json:"last_seen"`
}

// LocoState 机车最近一次 LAN_X_LOCO_INFO
type LocoState struct {
	z21.LocoInfo
	UpdatedAt time.Time `json:"updated_at"`
}

// TurnoutState 道岔最近一次 LAN_X_TURNOUT_INFO
type TurnoutState struct {
	z21.TurnoutInfo
	UpdatedAt time.Time `json:"updated_at"`
}

// FeedbackState R-Bus 反馈组
type FeedbackState struct {
	z21.FeedbackGroup
	UpdatedAt time.Time `json:"updated_at"`
}

// Snapshot 布局状态快照
type Snapshot struct {
	Station  Station         `json:"station"`
	Online   bool            `json:"online"`
	Locos    []LocoState     `json:"locos"`
	Turnouts []TurnoutState  `json:"turnouts"`
	Feedback []FeedbackState `json:"feedback"`
}

// Store 由上行事件驱动的布局状态：指令站、机车、道岔、反馈
type Store struct {
	mu       sync.RWMutex
	station  Station
	locos    map[int]LocoState
	turnouts map[int]TurnoutState
	feedback map[int]FeedbackState
	timeout  time.Duration
}

// New timeout 为判定指令站离线的静默时长
func New(timeout time.Duration) *Store {
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &Store{
		station:  Station{Track: TrackUnknown},
		locos:    make(map[int]LocoState),
		turnouts: make(map[int]TurnoutState),
		feedback: make(map[int]FeedbackState),
		timeout:  timeout,
	}
}

// Apply 合并一个上行事件；返回 false 表示事件不影响状态
func (s *Store) Apply(ev z21.Event, at time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.station.LastSeen = at
	switch e := ev.(type) {
	case z21.SerialNumber:
		s.station.Serial = e.Serial
	case z21.HardwareInfo:
		s.station.Hardware = &e
	case z21.FirmwareVersion:
		s.station.Firmware = &e
	case z21.XBusVersion:
		s.station.XBus = &e
	case z21.FeatureScope:
		s.station.FeatureScope = &e
	case z21.BroadcastFlags:
		flags := e.Flags
		s.station.BroadcastFlags = &flags
	case z21.BroadcastStatus:
		switch e.Status {
		case z21.StatusTrackPowerOn:
			s.station.Track = TrackOn
		case z21.StatusTrackPowerOff:
			s.station.Track = TrackOff
		case z21.StatusShortCircuit:
			s.station.Track = TrackShortCircuit
		case z21.StatusProgrammingMode:
			s.station.Track = TrackProgramming
		default:
			return false
		}
	case z21.Stopped:
		s.station.Track = TrackEmergencyStop
	case z21.StatusChanged:
		s.station.Track = trackFromCentral(e.EmergencyStop, e.TrackVoltageOff, e.ShortCircuit, e.ProgrammingModeActive)
	case z21.SystemState:
		s.station.SystemState = &e
		c := e.Central
		s.station.Track = trackFromCentral(c.EmergencyStop, c.TrackVoltageOff, c.ShortCircuit, c.ProgrammingModeActive)
	case z21.LocoInfo:
		s.locos[e.Address] = LocoState{LocoInfo: e, UpdatedAt: at}
	case z21.TurnoutInfo:
		s.turnouts[e.Address] = TurnoutState{TurnoutInfo: e, UpdatedAt: at}
	case z21.FeedbackGroup:
		s.feedback[e.Group] = FeedbackState{FeedbackGroup: e, UpdatedAt: at}
	default:
		return false
	}
	return true
}

func trackFromCentral(emergency, voltageOff, short, programming bool) string {
	switch {
	case short:
		return TrackShortCircuit
	case emergency:
		return TrackEmergencyStop
	case voltageOff:
		return TrackOff
	case programming:
		return TrackProgramming
	default:
		return TrackOn
	}
}

// Online 指令站在 timeout 内有过通信
func (s *Store) Online(now time.Time) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.station.LastSeen.IsZero() && now.Sub(s.station.LastSeen) <= s.timeout
}

// Station 返回指令站信息副本
func (s *Store) Station() Station {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.station
}

func (s *Store) Loco(addr int) (LocoState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.locos[addr]
	return l, ok
}

func (s *Store) Turnout(addr int) (TurnoutState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.turnouts[addr]
	return t, ok
}

func (s *Store) Feedback(group int) (FeedbackState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.feedback[group]
	return f, ok
}

// Snapshot 按地址/组号排序的完整快照
func (s *Store) Snapshot(now time.Time) Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		Station:  s.station,
		Online:   !s.station.LastSeen.IsZero() && now.Sub(s.station.LastSeen) <= s.timeout,
		Locos:    make([]LocoState, 0, len(s.locos)),
		Turnouts: make([]TurnoutState, 0, len(s.turnouts)),
		Feedback: make([]FeedbackState, 0, len(s.feedback)),
	}
	for _, l := range s.locos {
		snap.Locos = append(snap.Locos, l)
	}
	for _, t := range s.turnouts {
		snap.Turnouts = append(snap.Turnouts, t)
	}
	for _, f := range s.feedback {
		snap.Feedback = append(snap.Feedback, f)
	}
	sort.Slice(snap.Locos, func(i, j int) bool { return snap.Locos[i].Address < snap.Locos[j].Address })
	sort.Slice(snap.Turnouts, func(i, j int) bool { return snap.Turnouts[i].Address < snap.Turnouts[j].Address })
	sort.Slice(snap.Feedback, func(i, j int) bool { return snap.Feedback[i].Group < snap.Feedback[j].Group })
	return snap
}
