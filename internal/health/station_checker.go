package health

import (
	"context"
	"time"

	"github.com/taoyao-code/z21-gateway/internal/state"
)

// StationSource 由上行事件维护的指令站状态
type StationSource interface {
	Online(now time.Time) bool
	Station() state.Station
}

// StationChecker 指令站在线与轨道状态
// 尚未应答记为降级，应答后离线视为不健康；短路或急停仍可服务（可通过接口恢复），记为降级
type StationChecker struct {
	src StationSource
	now func() time.Time
}

func NewStationChecker(src StationSource) *StationChecker {
	return &StationChecker{src: src, now: time.Now}
}

func (c *StationChecker) Name() string { return "station" }

func (c *StationChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()
	st := c.src.Station()
	details := map[string]any{"track": st.Track}
	if st.Serial != 0 {
		details["serial"] = st.Serial
	}
	if !st.LastSeen.IsZero() {
		details["last_seen"] = st.LastSeen
	}

	result := CheckResult{Status: StatusHealthy, Message: "ok", Details: details}
	switch {
	case st.LastSeen.IsZero():
		result.Status, result.Message = StatusDegraded, "waiting for command station"
	case !c.src.Online(c.now()):
		result.Status, result.Message = StatusUnhealthy, "command station offline"
	case st.Track == state.TrackShortCircuit:
		result.Status, result.Message = StatusDegraded, "track short circuit"
	case st.Track == state.TrackEmergencyStop:
		result.Status, result.Message = StatusDegraded, "emergency stop active"
	}
	result.Latency = time.Since(start)
	return result
}
