package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/taoyao-code/z21-gateway/internal/logging"
	"github.com/taoyao-code/z21-gateway/internal/protocol/z21"
	"github.com/taoyao-code/z21-gateway/internal/state"
)

// CommandSubmitter 下行指令入口
type CommandSubmitter interface {
	SubmitWait(ctx context.Context, cmd z21.Command) (string, error)
}

// StateReader 布局状态查询
type StateReader interface {
	Station() state.Station
	Loco(addr int) (state.LocoState, bool)
	Turnout(addr int) (state.TurnoutState, bool)
	Feedback(group int) (state.FeedbackState, bool)
	Snapshot(now time.Time) state.Snapshot
}

// StateMirror 外部状态镜像（Redis），本地尚无状态时回退查询
type StateMirror interface {
	LocoState(ctx context.Context, addr int) (z21.LocoInfo, bool, error)
	TurnoutState(ctx context.Context, addr int) (z21.TurnoutInfo, bool, error)
}

// ControlHandler 控制接口处理器
type ControlHandler struct {
	out         CommandSubmitter
	state       StateReader
	mirror      StateMirror
	logger      *zap.Logger
	sendTimeout time.Duration
}

// NewControlHandler 创建控制接口处理器；sendTimeout<=0 时取 3 秒
func NewControlHandler(out CommandSubmitter, st StateReader, sendTimeout time.Duration, logger *zap.Logger) *ControlHandler {
	if sendTimeout <= 0 {
		sendTimeout = 3 * time.Second
	}
	return &ControlHandler{out: out, state: st, logger: logging.OrNop(logger), sendTimeout: sendTimeout}
}

// SetMirror 设置状态镜像；网关重启后本地状态为空，可先从镜像读取
func (h *ControlHandler) SetMirror(m StateMirror) { h.mirror = m }

// DriveRequest 机车驾驶请求
type DriveRequest struct {
	Direction *z21.Direction `json:"direction" binding:"required"` // forward / backward
	Speed     int            `json:"speed" binding:"min=0"`        // 0..126
	Stop      z21.StopMode   `json:"stop"`                         // none / normal / emergency
}

// FunctionRequest 机车功能请求
type FunctionRequest struct {
	Mode *z21.FunctionMode `json:"mode" binding:"required"` // off / on / switch
}

// TurnoutRequest 道岔请求
type TurnoutRequest struct {
	Position *z21.TurnoutPosition `json:"position" binding:"required"` // straight / branched
}

// TrackOn 轨道上电
func (h *ControlHandler) TrackOn(c *gin.Context) { h.send(c, z21.SetTrackPowerOn{}) }

// TrackOff 轨道断电
func (h *ControlHandler) TrackOff(c *gin.Context) { h.send(c, z21.SetTrackPowerOff{}) }

// EmergencyStop 全部机车紧急停车，轨道保持供电
func (h *ControlHandler) EmergencyStop(c *gin.Context) { h.send(c, z21.SetStop{}) }

// Subscribe 重新设置广播订阅
func (h *ControlHandler) Subscribe(c *gin.Context) { h.send(c, z21.SetBroadcastFlags{}) }

// RefreshStation 查询指令站状态与系统状态
func (h *ControlHandler) RefreshStation(c *gin.Context) {
	h.send(c, z21.GetStatus{}, z21.GetSystemState{})
}

// Drive POST /locos/:addr/drive
func (h *ControlHandler) Drive(c *gin.Context) {
	addr, ok := intParam(c, "addr")
	if !ok {
		return
	}
	var req DriveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, http.StatusBadRequest, fmt.Sprintf("无效的请求: %v", err))
		return
	}
	h.send(c, z21.SetLocoDrive{Address: addr, Direction: *req.Direction, Speed: req.Speed, Stop: req.Stop})
}

// Function POST /locos/:addr/functions/:fn
func (h *ControlHandler) Function(c *gin.Context) {
	addr, ok := intParam(c, "addr")
	if !ok {
		return
	}
	fn, ok := intParam(c, "fn")
	if !ok {
		return
	}
	var req FunctionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, http.StatusBadRequest, fmt.Sprintf("无效的请求: %v", err))
		return
	}
	h.send(c, z21.SetLocoFunction{Address: addr, Function: fn, Mode: *req.Mode})
}

// RefreshLoco POST /locos/:addr/refresh
func (h *ControlHandler) RefreshLoco(c *gin.Context) {
	if addr, ok := intParam(c, "addr"); ok {
		h.send(c, z21.GetLocoInfo{Address: addr})
	}
}

// SetTurnout POST /turnouts/:addr
func (h *ControlHandler) SetTurnout(c *gin.Context) {
	addr, ok := intParam(c, "addr")
	if !ok {
		return
	}
	var req TurnoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, http.StatusBadRequest, fmt.Sprintf("无效的请求: %v", err))
		return
	}
	h.send(c, z21.SetTurnout{Address: addr, Position: *req.Position})
}

// RefreshTurnout POST /turnouts/:addr/refresh
func (h *ControlHandler) RefreshTurnout(c *gin.Context) {
	if addr, ok := intParam(c, "addr"); ok {
		h.send(c, z21.GetTurnoutInfo{Address: addr})
	}
}

// RefreshFeedback POST /feedback/:group/refresh
func (h *ControlHandler) RefreshFeedback(c *gin.Context) {
	if group, ok := intParam(c, "group"); ok {
		h.send(c, z21.GetFeedbackGroup{Group: group})
	}
}

// Snapshot GET /state
func (h *ControlHandler) Snapshot(c *gin.Context) {
	respondOK(c, http.StatusOK, "ok", h.state.Snapshot(time.Now()))
}

// Station GET /station
func (h *ControlHandler) Station(c *gin.Context) {
	respondOK(c, http.StatusOK, "ok", h.state.Station())
}

// Loco GET /locos/:addr
func (h *ControlHandler) Loco(c *gin.Context) {
	addr, ok := intParam(c, "addr")
	if !ok {
		return
	}
	if loco, found := h.state.Loco(addr); found {
		respondOK(c, http.StatusOK, "ok", loco)
		return
	}
	if h.mirror != nil {
		info, found, err := h.mirror.LocoState(c.Request.Context(), addr)
		if h.mirrorResult(c, found, err, state.LocoState{LocoInfo: info}) {
			return
		}
	}
	respondWithError(c, http.StatusNotFound, fmt.Sprintf("机车 %d 尚无状态", addr))
}

// Turnout GET /turnouts/:addr
func (h *ControlHandler) Turnout(c *gin.Context) {
	addr, ok := intParam(c, "addr")
	if !ok {
		return
	}
	if t, found := h.state.Turnout(addr); found {
		respondOK(c, http.StatusOK, "ok", t)
		return
	}
	if h.mirror != nil {
		info, found, err := h.mirror.TurnoutState(c.Request.Context(), addr)
		if h.mirrorResult(c, found, err, state.TurnoutState{TurnoutInfo: info}) {
			return
		}
	}
	respondWithError(c, http.StatusNotFound, fmt.Sprintf("道岔 %d 尚无状态", addr))
}

// Feedback GET /feedback/:group
func (h *ControlHandler) Feedback(c *gin.Context) {
	group, ok := intParam(c, "group")
	if !ok {
		return
	}
	if fb, found := h.state.Feedback(group); found {
		respondOK(c, http.StatusOK, "ok", fb)
		return
	}
	respondWithError(c, http.StatusNotFound, fmt.Sprintf("反馈组 %d 尚无状态", group))
}

// mirrorResult 镜像命中时写响应并返回 true；镜像故障只记日志，按未命中处理
func (h *ControlHandler) mirrorResult(c *gin.Context, found bool, err error, data any) bool {
	if err != nil {
		h.logger.Warn("state mirror read failed",
			zap.String("request_id", c.GetString("request_id")),
			zap.String("path", c.Request.URL.Path),
			zap.Error(err))
		return false
	}
	if !found {
		return false
	}
	respondOK(c, http.StatusOK, "mirror", data)
	return true
}

// send 依次提交指令并等待发出；任一失败即返回
func (h *ControlHandler) send(c *gin.Context, cmds ...z21.Command) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.sendTimeout)
	defer cancel()

	sent := make([]gin.H, 0, len(cmds))
	for _, cmd := range cmds {
		id, err := h.out.SubmitWait(ctx, cmd)
		if err != nil {
			h.logger.Warn("control command failed",
				zap.String("request_id", c.GetString("request_id")),
				zap.String("command", cmd.Name()),
				zap.Error(err))
			respondWithError(c, classifyError(err), err.Error())
			return
		}
		h.logger.Info("control command sent",
			zap.String("request_id", c.GetString("request_id")),
			zap.String("command", cmd.Name()),
			zap.String("command_id", id))
		sent = append(sent, gin.H{"command": cmd.Name(), "command_id": id})
	}
	respondOK(c, http.StatusOK, "指令已发送", gin.H{"commands": sent})
}

func intParam(c *gin.Context, name string) (int, bool) {
	v, err := strconv.Atoi(c.Param(name))
	if err != nil {
		respondWithError(c, http.StatusBadRequest, fmt.Sprintf("无效的参数 %s: %q", name, c.Param(name)))
		return 0, false
	}
	return v, true
}
