package outbound

import "github.com/taoyao-code/z21-gateway/internal/protocol/z21"

// 下行指令优先级
// 注意: 数值越小=优先级越高
const (
	// PriorityEmergency 紧急指令（立即执行）
	// 场景: 全局急停、关闭轨道电源
	PriorityEmergency = 1

	// PriorityHigh 高优先级指令
	// 场景: 机车驾驶、功能开关、扳道岔、开启轨道电源
	PriorityHigh = 2

	// PriorityNormal 普通优先级指令
	// 场景: 广播订阅、状态与信息查询
	PriorityNormal = 3

	// PriorityLow 低优先级指令
	// 场景: 注销
	PriorityLow = 4

	// PriorityBackground 后台任务
	// 场景: 保活
	PriorityBackground = 5
)

// CommandPriority 根据指令类型返回优先级
func CommandPriority(cmd z21.Command) int {
	switch c := cmd.(type) {
	case z21.SetStop, z21.SetTrackPowerOff:
		return PriorityEmergency
	case z21.SetLocoDrive:
		// 急停类驾驶指令与全局急停同级
		if c.Stop == z21.StopEmergency {
			return PriorityEmergency
		}
		return PriorityHigh
	case z21.SetLocoFunction, z21.SetTurnout, z21.SetTrackPowerOn:
		return PriorityHigh
	case z21.SetBroadcastFlags:
		// 与查询同级，按入队顺序先于启动查询发出
		return PriorityNormal
	case z21.Logoff:
		return PriorityLow
	default:
		return PriorityNormal
	}
}
