package outbound

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taoyao-code/z21-gateway/internal/protocol/z21"
)

func TestCommandPriority(t *testing.T) {
	tests := []struct {
		name     string
		cmd      z21.Command
		expected int
	}{
		{"全局急停=紧急优先级", z21.SetStop{}, PriorityEmergency},
		{"关闭轨道电源=紧急优先级", z21.SetTrackPowerOff{}, PriorityEmergency},
		{"机车急停=紧急优先级", z21.SetLocoDrive{Address: 3, Stop: z21.StopEmergency}, PriorityEmergency},
		{"机车驾驶=高优先级", z21.SetLocoDrive{Address: 3, Speed: 10}, PriorityHigh},
		{"扳道岔=高优先级", z21.SetTurnout{Address: 1}, PriorityHigh},
		{"机车功能=高优先级", z21.SetLocoFunction{Address: 3}, PriorityHigh},
		{"查询状态=普通优先级", z21.GetStatus{}, PriorityNormal},
		{"查询机车=普通优先级", z21.GetLocoInfo{Address: 3}, PriorityNormal},
		{"订阅广播=普通优先级", z21.SetBroadcastFlags{}, PriorityNormal},
		{"注销=低优先级", z21.Logoff{}, PriorityLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CommandPriority(tt.cmd), "指令 %s 的优先级", tt.cmd.Name())
		})
	}
}
