package main

import (
	"bytes"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taoyao-code/z21-gateway/internal/protocol/z21"
)

func TestSendDryRun(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"序列号", []string{"serial"}, "LAN_GET_SERIAL_NUMBER 04001000"},
		{"轨道上电", []string{"power-on"}, "LAN_X_SET_TRACK_POWER_ON 070040002181a0"},
		{"驾驶", []string{"drive", "3", "10"}, "LAN_X_SET_LOCO_DRIVE 0a004000e41300038b7f"},
		{"功能", []string{"function", "3", "5"}, "LAN_X_SET_LOCO_FUNCTION 0a004000e4f80003455a"},
		{"道岔", []string{"turnout", "5", "straight"}, "LAN_X_SET_TURNOUT 09004000530004a9fe"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"send", "--dry-run"}, tt.args...)
			out, err := execute(t, args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, strings.TrimSpace(out))
		})
	}
}

func TestSendInvalidArgs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args []string
	}{
		{"速度越界", []string{"drive", "3", "127"}},
		{"方向未知", []string{"drive", "3", "10", "--dir", "up"}},
		{"地址非数字", []string{"loco-info", "x"}},
		{"道岔位置未知", []string{"turnout", "5", "left"}},
		{"反馈组越界", []string{"feedback", "3"}},
		{"功能模式未知", []string{"function", "3", "1", "--mode", "blink"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"send", "--dry-run"}, tt.args...)
			_, err := execute(t, args...)
			require.Error(t, err)
			assert.Equal(t, exitUsage, exitCode(err))
		})
	}
}

func TestSendLoopback(t *testing.T) {
	station, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	defer station.Close()

	request, _ := z21.GetSerialNumber{}.Encode()
	reply := []byte{0x08, 0x00, 0x10, 0x00, 0x40, 0xE2, 0x01, 0x00}
	logoff, _ := z21.Logoff{}.Encode()

	received := make(chan []byte, 4)
	go func() {
		buf := make([]byte, z21.MaxDatagramSize)
		for {
			_ = station.SetReadDeadline(time.Now().Add(3 * time.Second))
			n, from, err := station.ReadFromUDP(buf)
			if err != nil {
				return
			}
			frame := append([]byte(nil), buf[:n]...)
			received <- frame
			if bytes.Equal(frame, request) {
				_, _ = station.WriteToUDP(reply, from)
			}
		}
	}()

	out, err := execute(t, "--device", station.LocalAddr().String(), "--local", "127.0.0.1:0",
		"-t", "300ms", "send", "serial")
	require.NoError(t, err)
	assert.Contains(t, out, "LAN_GET_SERIAL_NUMBER")
	assert.Contains(t, out, `"serial":123456`)

	assert.Equal(t, request, <-received)
	select {
	case frame := <-received:
		assert.Equal(t, logoff, frame)
	case <-time.After(2 * time.Second):
		t.Fatal("logoff not received")
	}
}
