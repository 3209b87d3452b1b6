package outbound

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taoyao-code/z21-gateway/internal/protocol/z21"
)

func req(id string, prio int) *Request {
	return &Request{ID: id, Command: z21.GetStatus{}, Priority: prio}
}

func TestQueue_Order(t *testing.T) {
	q := NewQueue(10)
	for _, r := range []*Request{
		req("n1", PriorityNormal),
		req("l1", PriorityLow),
		req("e1", PriorityEmergency),
		req("n2", PriorityNormal),
		req("h1", PriorityHigh),
	} {
		_, err := q.Push(r)
		require.NoError(t, err)
	}

	var got []string
	for r := q.Pop(); r != nil; r = q.Pop() {
		got = append(got, r.ID)
	}
	assert.Equal(t, []string{"e1", "h1", "n1", "n2", "l1"}, got)
}

func TestQueue_SubscribeBeforeQueries(t *testing.T) {
	cmds := []z21.Command{
		z21.SetBroadcastFlags{},
		z21.GetSerialNumber{},
		z21.GetStatus{},
		z21.GetVersion{},
	}
	q := NewQueue(10)
	for _, cmd := range cmds {
		_, err := q.Push(&Request{ID: cmd.Name(), Command: cmd, Priority: CommandPriority(cmd)})
		require.NoError(t, err)
	}

	first := q.Pop()
	require.NotNil(t, first)
	assert.Equal(t, z21.SetBroadcastFlags{}.Name(), first.Command.Name(), "订阅须先于状态查询发出")
}

func TestQueue_Full(t *testing.T) {
	q := NewQueue(2)
	_, err := q.Push(req("n1", PriorityNormal))
	require.NoError(t, err)
	_, err = q.Push(req("l1", PriorityLow))
	require.NoError(t, err)

	_, err = q.Push(req("h1", PriorityHigh))
	assert.ErrorIs(t, err, ErrQueueFull)

	// 紧急指令挤掉最低优先级
	evicted, err := q.Push(req("e1", PriorityEmergency))
	require.NoError(t, err)
	require.NotNil(t, evicted)
	assert.Equal(t, "l1", evicted.ID)
	assert.Equal(t, 2, q.Len())

	_, err = q.Push(req("e2", PriorityEmergency))
	require.NoError(t, err)
	_, err = q.Push(req("e3", PriorityEmergency))
	assert.ErrorIs(t, err, ErrQueueFull)
}

func TestQueue_Close(t *testing.T) {
	q := NewQueue(4)
	_, _ = q.Push(req("a", PriorityNormal))
	rest := q.Close()
	assert.Len(t, rest, 1)
	_, err := q.Push(req("b", PriorityNormal))
	assert.ErrorIs(t, err, ErrStopped)
}
