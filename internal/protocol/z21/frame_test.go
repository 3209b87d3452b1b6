package z21

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract(t *testing.T) {
	t.Run("两条记录按顺序切出", func(t *testing.T) {
		recs, err := Extract([]byte{0x04, 0x00, 0x10, 0x00, 0x04, 0x00, 0x30, 0x00})
		require.NoError(t, err)
		require.Len(t, recs, 2)
		assert.Equal(t, Record{0x04, 0x00, 0x10, 0x00}, recs[0])
		assert.Equal(t, Record{0x04, 0x00, 0x30, 0x00}, recs[1])
	})

	t.Run("空数据报", func(t *testing.T) {
		recs, err := Extract(nil)
		require.NoError(t, err)
		assert.Empty(t, recs)
	})

	t.Run("声明长度超出剩余字节", func(t *testing.T) {
		recs, err := Extract([]byte{0x05, 0x00, 0x10})
		require.Error(t, err)
		assert.Empty(t, recs)

		var ee *ExtractionError
		require.True(t, errors.As(err, &ee))
		assert.Equal(t, 0, ee.Offset)
		assert.Equal(t, 5, ee.Declared)
		assert.Equal(t, 3, ee.Remaining)
		assert.ErrorIs(t, err, ErrTruncated)
	})

	t.Run("截断前的记录仍然返回", func(t *testing.T) {
		recs, err := Extract([]byte{0x04, 0x00, 0x10, 0x00, 0x08, 0x00, 0x10})
		require.Error(t, err)
		require.Len(t, recs, 1)
		assert.Equal(t, Record{0x04, 0x00, 0x10, 0x00}, recs[0])

		var ee *ExtractionError
		require.ErrorAs(t, err, &ee)
		assert.Equal(t, 4, ee.Offset)
	})

	t.Run("零长度记录", func(t *testing.T) {
		recs, err := Extract([]byte{0x00, 0x00, 0x10, 0x00})
		assert.Empty(t, recs)
		assert.ErrorIs(t, err, ErrTruncated)
	})

	t.Run("重复调用结果一致且不共享底层数组", func(t *testing.T) {
		in := []byte{0x04, 0x00, 0x30, 0x00}
		a, err := Extract(in)
		require.NoError(t, err)
		b, err := Extract(in)
		require.NoError(t, err)
		assert.Equal(t, a, b)

		in[2] = 0xFF
		assert.Equal(t, byte(0x30), a[0][2])
	})
}

func TestRecordAccessors(t *testing.T) {
	rec := Record{0x07, 0x00, 0x40, 0x00, 0x61, 0x01, 0x60}
	assert.Equal(t, 7, rec.DeclaredLen())

	h, ok := rec.Header()
	require.True(t, ok)
	assert.Equal(t, HeaderXBus, h)

	xh, ok := rec.XHeader()
	require.True(t, ok)
	assert.Equal(t, XHeaderBroadcast, xh)

	assert.Equal(t, []byte{0x61, 0x01, 0x60}, rec.Payload())
	assert.Equal(t, "07004000610160", rec.String())

	short := Record{0x02}
	assert.Equal(t, -1, short.DeclaredLen())
	_, ok = short.Header()
	assert.False(t, ok)
	assert.Nil(t, short.Payload())
}
