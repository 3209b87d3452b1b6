package z21

import (
	"errors"
	"fmt"
)

var (
	ErrBadLength       = errors.New("z21: bad length")
	ErrBadHeader       = errors.New("z21: bad header")
	ErrBadXHeader      = errors.New("z21: bad x-header")
	ErrBadChecksum     = errors.New("z21: bad checksum")
	ErrBadPayload      = errors.New("z21: bad payload")
	ErrTruncated       = errors.New("z21: truncated datagram")
	ErrInvalidArgument = errors.New("z21: invalid argument")
)

// DecodeError 单条记录未通过长度/头/xHeader/校验检查
type DecodeError struct {
	Message string // 期望解析的报文，如 LAN_X_TURNOUT_INFO
	Err     error  // ErrBadLength | ErrBadHeader | ErrBadXHeader | ErrBadChecksum | ErrBadPayload
	Detail  string
}

func (e *DecodeError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("decode %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("decode %s: %v (%s)", e.Message, e.Err, e.Detail)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func decodeErr(msg string, err error, format string, args ...any) error {
	return &DecodeError{Message: msg, Err: err, Detail: fmt.Sprintf(format, args...)}
}

// ExtractionError 记录声明长度超出数据报剩余字节，剩余部分不再切分
type ExtractionError struct {
	Offset    int // 出错记录在数据报中的起始位置
	Declared  int
	Remaining int
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract record at offset %d: declared length %d, %d bytes remaining", e.Offset, e.Declared, e.Remaining)
}

func (e *ExtractionError) Unwrap() error { return ErrTruncated }

// ArgumentError 编码参数超出取值范围
type ArgumentError struct {
	Command string
	Field   string
	Value   int
	Reason  string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("%s: invalid %s %d: %s", e.Command, e.Field, e.Value, e.Reason)
}

func (e *ArgumentError) Unwrap() error { return ErrInvalidArgument }

func argErr(cmd, field string, value int, reason string) error {
	return &ArgumentError{Command: cmd, Field: field, Value: value, Reason: reason}
}
