package z21

// Dispatch 按报文头（及 X-Bus 子报文头）将记录路由到对应解码器
// 未知报文头返回 UnrecognizedCode 事件而不是错误；空记录返回 Empty
func Dispatch(rec Record) (Event, error) {
	if len(rec) == 0 {
		return Empty{}, nil
	}
	header, ok := rec.Header()
	if !ok {
		return nil, decodeErr("record", ErrBadLength, "got %d bytes, want at least %d", len(rec), recordHeaderLen)
	}
	if d := rec.DeclaredLen(); d != len(rec) {
		return nil, decodeErr("record", ErrBadLength, "declared %d, got %d bytes", d, len(rec))
	}

	switch header {
	case HeaderSerialNumber:
		return asEvent(DecodeSerialNumber(rec))
	case HeaderGetCode:
		return asEvent(DecodeFeatureScope(rec))
	case HeaderHwInfo:
		return asEvent(DecodeHardwareInfo(rec))
	case HeaderXBus:
		return dispatchXBus(rec)
	case HeaderGetBroadcastFlags:
		return asEvent(DecodeBroadcastFlags(rec))
	case HeaderRMBusDataChanged:
		return asEvent(DecodeFeedbackGroup(rec))
	case HeaderSystemState:
		return asEvent(DecodeSystemState(rec))
	default:
		return UnrecognizedCode{Header: header, Raw: rec.String()}, nil
	}
}

func dispatchXBus(rec Record) (Event, error) {
	xh, ok := rec.XHeader()
	if !ok {
		return nil, decodeErr("LAN_X", ErrBadLength, "no x-header in %d-byte record", len(rec))
	}

	switch xh {
	case XHeaderTurnoutInfo:
		return asEvent(DecodeTurnoutInfo(rec))
	case XHeaderBroadcast:
		return asEvent(DecodeBroadcastStatus(rec))
	case XHeaderStatusChanged:
		return asEvent(DecodeStatusChanged(rec))
	case XHeaderVersion:
		return asEvent(DecodeXBusVersion(rec))
	case XHeaderStopped:
		return asEvent(DecodeStopped(rec))
	case XHeaderLocoInfo:
		return asEvent(DecodeLocoInfo(rec))
	case XHeaderFirmwareVersion:
		return asEvent(DecodeFirmwareVersion(rec))
	default:
		// 校验和覆盖 xHeader，未知 xHeader 也必须先通过校验
		if err := VerifyXOR(rec.Payload()); err != nil {
			return nil, decodeErr("LAN_X", err, "x-header 0x%02X", xh)
		}
		return UnrecognizedCode{Header: HeaderXBus, XHeader: xh, HasXHeader: true, Raw: rec.String()}, nil
	}
}

// asEvent 解码失败时不返回零值事件
func asEvent[T Event](ev T, err error) (Event, error) {
	if err != nil {
		return nil, err
	}
	return ev, nil
}

// Outcome 单条记录的分发结果，Event 与 Err 互斥
type Outcome struct {
	Record Record
	Event  Event
	Err    error
}

// DispatchAll 逐条分发并保持顺序；单条失败不影响其余记录
func DispatchAll(records []Record) []Outcome {
	out := make([]Outcome, 0, len(records))
	for _, rec := range records {
		ev, err := Dispatch(rec)
		out = append(out, Outcome{Record: rec, Event: ev, Err: err})
	}
	return out
}

// DecodeDatagram 切分并分发一个数据报
// 切分失败时仍返回已切出记录的结果，同时返回 *ExtractionError
func DecodeDatagram(payload []byte) ([]Outcome, error) {
	records, err := Extract(payload)
	return DispatchAll(records), err
}
