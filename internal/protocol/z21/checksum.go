package z21

// XOR 计算 X-Bus 校验字节：对 xHeader 与全部数据字节逐一异或
func XOR(data []byte) byte {
	var x byte
	for _, b := range data {
		x ^= b
	}
	return x
}

// VerifyXOR 校验 X-Bus 子帧（xHeader + 数据 + 校验字节）
// 最后一个字节为校验字节
func VerifyXOR(sub []byte) error {
	if len(sub) < 2 {
		return ErrBadLength
	}
	last := len(sub) - 1
	if sub[last] != XOR(sub[:last]) {
		return ErrBadChecksum
	}
	return nil
}
