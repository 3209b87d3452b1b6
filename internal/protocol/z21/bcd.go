package z21

// SplitBCD 将一个字节拆分为高/低两个 4 位数字（BCD）
// 例：0x36 -> (3, 6)
func SplitBCD(b byte) (hi, lo uint8) {
	return b >> 4, b & 0x0F
}

// BCDValue 按十进制重组单个 BCD 字节：10*高位 + 低位
func BCDValue(b byte) int {
	hi, lo := SplitBCD(b)
	return 10*int(hi) + int(lo)
}

// bit 判断 b 的第 n 位是否置位
func bit(b byte, n uint) bool {
	return b&(1<<n) != 0
}
