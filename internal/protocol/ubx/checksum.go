package ubx

// Checksum 计算 Fletcher-8 校验对
// 两个8位累加器从0开始，对每个字节依次执行 a += x、b += a，
// 溢出按模256自然回绕。空输入返回 (0, 0)。
func Checksum(data []byte) (ckA, ckB byte) {
	for _, x := range data {
		ckA += x
		ckB += ckA
	}
	return ckA, ckB
}

// VerifyChecksum 校验数据与期望的校验对是否一致
func VerifyChecksum(data []byte, ckA, ckB byte) bool {
	a, b := Checksum(data)
	return a == ckA && b == ckB
}
