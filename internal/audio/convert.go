package audio

import "encoding/binary"

// 16-bit PCM 的量化刻度。解码统一除以 32768，编码时负半轴乘 32768、非负半轴乘 32767，
// 负满幅恰好对应 -1.0，正满幅略小于 +1.0。
const (
	negScale = 32768.0
	posScale = 32767.0
)

// Int16ToFloat32 将 PCM int16 样本转换为 [-1.0, 1.0) 范围的 float32。
func Int16ToFloat32(in []int16) []float32 {
	out := make([]float32, len(in))
	for i, s := range in {
		out[i] = float32(s) / negScale
	}
	return out
}

// Float32ToInt16 将 float32 样本转换为 PCM int16，先钳位到 [-1.0, 1.0]，再向零截断。
func Float32ToInt16(in []float32) []int16 {
	out := make([]int16, len(in))
	for i, s := range in {
		out[i] = floatToPCM(s)
	}
	return out
}

func floatToPCM(s float32) int16 {
	v := float64(s)
	if v > 1.0 {
		v = 1.0
	} else if v < -1.0 {
		v = -1.0
	}
	if v < 0 {
		return int16(v * negScale)
	}
	return int16(v * posScale)
}

// BytesToInt16 将小端字节切片转换为 int16 样本，末尾不足 2 字节的部分被丢弃。
func BytesToInt16(b []byte) []int16 {
	n := len(b) / 2
	out := make([]int16, n)
	for i := 0; i < n; i++ {
		out[i] = int16(binary.LittleEndian.Uint16(b[2*i:]))
	}
	return out
}

// Int16ToBytes 将 int16 样本转换为小端字节切片。
func Int16ToBytes(in []int16) []byte {
	out := make([]byte, len(in)*2)
	for i, s := range in {
		binary.LittleEndian.PutUint16(out[2*i:], uint16(s))
	}
	return out
}

// BytesToFloat32 便捷函数：将原始 PCM 字节直接转换为 float32。
func BytesToFloat32(b []byte) []float32 {
	return Int16ToFloat32(BytesToInt16(b))
}

// Float32ToBytes 便捷函数：将 float32 样本直接转换为原始 PCM 字节。
func Float32ToBytes(in []float32) []byte {
	return Int16ToBytes(Float32ToInt16(in))
}

// EncodePCM16 把样本写入 dst（小端 16-bit），返回写入的样本数，受 len(dst)/2 限制。
func EncodePCM16(dst []byte, samples []float32) int {
	n := len(dst) / 2
	if n > len(samples) {
		n = len(samples)
	}
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint16(dst[2*i:], uint16(floatToPCM(samples[i])))
	}
	return n
}

// StereoBytesToMono 将交织的双声道 16-bit LE PCM 混合为单声道 float32，不完整的尾帧被丢弃。
func StereoBytesToMono(b []byte) []float32 {
	const bytesPerFrame = 4
	n := len(b) / bytesPerFrame
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		off := i * bytesPerFrame
		left := int16(binary.LittleEndian.Uint16(b[off:]))
		right := int16(binary.LittleEndian.Uint16(b[off+2:]))
		out[i] = (float32(left) + float32(right)) / 2 / negScale
	}
	return out
}
