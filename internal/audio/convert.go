package audio

import (
	"math"
)

// Int16ToFloat32 将 PCM int16 样本转换为 [-1.0, 1.0] 范围的 float32。
func Int16ToFloat32(in []int16) []float32 {
	out := make([]float32, len(in))
	for i, s := range in {
		out[i] = float32(s) / math.MaxInt16
	}
	return out
}

// BytesToInt16 将小端字节切片转换为 int16 样本，末尾不足 2 字节的部分丢弃。
func BytesToInt16(b []byte) []int16 {
	n := len(b) / 2
	out := make([]int16, n)
	for i := 0; i < n; i++ {
		out[i] = int16(b[2*i]) | int16(b[2*i+1])<<8
	}
	return out
}

// StereoToMono 将交错的立体声样本（L,R,L,R...）左右取平均合成为单声道。
// 奇数长度时最后一个样本单独成帧。
func StereoToMono(in []float32) []float32 {
	out := make([]float32, (len(in)+1)/2)
	for i := range out {
		l := in[2*i]
		r := l
		if 2*i+1 < len(in) {
			r = in[2*i+1]
		}
		out[i] = (l + r) / 2
	}
	return out
}
