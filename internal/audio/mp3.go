package audio

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/hajimehoshi/go-mp3"
)

// go-mp3 始终输出 16-bit 小端立体声 PCM。
const bytesPerFrame = 4

// DefaultPeakBuckets 是波形默认的采样桶数量。
const DefaultPeakBuckets = 200

// newDecoder 创建解码器，损坏数据导致的 panic 转为错误。
func newDecoder(data []byte) (d *mp3.Decoder, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			d, err = nil, fmt.Errorf("[audio] MP3 数据损坏: %v", rec)
		}
	}()
	d, err = mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("[audio] 创建 MP3 解码器失败: %w", err)
	}
	return d, nil
}

// Duration 返回 MP3 数据的播放时长，只解析帧头不解码全部样本。
func Duration(data []byte) (time.Duration, error) {
	decoder, err := newDecoder(data)
	if err != nil {
		return 0, err
	}
	length := decoder.Length()
	if length < 0 || decoder.SampleRate() <= 0 {
		return 0, fmt.Errorf("[audio] 无法确定 MP3 长度")
	}
	frames := length / bytesPerFrame
	seconds := float64(frames) / float64(decoder.SampleRate())
	return time.Duration(seconds * float64(time.Second)), nil
}

// Decode 将 MP3 解码为单声道 float32 样本，返回样本与采样率。
func Decode(data []byte) (samples []float32, sampleRate int, err error) {
	decoder, err := newDecoder(data)
	if err != nil {
		return nil, 0, err
	}
	defer func() {
		if rec := recover(); rec != nil {
			samples, sampleRate, err = nil, 0, fmt.Errorf("[audio] MP3 数据损坏: %v", rec)
		}
	}()
	pcm, err := io.ReadAll(decoder)
	if err != nil {
		return nil, 0, fmt.Errorf("[audio] 读取 PCM 数据失败: %w", err)
	}
	// 截掉不完整的尾部帧
	pcm = pcm[:len(pcm)/bytesPerFrame*bytesPerFrame]
	return StereoToMono(Int16ToFloat32(BytesToInt16(pcm))), decoder.SampleRate(), nil
}

// Peaks 返回 MP3 的波形峰值，每个桶取绝对值最大的样本，范围 [0, 1]。
func Peaks(data []byte, buckets int) ([]float32, error) {
	samples, _, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return peaksOf(samples, buckets), nil
}

func peaksOf(samples []float32, buckets int) []float32 {
	if buckets <= 0 {
		buckets = DefaultPeakBuckets
	}
	if len(samples) == 0 {
		return []float32{}
	}
	if buckets > len(samples) {
		buckets = len(samples)
	}

	peaks := make([]float32, buckets)
	for b := 0; b < buckets; b++ {
		start := b * len(samples) / buckets
		end := (b + 1) * len(samples) / buckets
		var peak float64
		for _, s := range samples[start:end] {
			peak = math.Max(peak, math.Abs(float64(s)))
		}
		peaks[b] = float32(math.Min(peak, 1))
	}
	return peaks
}
