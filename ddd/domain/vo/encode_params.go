package vo

// VideoParams 视频编码参数，BitrateKbps 与 CRF 二选一
type VideoParams struct {
	Codec       string
	Preset      string
	PixelFormat string
	Profile     string
	BitrateKbps float64
	CRF         int
}

// UsesBitrate 是否按目标码率编码
func (p VideoParams) UsesBitrate() bool {
	return p.BitrateKbps > 0
}

// AudioParams 音频编码参数
type AudioParams struct {
	Codec      string
	Bitrate    string
	Channels   int
	SampleRate int
}
