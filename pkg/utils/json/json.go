// Package json 封装 JSON 编解码：amd64/arm64 上使用 sonic，其余平台回退到 encoding/json。
package json

import (
	stdjson "encoding/json"
	"runtime"

	"github.com/bytedance/sonic"
)

var (
	// Marshal 编码 v。
	Marshal func(v any) ([]byte, error)

	// Unmarshal 解码 data 到 v。
	Unmarshal func(data []byte, v any) error

	usingSonic bool
)

func init() {
	if runtime.GOARCH == "amd64" || runtime.GOARCH == "arm64" {
		Marshal = sonic.ConfigStd.Marshal
		Unmarshal = sonic.ConfigStd.Unmarshal
		usingSonic = true
		return
	}
	Marshal = stdjson.Marshal
	Unmarshal = stdjson.Unmarshal
}

// IsUsingSonic 报告当前是否使用 sonic。
func IsUsingSonic() bool {
	return usingSonic
}
