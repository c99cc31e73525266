package port

import (
	"io"
	"time"
)

// 总大小未知时每读取 1MiB 回调一次
const unknownSizeStep = 1 << 20

type transferReader struct {
	io.ReadCloser
	cb      TransferCallback
	start   time.Time
	current int64
	total   int64
	lastPct int
	lastAt  int64
}

// NewTransferReader 包装下载流，读取时按整数百分比变化回调。
// cb 为 nil 时原样返回 rc。
func NewTransferReader(rc io.ReadCloser, current, total int64, cb TransferCallback) io.ReadCloser {
	if cb == nil {
		return rc
	}
	return &transferReader{ReadCloser: rc, cb: cb, start: time.Now(), current: current, total: total, lastPct: -1, lastAt: current}
}

func (r *transferReader) Read(p []byte) (int, error) {
	n, err := r.ReadCloser.Read(p)
	if n > 0 {
		r.current += int64(n)
		r.report()
	}
	return n, err
}

func (r *transferReader) report() {
	prog := TransferProgress{Current: r.current, Total: r.total, Elapsed: time.Since(r.start)}
	if r.total > 0 {
		pct := prog.Percent()
		if pct == r.lastPct {
			return
		}
		r.lastPct = pct
	} else {
		if r.current-r.lastAt < unknownSizeStep {
			return
		}
		r.lastAt = r.current
	}
	r.cb(prog)
}
