package cqe

import (
	"strings"

	"compress-service/pkg/errno"
)

// SubmitJobCmd 提交压缩任务
type SubmitJobCmd struct {
	OwnerID   string `json:"owner_id"`                      // 提交者，HTTP 下由 X-Owner-ID 填充
	SourceRef string `json:"source_ref" binding:"required"` // 源视频：对象键或URL
}

func (c *SubmitJobCmd) Validate() error {
	c.OwnerID = strings.TrimSpace(c.OwnerID)
	c.SourceRef = strings.TrimSpace(c.SourceRef)
	if c.OwnerID == "" {
		return errno.ErrOwnerIDRequired
	}
	if c.SourceRef == "" {
		return errno.ErrSourceRequired
	}
	return nil
}

// DecideCmd 选择压缩目标，Decision 为用户原始输入，如 "50"、"size:50"、"low"
type DecideCmd struct {
	JobID    string `json:"job_id"`
	Decision string `json:"decision" binding:"required"`
}

func (c *DecideCmd) Validate() error {
	if c.JobID == "" {
		return errno.ErrJobIDRequired
	}
	if strings.TrimSpace(c.Decision) == "" {
		return errno.ErrDecisionRequired
	}
	return nil
}

// CancelCmd 取消任务
type CancelCmd struct {
	JobID  string `json:"job_id"`
	Reason string `json:"reason"`
}

func (c *CancelCmd) Validate() error {
	if c.JobID == "" {
		return errno.ErrJobIDRequired
	}
	return nil
}
