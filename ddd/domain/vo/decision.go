package vo

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"compress-service/pkg/errno"
)

// QualityTier 固定质量档位
type QualityTier string

const (
	QualityHigh   QualityTier = "high"
	QualityMedium QualityTier = "medium"
	QualityLow    QualityTier = "low"
)

// CRF 返回档位对应的恒定质量因子
func (t QualityTier) CRF() int {
	switch t {
	case QualityHigh:
		return 23
	case QualityLow:
		return 33
	default:
		return 28
	}
}

// IsValid 检查档位是否有效
func (t QualityTier) IsValid() bool {
	return t == QualityHigh || t == QualityMedium || t == QualityLow
}

// DecisionKind 压缩目标类型
type DecisionKind string

const (
	DecisionFixedQuality DecisionKind = "quality"
	DecisionTargetSize   DecisionKind = "size"
)

// Decision 压缩目标：固定质量档位或目标大小(MB)
type Decision struct {
	Kind         DecisionKind `json:"kind"`
	Tier         QualityTier  `json:"tier,omitempty"`
	TargetSizeMB float64      `json:"target_size_mb,omitempty"`
}

// FixedQuality 创建固定质量决策
func FixedQuality(tier QualityTier) (Decision, error) {
	if !tier.IsValid() {
		return Decision{}, errno.Errorf(errno.ErrInvalidInput, "unknown quality tier %q", tier)
	}
	return Decision{Kind: DecisionFixedQuality, Tier: tier}, nil
}

// TargetSize 创建目标大小决策
func TargetSize(mb float64) (Decision, error) {
	if math.IsNaN(mb) || math.IsInf(mb, 0) || mb <= 0 {
		return Decision{}, errno.Errorf(errno.ErrInvalidInput, "target size must be a positive number, got %v", mb)
	}
	return Decision{Kind: DecisionTargetSize, TargetSizeMB: mb}, nil
}

// IsTargetSize 是否为目标大小决策
func (d Decision) IsTargetSize() bool {
	return d.Kind == DecisionTargetSize
}

func (d Decision) String() string {
	if d.IsTargetSize() {
		return fmt.Sprintf("size:%s", strconv.FormatFloat(d.TargetSizeMB, 'f', -1, 64))
	}
	return fmt.Sprintf("quality:%s", d.Tier)
}

// ParseDecision 解析用户输入
// 支持: "50", "50mb", "size:50", "quality:low", "low"
func ParseDecision(text string) (Decision, error) {
	s := strings.ToLower(strings.TrimSpace(text))
	if s == "" {
		return Decision{}, errno.NewBizError(errno.ErrInvalidInput, fmt.Errorf("empty decision"))
	}

	if rest, ok := strings.CutPrefix(s, "quality:"); ok {
		return FixedQuality(QualityTier(strings.TrimSpace(rest)))
	}
	if tier := QualityTier(s); tier.IsValid() {
		return FixedQuality(tier)
	}

	s = strings.TrimPrefix(s, "size:")
	s = strings.TrimSpace(strings.TrimSuffix(s, "mb"))
	mb, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Decision{}, errno.Errorf(errno.ErrInvalidInput, "%q is not a number", text)
	}
	return TargetSize(mb)
}

// Validate 校验直接构造的决策
func (d Decision) Validate() error {
	switch d.Kind {
	case DecisionFixedQuality:
		_, err := FixedQuality(d.Tier)
		return err
	case DecisionTargetSize:
		_, err := TargetSize(d.TargetSizeMB)
		return err
	default:
		return errno.Errorf(errno.ErrInvalidInput, "unknown decision kind %q", d.Kind)
	}
}
