package vo

// JobState 压缩任务状态
type JobState string

const (
	// JobStateFetching 正在获取源文件
	JobStateFetching JobState = "fetching"
	// JobStateAwaitingDecision 等待用户选择压缩目标
	JobStateAwaitingDecision JobState = "awaiting_decision"
	// JobStateQueued 已排队
	JobStateQueued JobState = "queued"
	// JobStateCompressing 压缩中
	JobStateCompressing JobState = "compressing"
	// JobStateDone 已完成
	JobStateDone JobState = "done"
	// JobStateFailed 失败
	JobStateFailed JobState = "failed"
	// JobStateCancelled 已取消
	JobStateCancelled JobState = "cancelled"
)

// IsValid 检查状态是否有效
func (s JobState) IsValid() bool {
	switch s {
	case JobStateFetching, JobStateAwaitingDecision, JobStateQueued, JobStateCompressing,
		JobStateDone, JobStateFailed, JobStateCancelled:
		return true
	default:
		return false
	}
}

// String 返回状态字符串
func (s JobState) String() string {
	return string(s)
}

// IsTerminal 检查是否为最终状态
func (s JobState) IsTerminal() bool {
	return s == JobStateDone || s == JobStateFailed || s == JobStateCancelled
}

// CanTransitionTo 检查是否可以转换到目标状态
func (s JobState) CanTransitionTo(target JobState) bool {
	switch s {
	case JobStateFetching:
		return target == JobStateAwaitingDecision || target == JobStateFailed || target == JobStateCancelled
	case JobStateAwaitingDecision:
		return target == JobStateQueued || target == JobStateFailed || target == JobStateCancelled
	case JobStateQueued:
		return target == JobStateCompressing || target == JobStateFailed || target == JobStateCancelled
	case JobStateCompressing:
		return target == JobStateDone || target == JobStateFailed
	default:
		return false // 最终状态不能转换
	}
}

// StateSet 守卫转换的期望状态集合
type StateSet []JobState

// States 构造状态集合
func States(states ...JobState) StateSet {
	return StateSet(states)
}

// Contains 判断状态是否在集合中
func (ss StateSet) Contains(s JobState) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}

// Cancellable 允许取消的状态
var Cancellable = States(JobStateFetching, JobStateAwaitingDecision, JobStateQueued)
