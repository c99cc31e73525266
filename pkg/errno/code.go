package errno

// code=0 请求成功
// code=4xx 客户端请求错误
// code=5xx 服务器端错误
// code=2xxxx 业务处理错误码

type Errno struct {
	Code    int
	Message string
}

// Error 实现error接口
func (e *Errno) Error() string {
	return e.Message
}

var (
	OK = &Errno{Code: 200, Message: "Success"}

	ErrInvalidParam   = &Errno{Code: 400, Message: "Invalid parameter"}
	ErrNotFound       = &Errno{Code: 404, Message: "Not found"}
	ErrInternalServer = &Errno{Code: 500, Message: "Internal server error"}
	ErrDatabase       = &Errno{Code: 501, Message: "Database error"}
	ErrUnknown        = &Errno{Code: 510, Message: "Unknown error"}

	// 业务错误码
	ErrMissingParam     = &Errno{Code: 20001, Message: "Missing required parameter"}
	ErrOwnerIDRequired  = &Errno{Code: 20002, Message: "Owner ID is required"}
	ErrSourceRequired   = &Errno{Code: 20003, Message: "Source reference is required"}
	ErrJobIDRequired    = &Errno{Code: 20004, Message: "Job ID is required"}
	ErrDecisionRequired = &Errno{Code: 20005, Message: "Decision is required"}

	// 任务生命周期错误码
	ErrJobNotFound           = &Errno{Code: 20008, Message: "Job not found"}
	ErrDuplicateActiveJob    = &Errno{Code: 20010, Message: "Owner already has an active job"}
	ErrQueueFull             = &Errno{Code: 20012, Message: "Compression queue is full"}
	ErrInvalidInput          = &Errno{Code: 20013, Message: "Invalid decision input"}
	ErrDecisionNotApplicable = &Errno{Code: 20014, Message: "Job is not awaiting a decision"}
	ErrCancelNotApplicable   = &Errno{Code: 20015, Message: "Job is already running or finished"}
	ErrInvalidDuration       = &Errno{Code: 20016, Message: "Video duration must be positive"}
	ErrSizeTooSmall          = &Errno{Code: 20017, Message: "Target size too small, bitrate clamped to floor"}
	ErrQueueClosed           = &Errno{Code: 20018, Message: "Compression queue is closed"}
	ErrTransitionRejected    = &Errno{Code: 20019, Message: "Job state does not allow this transition"}
)
