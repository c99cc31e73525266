package po

import "time"

// JobRecord 任务历史持久化对象，每个结束的任务一行
type JobRecord struct {
	ID              uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	JobID           string    `gorm:"uniqueIndex;size:36;not null" json:"job_id"`
	OwnerID         string    `gorm:"index;size:64;not null" json:"owner_id"`
	SourceRef       string    `gorm:"size:500;not null" json:"source_ref"`
	State           string    `gorm:"index;size:20;not null" json:"state"`
	Decision        string    `gorm:"size:32" json:"decision"`
	DurationSeconds float64   `json:"duration_seconds"`
	FinalSizeBytes  int64     `json:"final_size_bytes"`
	PublishedTo     string    `gorm:"size:500" json:"published_to"`
	Detail          string    `gorm:"type:text" json:"detail"`
	CreatedAt       time.Time `json:"created_at"`
	FinishedAt      time.Time `gorm:"index" json:"finished_at"`
}

// TableName 指定表名
func (JobRecord) TableName() string {
	return "job_records"
}
