package component

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/segmentio/kafka-go"

	appsvc "compress-service/ddd/application/app"
	"compress-service/ddd/application/cqe"
	"compress-service/pkg/logger"
)

// 消息动作
const (
	ActionSubmit = "submit"
	ActionDecide = "decide"
	ActionCancel = "cancel"
)

// MessageReader kafka.Reader 的子集
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// SubmissionMessage 提交主题上的消息，action 为空时按 submit 处理
type SubmissionMessage struct {
	Action    string `json:"action"`
	OwnerID   string `json:"owner_id"`
	SourceRef string `json:"source_ref"`
	JobID     string `json:"job_id"`
	Decision  string `json:"decision"`
	Reason    string `json:"reason"`
}

// SubmissionConsumer 从 Kafka 消费任务提交、决策与取消
type SubmissionConsumer struct {
	app       appsvc.JobApp
	newReader func() MessageReader
	topic     string

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSubmissionConsumer newReader 在 Start 时调用
func NewSubmissionConsumer(app appsvc.JobApp, topic string, newReader func() MessageReader) *SubmissionConsumer {
	return &SubmissionConsumer{app: app, topic: topic, newReader: newReader}
}

func (c *SubmissionConsumer) Name() string { return "submissionConsumer" }

func (c *SubmissionConsumer) Start(ctx context.Context) error {
	ctx, c.cancel = context.WithCancel(ctx)
	reader := c.newReader()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer reader.Close()
		logger.Infof("Kafka consumer started topic=%s", c.topic)
		for {
			msg, err := reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				if errors.Is(err, io.EOF) || strings.Contains(err.Error(), "EOF") {
					logger.Debug("Kafka reader EOF")
				} else {
					logger.Warnf("Kafka read error error=%s", err.Error())
				}
				continue
			}
			c.Handle(ctx, msg.Value)
		}
	}()
	return nil
}

// Handle 处理单条消息，错误只记录日志
func (c *SubmissionConsumer) Handle(ctx context.Context, value []byte) {
	var m SubmissionMessage
	if err := json.Unmarshal(value, &m); err != nil {
		logger.Warnf("Kafka message unmarshal error error=%s", err.Error())
		return
	}

	var err error
	switch strings.ToLower(m.Action) {
	case "", ActionSubmit:
		d, serr := c.app.Submit(ctx, &cqe.SubmitJobCmd{OwnerID: m.OwnerID, SourceRef: m.SourceRef})
		if serr == nil {
			logger.Infof("Kafka submission accepted job_id=%s owner_id=%s", d.JobID, d.OwnerID)
		}
		err = serr
	case ActionDecide:
		_, err = c.app.DecideText(ctx, &cqe.DecideCmd{JobID: m.JobID, Decision: m.Decision})
	case ActionCancel:
		_, err = c.app.Cancel(ctx, &cqe.CancelCmd{JobID: m.JobID, Reason: m.Reason})
	default:
		logger.Warnf("Kafka message with unknown action=%s", m.Action)
		return
	}
	if err != nil {
		logger.Warn("Kafka message rejected", map[string]interface{}{
			"action":   m.Action,
			"owner_id": m.OwnerID,
			"job_id":   m.JobID,
			"error":    err.Error(),
		})
	}
}

func (c *SubmissionConsumer) Stop() error {
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
	return nil
}
