package cqe

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"compress-service/pkg/errno"
)

func TestSubmitJobCmdValidate(t *testing.T) {
	cmd := &SubmitJobCmd{OwnerID: "  alice ", SourceRef: " videos/a.mp4"}
	assert.NoError(t, cmd.Validate())
	assert.Equal(t, "alice", cmd.OwnerID)
	assert.Equal(t, "videos/a.mp4", cmd.SourceRef)

	assert.True(t, errors.Is((&SubmitJobCmd{SourceRef: "x"}).Validate(), errno.ErrOwnerIDRequired))
	assert.True(t, errors.Is((&SubmitJobCmd{OwnerID: "a"}).Validate(), errno.ErrSourceRequired))
}

func TestDecideAndCancelValidate(t *testing.T) {
	assert.True(t, errors.Is((&DecideCmd{Decision: "low"}).Validate(), errno.ErrJobIDRequired))
	assert.True(t, errors.Is((&DecideCmd{JobID: "j", Decision: " "}).Validate(), errno.ErrDecisionRequired))
	assert.NoError(t, (&DecideCmd{JobID: "j", Decision: "50"}).Validate())

	assert.True(t, errors.Is((&CancelCmd{}).Validate(), errno.ErrJobIDRequired))
	assert.NoError(t, (&CancelCmd{JobID: "j"}).Validate())
}
