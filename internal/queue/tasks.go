package queue

import (
	"encoding/json"

	"github.com/mintoria-api/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskVerifyCodeEmail 邮箱验证码发送任务
	TaskVerifyCodeEmail = constants.TaskVerifyCodeEmail
	// TaskMintConfirmedEmail 铸造完成通知任务
	TaskMintConfirmedEmail = constants.TaskMintConfirmedEmail
)

// VerifyCodeEmailPayload 验证码邮件任务载荷
type VerifyCodeEmailPayload struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// MintConfirmedEmailPayload 铸造完成通知任务载荷
type MintConfirmedEmailPayload struct {
	MintID uint `json:"mint_id"`
}

// NewVerifyCodeEmailTask 创建验证码邮件任务
func NewVerifyCodeEmailTask(payload VerifyCodeEmailPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskVerifyCodeEmail, body), nil
}

// NewMintConfirmedEmailTask 创建铸造完成通知任务
func NewMintConfirmedEmailTask(payload MintConfirmedEmailPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskMintConfirmedEmail, body), nil
}
