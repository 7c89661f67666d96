package worker

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/mintoria-api/internal/logger"
	"github.com/mintoria-api/internal/provider"
	"github.com/mintoria-api/internal/queue"
	"github.com/mintoria-api/internal/service"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskVerifyCodeEmail, c.handleVerifyCodeEmail)
	mux.HandleFunc(queue.TaskMintConfirmedEmail, c.handleMintConfirmedEmail)
}

func (c *Consumer) handleVerifyCodeEmail(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_verify_code_email_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.VerifyCodeEmailPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_verify_code_email_unmarshal_failed", "error", err)
		return err
	}
	email := strings.TrimSpace(payload.Email)
	if email == "" || payload.Code == "" {
		logger.Debugw("worker_verify_code_email_skip_invalid_payload", "email", email)
		return nil
	}
	if c.EmailService == nil {
		logger.Warnw("worker_verify_code_email_skip_email_service_nil", "email", email)
		return nil
	}
	if err := c.EmailService.SendVerifyCode(email, payload.Code); err != nil {
		logger.Warnw("worker_verify_code_email_send_failed", "email", email, "error", err)
		return err
	}
	return nil
}

func (c *Consumer) handleMintConfirmedEmail(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_mint_confirmed_email_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.MintConfirmedEmailPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_mint_confirmed_email_unmarshal_failed", "error", err)
		return err
	}
	if payload.MintID == 0 {
		logger.Debugw("worker_mint_confirmed_email_skip_invalid_payload", "mint_id", payload.MintID)
		return nil
	}
	mint, err := c.MintRepo.GetByID(payload.MintID)
	if err != nil {
		logger.Warnw("worker_mint_confirmed_email_fetch_failed", "mint_id", payload.MintID, "error", err)
		return err
	}
	if mint == nil {
		logger.Debugw("worker_mint_confirmed_email_skip_not_found", "mint_id", payload.MintID)
		return nil
	}
	receiverEmail := strings.TrimSpace(mint.RecipientEmail)
	if receiverEmail == "" {
		logger.Debugw("worker_mint_confirmed_email_skip_empty_receiver", "mint_id", mint.ID)
		return nil
	}
	if c.EmailService == nil {
		logger.Warnw("worker_mint_confirmed_email_skip_email_service_nil", "mint_id", mint.ID)
		return nil
	}
	drop, err := c.DropRepo.GetByID(mint.DropID)
	if err != nil {
		logger.Warnw("worker_mint_confirmed_email_fetch_drop_failed", "mint_id", mint.ID, "drop_id", mint.DropID, "error", err)
		return err
	}
	dropName := ""
	if drop != nil {
		dropName = drop.Name
	}
	input := service.MintConfirmationInput{
		DropName:    dropName,
		Chain:       mint.Chain,
		TxHash:      mint.TxHash,
		Address:     mint.Recipient,
		ExplorerURL: mint.ExplorerURL,
	}
	if err := c.EmailService.SendMintConfirmation(receiverEmail, input); err != nil {
		logger.Warnw("worker_mint_confirmed_email_send_failed",
			"mint_id", mint.ID,
			"receiver_email", receiverEmail,
			"error", err,
		)
		return err
	}
	return nil
}
