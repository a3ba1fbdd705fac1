package domain

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/TrafficWatch/app/models"
	"github.com/ManuelReschke/TrafficWatch/internal/pkg/retry"
)

// Per-attempt budgets for the operations that talk to the backend.
const (
	SubmitTimeout = 45 * time.Second
	ReviewTimeout = 30 * time.Second
)

type retryMessages struct {
	retrying string // formatted with the wait in whole seconds
	failed   string
	success  string
}

var (
	submitMessages = retryMessages{
		retrying: "Submission attempt failed. Retrying in %d seconds...",
		failed:   "Submission failed after multiple attempts. Please try again later.",
		success:  "Complaint submitted successfully!",
	}
	uploadMessages = retryMessages{
		retrying: "Upload attempt failed. Retrying in %d seconds...",
		failed:   "Upload failed after multiple attempts. Please try again later.",
		success:  "Document uploaded successfully! It will be reviewed shortly.",
	}
	approveMessages = retryMessages{
		retrying: "Approval failed. Retrying in %ds...",
		failed:   "Failed to approve document after multiple attempts. Please try again later.",
		success:  "Document approved.",
	}
	rejectMessages = retryMessages{
		retrying: "Rejection failed. Retrying in %ds...",
		failed:   "Failed to reject document after multiple attempts. Please try again later.",
		success:  "Document rejected.",
	}
	updateMessages = retryMessages{
		retrying: "Update failed. Retrying in %ds...",
		failed:   "Failed to update complaint after multiple attempts. Please try again later.",
		success:  "Complaint updated successfully!",
	}
)

// withRetry runs op under the controller's policy and reports progress
// through toasts. Only transient failures are retried.
func (c *Controller) withRetry(ctx context.Context, timeout time.Duration, msgs retryMessages, op func(ctx context.Context) error) error {
	policy := c.policy.WithTimeout(timeout)
	err := policy.Do(ctx, op,
		retry.If(Retryable),
		retry.OnRetry(func(attempt uint, wait time.Duration, err error) {
			log.Warnf("[Domain] Attempt %d failed: %v", attempt, err)
			c.toasts.Warning(fmt.Sprintf(msgs.retrying, int(math.Ceil(wait.Seconds()))))
		}),
	)
	switch {
	case err == nil:
		c.toasts.Success(msgs.success)
	case Retryable(err) && !errors.Is(err, context.Canceled):
		log.Errorf("[Domain] Giving up after %d attempts: %v", policy.Attempts, err)
		c.toasts.Error(msgs.failed)
	default:
		c.toasts.Error(UserMessage(err))
	}
	return err
}

// SubmitComplaintWithRetry is SubmitComplaint with backoff and toasts.
func (c *Controller) SubmitComplaintWithRetry(ctx context.Context, in ComplaintInput) (*models.Complaint, error) {
	var complaint *models.Complaint
	err := c.withRetry(ctx, SubmitTimeout, submitMessages, func(ctx context.Context) error {
		var err error
		complaint, err = c.SubmitComplaint(ctx, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	return complaint, nil
}

// UploadDocumentWithRetry is UploadDocument with backoff and toasts.
func (c *Controller) UploadDocumentWithRetry(ctx context.Context, in DocumentInput) (*models.Document, error) {
	var doc *models.Document
	err := c.withRetry(ctx, SubmitTimeout, uploadMessages, func(ctx context.Context) error {
		var err error
		doc, err = c.UploadDocument(ctx, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// ReviewDocumentWithRetry is ReviewDocument with backoff and toasts.
func (c *Controller) ReviewDocumentWithRetry(ctx context.Context, id uint, status, reason string) (*models.Document, error) {
	msgs := approveMessages
	if status == models.DOC_REJECTED {
		msgs = rejectMessages
	}
	var doc *models.Document
	err := c.withRetry(ctx, ReviewTimeout, msgs, func(ctx context.Context) error {
		var err error
		doc, err = c.ReviewDocument(ctx, id, status, reason)
		return err
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// UpdateComplaintWithRetry is UpdateComplaint with backoff and toasts.
func (c *Controller) UpdateComplaintWithRetry(ctx context.Context, id uint, upd ComplaintUpdate) (*models.Complaint, error) {
	var complaint *models.Complaint
	err := c.withRetry(ctx, ReviewTimeout, updateMessages, func(ctx context.Context) error {
		var err error
		complaint, err = c.UpdateComplaint(ctx, id, upd)
		return err
	})
	if err != nil {
		return nil, err
	}
	return complaint, nil
}
