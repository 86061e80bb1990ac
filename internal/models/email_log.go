package models

import "time"

const EmailStatusSent = "sent"

type EmailLog struct {
	EmailID        string    `json:"email_id" dynamodbav:"email_id"`
	RecipientEmail string    `json:"recipient_email" dynamodbav:"recipient_email"`
	Status         string    `json:"status" dynamodbav:"status"`
	CreatedAt      time.Time `json:"created_at" dynamodbav:"created_at"`
}

func EmailStatusFailed(cause error) string {
	return "failed: " + cause.Error()
}

type SendEmailRequest struct {
	UserIDs []string `json:"user_ids" binding:"required,min=1,dive,required"`
	Subject string   `json:"subject" binding:"required"`
	Body    string   `json:"body" binding:"required"`
}
