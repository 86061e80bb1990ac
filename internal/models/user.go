package models

import (
	"github.com/google/uuid"
)

type User struct {
	UserID      string `json:"user_id" dynamodbav:"user_id"`
	FirstName   string `json:"first_name" dynamodbav:"first_name"`
	LastName    string `json:"last_name" dynamodbav:"last_name"`
	PhoneNumber string `json:"phone_number" dynamodbav:"phone_number"`
	Email       string `json:"email" dynamodbav:"email"`
	Avatar      string `json:"avatar,omitempty" dynamodbav:"avatar,omitempty"`
	Gender      string `json:"gender,omitempty" dynamodbav:"gender,omitempty"`
	JobTitle    string `json:"job_title,omitempty" dynamodbav:"job_title,omitempty"`
	Company     string `json:"company,omitempty" dynamodbav:"company,omitempty"`
	City        string `json:"city,omitempty" dynamodbav:"city,omitempty"`
	State       string `json:"state,omitempty" dynamodbav:"state,omitempty"`
}

// UserAttributes lists the stored attribute names a filter or sort may reference.
var UserAttributes = []string{
	"user_id", "first_name", "last_name", "phone_number", "email", "avatar",
	"gender", "job_title", "company", "city", "state",
}

type UserRequest struct {
	FirstName   string `json:"first_name" binding:"required"`
	LastName    string `json:"last_name" binding:"required"`
	PhoneNumber string `json:"phone_number" binding:"required"`
	Email       string `json:"email" binding:"required,email"`
	Avatar      string `json:"avatar" binding:"omitempty,url"`
	Gender      string `json:"gender"`
	JobTitle    string `json:"job_title"`
	Company     string `json:"company"`
	City        string `json:"city"`
	State       string `json:"state"`
}

// NewUser assigns a fresh identifier to a validated create request.
func NewUser(req UserRequest) User {
	return User{
		UserID:      uuid.New().String(),
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		PhoneNumber: req.PhoneNumber,
		Email:       req.Email,
		Avatar:      req.Avatar,
		Gender:      req.Gender,
		JobTitle:    req.JobTitle,
		Company:     req.Company,
		City:        req.City,
		State:       req.State,
	}
}

// UserUpdate is a partial update; nil fields are left untouched.
type UserUpdate struct {
	FirstName   *string `json:"first_name"`
	LastName    *string `json:"last_name"`
	PhoneNumber *string `json:"phone_number"`
	Email       *string `json:"email" binding:"omitempty,email"`
	Avatar      *string `json:"avatar" binding:"omitempty,url"`
	Gender      *string `json:"gender"`
	JobTitle    *string `json:"job_title"`
	Company     *string `json:"company"`
	City        *string `json:"city"`
	State       *string `json:"state"`
}

func (u UserUpdate) Changes() map[string]any {
	changes := make(map[string]any)
	setIfPresent(changes, "first_name", u.FirstName)
	setIfPresent(changes, "last_name", u.LastName)
	setIfPresent(changes, "phone_number", u.PhoneNumber)
	setIfPresent(changes, "email", u.Email)
	setIfPresent(changes, "avatar", u.Avatar)
	setIfPresent(changes, "gender", u.Gender)
	setIfPresent(changes, "job_title", u.JobTitle)
	setIfPresent(changes, "company", u.Company)
	setIfPresent(changes, "city", u.City)
	setIfPresent(changes, "state", u.State)
	return changes
}

func setIfPresent[T any](changes map[string]any, name string, value *T) {
	if value != nil {
		changes[name] = *value
	}
}
