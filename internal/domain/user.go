package domain

import "time"

// User is an application account bound to exactly one ledger-identity slot.
type User struct {
	ID           string    `json:"id" dynamodbav:"user_id"`
	Email        string    `json:"email" dynamodbav:"email"`
	PasswordHash string    `json:"passwordHash" dynamodbav:"password_hash"`
	AccountSlot  int       `json:"accountSlot" dynamodbav:"account_slot"`
	SessionToken string    `json:"token" dynamodbav:"session_token"`
	CreatedAt    time.Time `json:"createdAt" dynamodbav:"created_at"`
}

type RegisterRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required,min=4,max=72"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}
