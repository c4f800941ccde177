// Package dto defines the request/response bodies of the accounts
// HTTP surface.
package dto

// NicknameRequest is the PATCH body for renaming an account.
type NicknameRequest struct {
	Nickname string `json:"nickname" binding:"required"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error string `json:"error"`
}
