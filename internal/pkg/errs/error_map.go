/*
Package errs provides custom error types and application-level error code constants.

This file defines the map from error codes to the CustomError struct, used to
standardize HTTP responses and the coordinator's error unicasts.
*/
package errs

import "net/http"

// errorMap stores the detailed CustomError struct corresponding to every application error code.
// The key is the error code (int), and the value contains the user message and HTTP status code.
var errorMap = map[int]CustomError{
	// 1xxx: General Request Handling Errors
	ErrInvalidParams:     {Code: ErrInvalidParams, Message: "Invalid request parameters."},
	ErrInvalidJSONFormat: {Code: ErrInvalidJSONFormat, Message: "Unsupported request format."},
	ErrRateLimitExceeded: {Code: ErrRateLimitExceeded, Message: "Too many requests. Please try again later.", Status: http.StatusTooManyRequests},

	// 2xxx: Presence and Room Business Logic Errors
	ErrUsernameTaken:   {Code: ErrUsernameTaken, Message: "Username is already taken."},
	ErrInvalidUsername: {Code: ErrInvalidUsername, Message: "Invalid username."},
	ErrAlreadyJoined:   {Code: ErrAlreadyJoined, Message: "You have already joined the room %s."},
	ErrNotInRoom:       {Code: ErrNotInRoom, Message: "You are not in the room %s."},

	// 5xxx: Internal System Errors
	ErrUnknown: {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
}
