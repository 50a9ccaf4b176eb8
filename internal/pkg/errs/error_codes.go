/*
Package errs provides custom error types and application-level error code constants.

These error codes identify specific business or system errors both internally
within the server and in communication with clients.
*/
package errs

// 1xxx: General Request Handling Errors
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrInvalidJSONFormat indicates that an inbound payload was not valid JSON.
	ErrInvalidJSONFormat = 1002

	// ErrRateLimitExceeded indicates that the request rate has exceeded the set limit.
	ErrRateLimitExceeded = 1003
)

// 2xxx: Presence and Room Business Logic Errors
const (
	// ErrUsernameTaken indicates that another live connection already holds the username.
	ErrUsernameTaken = 2101

	// ErrInvalidUsername indicates an empty or over-long username at registration.
	ErrInvalidUsername = 2102

	// ErrAlreadyJoined indicates a duplicate join of a room the connection is already in.
	ErrAlreadyJoined = 2201

	// ErrNotInRoom indicates a leave of a room the connection never joined.
	ErrNotInRoom = 2202
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified, general server internal error.
	ErrUnknown = 5000
)
