/*
Package errs provides custom error types and application-level error code constants.

These error codes are used to clearly identify specific business or system errors
both internally within the server and in communication with clients.
*/
package errs

// 1xxx: General Request Handling Errors
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrRateLimitExceeded indicates that the connection rate has exceeded the set limit.
	ErrRateLimitExceeded = 1002
)

// 2xxx: Room and Content Business Logic Errors
const (
	// ErrRoomNotFound indicates that the referenced room id does not exist.
	ErrRoomNotFound = 2101

	// ErrRoomIsFull indicates that the room being joined has reached its maximum member capacity.
	ErrRoomIsFull = 2102

	// ErrMessageContentTooLong indicates that the message content exceeded the maximum length limit.
	ErrMessageContentTooLong = 2201
)

// 3xxx: Authentication and Session Errors
const (
	// ErrTokenRequired indicates that the handshake carried no token at all.
	ErrTokenRequired = 3001

	// ErrTokenInvalid indicates a token whose signature or structure failed validation.
	ErrTokenInvalid = 3002

	// ErrTokenExpired indicates a token that was once valid but has expired.
	// Kept distinct from ErrTokenInvalid so clients can prompt re-issue.
	ErrTokenExpired = 3003

	// ErrSessionReplaced indicates that the current connection was terminated
	// because the same identity signed in from another connection.
	ErrSessionReplaced = 3004
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified, general server internal error.
	ErrUnknown = 5000
)
