package domain

import "errors"

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates the resource already exists
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates the input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates authentication failed or missing
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates the user lacks permission for this action
	ErrForbidden = errors.New("forbidden")

	// ErrTokenExpired indicates the auth token has expired
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenInvalid indicates the auth token is malformed or invalid
	ErrTokenInvalid = errors.New("token invalid")

	// ErrSessionNotFound indicates the session does not exist
	ErrSessionNotFound = errors.New("session not found")

	// ErrInvalidCredentials indicates wrong email/password combination
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrConfiguration indicates an instance's recipients or fields are inconsistent
	// (mixed or non-contiguous ranks, fields owned by unknown recipients).
	ErrConfiguration = errors.New("invalid signing configuration")

	// ErrUnauthorizedRecipient indicates the recipient is not a member of the instance
	ErrUnauthorizedRecipient = errors.New("recipient not authorized for instance")

	// ErrOutOfTurn indicates a sequential recipient acted before their rank became active
	ErrOutOfTurn = errors.New("recipient is out of turn")

	// ErrMissingRequiredField indicates a mandatory field has no value
	ErrMissingRequiredField = errors.New("missing required field")

	// ErrPageOutOfRange indicates a field references a page the document does not have
	ErrPageOutOfRange = errors.New("page out of range")

	// ErrNotificationDelivery indicates an email could not be handed off
	ErrNotificationDelivery = errors.New("notification delivery failed")

	// ErrAlreadySigned indicates the recipient's progress record is already signed
	ErrAlreadySigned = errors.New("recipient already signed")

	// ErrNotSent indicates the instance has not been sent for signing
	ErrNotSent = errors.New("instance not sent")

	// ErrAlreadySent indicates the instance was already sent and is immutable
	ErrAlreadySent = errors.New("instance already sent")

	// ErrAlreadyCompleted indicates the signing workflow has finished
	ErrAlreadyCompleted = errors.New("instance already completed")

	// ErrNotComplete indicates the signing workflow has not finished yet
	ErrNotComplete = errors.New("instance not complete")

	// ErrBusy indicates the instance lock could not be acquired in time
	ErrBusy = errors.New("instance busy")
)
