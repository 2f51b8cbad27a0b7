package services

import "github.com/yeremiapane/qr-table-order/utils"

var (
	ErrTableNotFound   = utils.NotFound("table not found")
	ErrOrderNotFound   = utils.NotFound("order not found")
	ErrRequestNotFound = utils.NotFound("service request not found")
	ErrUserNotFound    = utils.NotFound("user not found")

	ErrTableInUse             = utils.NewAppError(utils.KindConflict, "TABLE_IN_USE", "table is in use by another device")
	ErrDeviceAlreadyInSession = utils.NewAppError(utils.KindConflict, "DEVICE_ALREADY_IN_SESSION", "device is already seated at another table")
	ErrTableHasActiveOrders   = utils.NewAppError(utils.KindConflict, "TABLE_HAS_ACTIVE_ORDERS", "table still has unsettled orders")
	ErrInvalidTransition      = utils.NewAppError(utils.KindConflict, "INVALID_TRANSITION", "order cannot move to the requested state")
	ErrUsernameTaken          = utils.NewAppError(utils.KindConflict, "USERNAME_TAKEN", "username is already taken")
	ErrTableNumberTaken       = utils.NewAppError(utils.KindConflict, "TABLE_NUMBER_TAKEN", "table number already exists")

	ErrInvalidSession     = utils.NewAppError(utils.KindUnauthorized, "INVALID_SESSION", "table session is missing or no longer valid")
	ErrInvalidCredentials = utils.NewAppError(utils.KindUnauthorized, "INVALID_CREDENTIALS", "invalid credentials")
	ErrStaleStaffToken    = utils.NewAppError(utils.KindUnauthorized, "SESSION_REVOKED", "staff session has been revoked")

	ErrDeviceBlocked   = utils.NewAppError(utils.KindForbidden, "DEVICE_BLOCKED", "device is blocked")
	ErrDeviceMismatch  = utils.NewAppError(utils.KindForbidden, "DEVICE_MISMATCH", "session does not belong to the device holding the table")
	ErrRoleNotAllowed  = utils.NewAppError(utils.KindForbidden, "ROLE_NOT_ALLOWED", "your role cannot perform this action")
	ErrAudioNotPresent = utils.NotFound("service request has no audio")
)
