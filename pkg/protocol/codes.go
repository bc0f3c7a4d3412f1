package protocol

// Error codes carried in Response.Errors and RelayDelivery.Errors.
const (
	// user_register, user_update
	CodeMissingDisplayName  = "missing_display_name"
	CodeDisplayNameTooShort = "display_name_too_short"
	CodeDisplayNameTooLong  = "display_name_too_long"

	// user_login
	CodeUserNotFound = "user_not_found"
	CodeWrongSecret  = "wrong_secret"

	// room_create
	CodeMissingName        = "missing_name"
	CodeNameTooLong        = "name_too_long"
	CodeInvalidMaxUsers    = "invalid_max_users"
	CodeParentRoomNotFound = "parent_room_not_found"

	// room_join, room_leave, room_get
	CodeDoesNotExist   = "does_not_exist"
	CodeAlreadyFull    = "already_full"
	CodeAlreadyJoined  = "already_joined"
	CodeWrongPassword  = "wrong_password"
	CodeInvalidAdminID = "invalid_admin_id"
	CodeNotMember      = "not_member"

	// plugin_set, message_relay, room_broadcast
	CodeRoomNotFound     = "room_not_found"
	CodePermissionDenied = "permission_denied"
	CodePluginNotFound   = "plugin_not_found"
	CodeMissingIframeID  = "missing_iframe_id"

	// partial delivery
	CodeConnectionGone = "connection_gone"
)

// Status codes of ErrorResponse.
const (
	StatusMalformed       = 400
	StatusUnauthenticated = 401
	StatusUnknownAction   = 404
	StatusAwaitIDInUse    = 409
	StatusInternal        = 500
	StatusTimeout         = 504
)
