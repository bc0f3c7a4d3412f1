package coordinator

import (
	"errors"

	"github.com/romashorodok/conferencing-platform/internal/identity"
	"github.com/romashorodok/conferencing-platform/internal/plugin"
	"github.com/romashorodok/conferencing-platform/internal/room"
	"github.com/romashorodok/conferencing-platform/pkg/protocol"
)

var (
	ErrMalformedBody   = errors.New("malformed request body")
	ErrUnauthenticated = errors.New("connection is not authenticated")
	ErrUnknownAction   = errors.New("unknown action")
)

// errorCode binds a sentinel to the wire code reported for it.
type errorCode struct {
	err  error
	code string
}

type codeTable []errorCode

// codes returns every wire code matching err, in table order. Joined
// validation errors yield several codes.
func (t codeTable) codes(err error) []string {
	var result []string
	for _, ec := range t {
		if errors.Is(err, ec.err) {
			result = append(result, ec.code)
		}
	}
	return result
}

var displayNameCodes = codeTable{
	{identity.ErrMissingDisplayName, protocol.CodeMissingDisplayName},
	{identity.ErrDisplayNameTooShort, protocol.CodeDisplayNameTooShort},
	{identity.ErrDisplayNameTooLong, protocol.CodeDisplayNameTooLong},
}

var (
	userRegisterCodes = displayNameCodes

	userLoginCodes = codeTable{
		{identity.ErrUserNotFound, protocol.CodeUserNotFound},
		{identity.ErrWrongSecret, protocol.CodeWrongSecret},
	}

	userUpdateCodes = append(codeTable{
		{identity.ErrUserNotFound, protocol.CodeUserNotFound},
	}, displayNameCodes...)

	roomCreateCodes = codeTable{
		{room.ErrMissingName, protocol.CodeMissingName},
		{room.ErrNameTooLong, protocol.CodeNameTooLong},
		{room.ErrInvalidMaxUsers, protocol.CodeInvalidMaxUsers},
		{room.ErrParentRoomNotExist, protocol.CodeParentRoomNotFound},
	}

	roomJoinCodes = codeTable{
		{room.ErrRoomNotExist, protocol.CodeDoesNotExist},
		{room.ErrAlreadyJoined, protocol.CodeAlreadyJoined},
		{room.ErrWrongPassword, protocol.CodeWrongPassword},
		{room.ErrInvalidAdminID, protocol.CodeInvalidAdminID},
		{room.ErrAlreadyFull, protocol.CodeAlreadyFull},
	}

	roomLeaveCodes = codeTable{
		{room.ErrRoomNotExist, protocol.CodeDoesNotExist},
		{room.ErrNotMember, protocol.CodeNotMember},
	}

	roomGetCodes = codeTable{
		{room.ErrRoomNotExist, protocol.CodeDoesNotExist},
	}

	pluginSetCodes = codeTable{
		{room.ErrRoomNotExist, protocol.CodeRoomNotFound},
		{room.ErrMissingIframeID, protocol.CodeMissingIframeID},
		{room.ErrPermissionDenied, protocol.CodePermissionDenied},
		{plugin.ErrPluginNotFound, protocol.CodePluginNotFound},
	}

	messageRelayCodes = codeTable{
		{room.ErrRoomNotExist, protocol.CodeRoomNotFound},
		{room.ErrNotMember, protocol.CodeNotMember},
	}
)
