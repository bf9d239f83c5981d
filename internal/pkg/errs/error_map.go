/*
Package errs provides the chat protocol's error conditions as a typed Go
error.

This file defines the map from ERR_* response types to their message
templates. Templates with placeholders take printf-style details via
NewError.
*/
package errs

import "gabber/internal/app/protocol"

// errorMap holds the ChatError template for every protocol error type.
var errorMap = map[protocol.ResponseType]ChatError{
	protocol.RspErrRoomMandatory: {
		Type:    protocol.RspErrRoomMandatory,
		Message: "Room name is mandatory to access a room.",
	},
	protocol.RspErrMaxRoomsReached: {
		Type:    protocol.RspErrMaxRoomsReached,
		Message: "Maximum number of rooms reached. Try again later.",
	},
	protocol.RspErrRoomUnavailable: {
		Type:    protocol.RspErrRoomUnavailable,
		Message: `Room "%s" is not available.`,
	},
	protocol.RspErrNicknameMandatory: {
		Type:    protocol.RspErrNicknameMandatory,
		Message: "Nickname cannot be blank.",
	},
	protocol.RspErrAlreadyJoined: {
		Type:    protocol.RspErrAlreadyJoined,
		Message: `You are already a member of room "%s".`,
	},
	protocol.RspErrNicknameUsed: {
		Type:    protocol.RspErrNicknameUsed,
		Message: `Nickname "%s" is already in use in room "%s".`,
	},
	protocol.RspErrHiddenNickname: {
		Type:    protocol.RspErrHiddenNickname,
		Message: "You cannot send messages while hidden.",
	},
	protocol.RspErrUnknownRequest: {
		Type:    protocol.RspErrUnknownRequest,
		Message: "Unknown request.",
	},
}
