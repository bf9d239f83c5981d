/*
Package protocol defines the wire format spoken between a gabber client and
server: typed request/response records and the shared numeric type space.

This file holds the canonical type tables. Request codes 101-109 double as
the response code acknowledging that same request; 1001+ are response-only
error conditions. Earlier revisions of the protocol shipped two incompatible
error numberings; the table below (ERR_NICKNAME_USED=1006) is the canonical
one and the only one this codebase recognizes.
*/
package protocol

// RequestType identifies a command sent by the client.
type RequestType int

const (
	ReqSetNickname RequestType = 101
	ReqGetNickname RequestType = 102
	ReqListRooms   RequestType = 103
	ReqJoin        RequestType = 104
	ReqListNames   RequestType = 105
	ReqHide        RequestType = 106
	ReqUnhide      RequestType = 107
	ReqMsg         RequestType = 108
	ReqLeave       RequestType = 109
)

// ResponseType identifies a server response. A value equal to a RequestType
// acknowledges a request of that kind; values 1001+ are error conditions.
type ResponseType int

const (
	RspSetNickname ResponseType = 101
	RspGetNickname ResponseType = 102
	RspListRooms   ResponseType = 103
	RspJoin        ResponseType = 104
	RspListNames   ResponseType = 105
	RspHide        ResponseType = 106
	RspUnhide      ResponseType = 107
	RspMsg         ResponseType = 108
	RspLeave       ResponseType = 109

	RspErrRoomMandatory     ResponseType = 1001
	RspErrMaxRoomsReached   ResponseType = 1002
	RspErrRoomUnavailable   ResponseType = 1003
	RspErrNicknameMandatory ResponseType = 1004
	RspErrAlreadyJoined     ResponseType = 1005
	RspErrNicknameUsed      ResponseType = 1006
	RspErrHiddenNickname    ResponseType = 1007
	RspErrUnknownRequest    ResponseType = 1008
)

// IsError reports whether the response signals a server-side error
// condition rather than a command acknowledgement.
func (t ResponseType) IsError() bool {
	return t >= RspErrRoomMandatory && t <= RspErrUnknownRequest
}

// Known reports whether the response type belongs to the canonical table.
// Anything unknown is treated as fatal by the session, never ignored.
func (t ResponseType) Known() bool {
	return (t >= RspSetNickname && t <= RspLeave) || t.IsError()
}

func (t RequestType) String() string {
	switch t {
	case ReqSetNickname:
		return "SET_NICKNAME"
	case ReqGetNickname:
		return "GET_NICKNAME"
	case ReqListRooms:
		return "LIST_ROOMS"
	case ReqJoin:
		return "JOIN"
	case ReqListNames:
		return "LIST_NAMES"
	case ReqHide:
		return "HIDE"
	case ReqUnhide:
		return "UNHIDE"
	case ReqMsg:
		return "MSG"
	case ReqLeave:
		return "LEAVE"
	}
	return "UNKNOWN"
}

func (t ResponseType) String() string {
	switch t {
	case RspSetNickname, RspGetNickname, RspListRooms, RspJoin, RspListNames,
		RspHide, RspUnhide, RspMsg, RspLeave:
		return RequestType(t).String()
	case RspErrRoomMandatory:
		return "ERR_ROOM_MANDATORY"
	case RspErrMaxRoomsReached:
		return "ERR_MAX_ROOMS_REACHED"
	case RspErrRoomUnavailable:
		return "ERR_ROOM_UNAVAILABLE"
	case RspErrNicknameMandatory:
		return "ERR_NICKNAME_MANDATORY"
	case RspErrAlreadyJoined:
		return "ERR_ALREADY_JOINED"
	case RspErrNicknameUsed:
		return "ERR_NICKNAME_USED"
	case RspErrHiddenNickname:
		return "ERR_HIDDEN_NICKNAME"
	case RspErrUnknownRequest:
		return "ERR_UNKNOWN_REQUEST"
	}
	return "UNKNOWN"
}
