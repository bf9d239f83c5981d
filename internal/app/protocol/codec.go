/*
Package protocol defines the wire format spoken between a gabber client and
server.

This file holds the codec: pure, stateless mapping between typed values and
JSON wire bytes. Malformed inbound payloads are always a hard decode failure
for the caller to act on; nothing is retried here.
*/
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedMessage is wrapped by every decode failure, whether the
// payload is not valid JSON or carries no recognizable type field.
var ErrMalformedMessage = errors.New("malformed message")

// Request is a command sent to the server. One is in flight per user
// action; the protocol has no request IDs, so replies correlate purely by
// type (the session interprets a response relative to its own state).
type Request struct {
	RoomName string      `json:"roomName"`
	ReqType  RequestType `json:"reqtype"`
	Content  string      `json:"content"`
}

// Response is a message from the server. List is populated only for
// roster-affecting types (JOIN, LIST_NAMES, LEAVE).
type Response struct {
	RspType ResponseType `json:"rspType"`
	Content string       `json:"content"`
	List    []string     `json:"list,omitempty"`
}

// String implements fmt.Stringer for request logging.
func (r Request) String() string {
	b, _ := json.Marshal(r)
	return string(b)
}

// String implements fmt.Stringer for response logging.
func (r Response) String() string {
	b, _ := json.Marshal(r)
	return string(b)
}

// EncodeRequest serializes a request into wire bytes.
func EncodeRequest(req Request) ([]byte, error) {
	b, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	return b, nil
}

// DecodeResponse parses wire bytes into a Response. It fails with a wrapped
// ErrMalformedMessage when the payload is not valid JSON or the rspType
// field is absent. An unknown-but-present rspType decodes successfully:
// deciding what an unrecognized type means is the session's job, not the
// codec's.
func DecodeResponse(data []byte) (Response, error) {
	var rsp Response
	if err := json.Unmarshal(data, &rsp); err != nil {
		return Response{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if rsp.RspType == 0 {
		return Response{}, fmt.Errorf("%w: missing rspType field", ErrMalformedMessage)
	}
	return rsp, nil
}
