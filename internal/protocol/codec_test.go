package protocol

import (
	"reflect"
	"strings"
	"testing"
)

func TestSerializeParseCommandRoundTrip(t *testing.T) {
	p := CommandPayload{
		RequestID: "r1",
		Command:   "lm",
		TimeoutMS: 5000,
		Timestamp: 1234,
	}
	buf, err := SerializeCommand(p)
	if err != nil {
		t.Fatalf("SerializeCommand: %v", err)
	}
	if !strings.HasSuffix(string(buf), Delimiter) {
		t.Fatal("expected serialized message to end with delimiter")
	}

	msg, rest, ok := Split(buf)
	if !ok {
		t.Fatal("expected Split to find delimiter")
	}
	if len(rest) != 0 {
		t.Fatalf("rest = %q, want empty", rest)
	}

	got, perr := ParseCommand(msg)
	if perr != nil {
		t.Fatalf("ParseCommand: %v", perr)
	}
	if !reflect.DeepEqual(got, p) {
		t.Fatalf("got %+v, want %+v", got, p)
	}
}

func TestSerializeCommandDefaultsTimeout(t *testing.T) {
	buf, err := SerializeCommand(CommandPayload{RequestID: "r1", Command: "lm"})
	if err != nil {
		t.Fatalf("SerializeCommand: %v", err)
	}
	msg, _, _ := Split(buf)
	got, perr := ParseCommand(msg)
	if perr != nil {
		t.Fatalf("ParseCommand: %v", perr)
	}
	if got.TimeoutMS != DefaultTimeoutMS {
		t.Fatalf("TimeoutMS = %d, want %d", got.TimeoutMS, DefaultTimeoutMS)
	}
}

func TestSerializeResponseRoundTrip(t *testing.T) {
	p := ResponsePayload{
		RequestID:       "r1",
		Success:         true,
		Output:          "hello",
		ExecutionTimeMS: 10,
		Timestamp:       99,
	}
	buf, err := SerializeResponse(p)
	if err != nil {
		t.Fatalf("SerializeResponse: %v", err)
	}
	msg, _, ok := Split(buf)
	if !ok {
		t.Fatal("expected delimiter")
	}
	got, perr := ParseResponse(msg)
	if perr != nil {
		t.Fatalf("ParseResponse: %v", perr)
	}
	if !reflect.DeepEqual(got, p) {
		t.Fatalf("got %+v, want %+v", got, p)
	}
}

func TestSerializeResponseInvariantSuccessNoErrorMessage(t *testing.T) {
	_, err := SerializeResponse(ResponsePayload{RequestID: "r1", Success: true, ErrorMessage: "boom"})
	if err == nil {
		t.Fatal("expected invariant violation to fail serialization")
	}
}

func TestSerializeResponseInvariantFailureRequiresErrorMessage(t *testing.T) {
	_, err := SerializeResponse(ResponsePayload{RequestID: "r1", Success: false})
	if err == nil {
		t.Fatal("expected invariant violation to fail serialization")
	}
}

func TestParseRejectsWrongMessageType(t *testing.T) {
	buf, _ := SerializeHeartbeat(HeartbeatPayload{Timestamp: 1})
	msg, _, _ := Split(buf)
	if _, err := ParseCommand(msg); err == nil {
		t.Fatal("expected ParseCommand to reject a heartbeat payload")
	}
}

func TestParseInvalidJSONYieldsInvalidMessage(t *testing.T) {
	_, err := ParseCommand([]byte("not json"))
	if err == nil || err.Code != ErrInvalidMessage {
		t.Fatalf("err = %v, want InvalidMessage", err)
	}
}

func TestParseMissingRequestID(t *testing.T) {
	_, err := ParseCommand([]byte(`{"protocol_version":1,"message_type":1,"payload":{"command":"lm"}}`))
	if err == nil || err.Code != ErrInvalidMessage {
		t.Fatalf("err = %v, want InvalidMessage", err)
	}
}

func TestSplitNoDelimiterIsNotOK(t *testing.T) {
	_, rest, ok := Split([]byte(`{"partial":`))
	if ok {
		t.Fatal("expected ok=false without a delimiter")
	}
	if string(rest) != `{"partial":` {
		t.Fatalf("rest = %q", rest)
	}
}

func TestSplitRetainsTailAfterDelimiter(t *testing.T) {
	buf := append([]byte("first"), Delimiter...)
	buf = append(buf, []byte("second-partial")...)

	msg, rest, ok := Split(buf)
	if !ok {
		t.Fatal("expected ok=true")
	}
	if string(msg) != "first" {
		t.Fatalf("msg = %q", msg)
	}
	if string(rest) != "second-partial" {
		t.Fatalf("rest = %q", rest)
	}
}

func TestOversizedMessageRejected(t *testing.T) {
	big := make([]byte, MaxMessageSize+1)
	for i := range big {
		big[i] = 'x'
	}
	_, err := ParseCommand(big)
	if err == nil || err.Code != ErrInvalidMessage {
		t.Fatalf("err = %v, want InvalidMessage for oversized message", err)
	}
}

func TestMakeErrorPopulatesCategoryAndSuggestion(t *testing.T) {
	e := MakeError("r1", ErrTimeout, "took too long", nil)
	if e.Category != CategoryTimeout {
		t.Fatalf("Category = %v, want CategoryTimeout", e.Category)
	}
	if e.Suggestion == "" {
		t.Fatal("expected a non-empty suggestion")
	}
}

func TestMakeErrorUnknownCodeGetsDefaultSuggestion(t *testing.T) {
	e := MakeError("r1", ErrorCode(999), "weird", nil)
	if e.Suggestion != defaultSuggestion {
		t.Fatalf("Suggestion = %q, want default", e.Suggestion)
	}
}

func TestNewRequestIDIsUniqueAndHyphenated36Chars(t *testing.T) {
	a := NewRequestID()
	b := NewRequestID()
	if a == b {
		t.Fatal("expected distinct request ids")
	}
	if len(a) != 36 || strings.Count(a, "-") != 4 {
		t.Fatalf("id = %q, want 36-char hyphenated hex", a)
	}
}
