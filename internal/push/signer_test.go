package push

import "testing"

func TestSigner_SignAndVerify(t *testing.T) {
	s := NewSigner("test-secret")
	body := []byte(`{"event_id":"abc","data":{"x":1}}`)

	sig := s.Sign(1700000000, body)
	if len(sig) != 64 { // hex-encoded sha256 length
		t.Fatalf("bad signature length: %s", sig)
	}

	if !s.Verify(1700000000, body, sig) {
		t.Error("valid signature should verify")
	}

	if s.Verify(1700000001, body, sig) {
		t.Error("signature must not verify for a different timestamp")
	}

	if s.Verify(1700000000, []byte(`{"tampered":true}`), sig) {
		t.Error("signature must not verify for a tampered body")
	}

	other := NewSigner("other-secret")
	if other.Verify(1700000000, body, sig) {
		t.Error("signature must not verify with a different secret")
	}
}

func TestSigner_Deterministic(t *testing.T) {
	s := NewSigner("k")
	a := s.Sign(42, []byte("payload"))
	b := s.Sign(42, []byte("payload"))
	if a != b {
		t.Errorf("signature should be deterministic: %s vs %s", a, b)
	}
}
