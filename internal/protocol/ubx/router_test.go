package ubx

import (
	"context"
	"errors"
	"testing"
)

func TestTable_RegisterAndRoute(t *testing.T) {
	table := NewTable()

	var gotSrc string
	var gotFrame *Frame
	table.Register(ClassNav, IDNavPosLLH, func(_ context.Context, src string, f *Frame) error {
		gotSrc = src
		gotFrame = f
		return nil
	})

	f := &Frame{Class: ClassNav, ID: IDNavPosLLH, Payload: []byte{0x01}}
	if err := table.Route(context.Background(), "recv-1", f); err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	if gotSrc != "recv-1" || gotFrame != f {
		t.Fatalf("handler saw src=%q frame=%p", gotSrc, gotFrame)
	}
}

func TestTable_UnknownSilentlyIgnored(t *testing.T) {
	table := NewTable()
	f := &Frame{Class: 0x0A, ID: 0x09}
	if err := table.Route(context.Background(), "recv-1", f); err != nil {
		t.Fatalf("Route() error = %v, want nil for unregistered message", err)
	}
}

func TestTable_Fallback(t *testing.T) {
	table := NewTable()
	table.Register(ClassNav, IDNavPosLLH, func(context.Context, string, *Frame) error { return nil })

	fallbackCalls := 0
	table.SetFallback(func(_ context.Context, _ string, f *Frame) error {
		fallbackCalls++
		return nil
	})

	_ = table.Route(context.Background(), "x", &Frame{Class: ClassNav, ID: IDNavPosLLH})
	if fallbackCalls != 0 {
		t.Fatalf("fallback called for registered message")
	}
	_ = table.Route(context.Background(), "x", &Frame{Class: 0x0A, ID: 0x09})
	if fallbackCalls != 1 {
		t.Fatalf("fallback calls = %d, want 1", fallbackCalls)
	}
}

func TestTable_HandlerError(t *testing.T) {
	table := NewTable()
	wantErr := errors.New("boom")
	table.Register(ClassAck, IDAckNak, func(context.Context, string, *Frame) error { return wantErr })

	err := table.Route(context.Background(), "x", &Frame{Class: ClassAck, ID: IDAckNak})
	if !errors.Is(err, wantErr) {
		t.Fatalf("Route() error = %v, want handler error", err)
	}
}

func TestTable_Lookup(t *testing.T) {
	table := NewTable()
	if _, ok := table.Lookup(ClassNav, IDNavSat); ok {
		t.Fatalf("Lookup() found handler in empty table")
	}
	table.Register(ClassNav, IDNavSat, func(context.Context, string, *Frame) error { return nil })
	if _, ok := table.Lookup(ClassNav, IDNavSat); !ok {
		t.Fatalf("Lookup() missed registered handler")
	}
}

func TestKey(t *testing.T) {
	if Key(0x01, 0x02) != 0x0102 {
		t.Fatalf("Key(0x01,0x02) = 0x%04X", Key(0x01, 0x02))
	}
	f := &Frame{Class: 0x05, ID: 0x01}
	if f.Key() != 0x0501 {
		t.Fatalf("Frame.Key() = 0x%04X", f.Key())
	}
}
