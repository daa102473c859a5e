package interrupt

import (
	"errors"
	"testing"
)

func TestControllerFIFOOrder(t *testing.T) {
	c := New()
	c.RequestSyscall(1, 0x1000)
	c.RequestException(errors.New("boom"), 0x1004)
	req, ok := c.Next()
	if !ok || req.Kind != KindSyscall || req.Code != 1 {
		t.Fatalf("got %+v, %v", req, ok)
	}
	req, ok = c.Next()
	if !ok || req.Kind != KindException {
		t.Fatalf("got %+v, %v", req, ok)
	}
	if c.Pending() {
		t.Fatalf("expected queue drained")
	}
}

func TestHandlerAddrDefaultsWhenUnset(t *testing.T) {
	c := New()
	if c.HandlerAddr() != DefaultHandlerAddr {
		t.Errorf("got %#x, want %#x", c.HandlerAddr(), DefaultHandlerAddr)
	}
	if c.HasHandler() {
		t.Errorf("expected no handler installed")
	}
	c.InstallHandler(0x80000200)
	if c.HandlerAddr() != 0x80000200 || !c.HasHandler() {
		t.Errorf("installed handler not reflected")
	}
}
