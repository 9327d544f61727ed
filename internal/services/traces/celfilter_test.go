package tracesvc

import (
	"testing"

	"github.com/rzbill/traced/internal/tracelog"
)

func TestFilterDisabledWhenEmpty(t *testing.T) {
	f, err := newCELFilter("   ")
	if err != nil {
		t.Fatalf("empty filter: %v", err)
	}
	if !f.Eval(1, tracelog.EventPoint, nil) {
		t.Fatalf("disabled filter must admit everything")
	}
}

func TestFilterByID(t *testing.T) {
	f, err := newCELFilter("id >= 100 && id < 200")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if !f.Eval(150, tracelog.EventPoint, nil) {
		t.Fatalf("id in range rejected")
	}
	if f.Eval(99, tracelog.EventPoint, nil) {
		t.Fatalf("id out of range admitted")
	}
}

func TestFilterByTypeAndSize(t *testing.T) {
	f, err := newCELFilter(`kind == "enter" && size <= 4`)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if !f.Eval(1, tracelog.EventEnter, []byte("ok")) {
		t.Fatalf("matching event rejected")
	}
	if f.Eval(1, tracelog.EventExit, []byte("ok")) {
		t.Fatalf("wrong type admitted")
	}
	if f.Eval(1, tracelog.EventEnter, []byte("too long")) {
		t.Fatalf("oversize admitted")
	}
}

func TestFilterByText(t *testing.T) {
	f, err := newCELFilter(`text.contains("boot")`)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if !f.Eval(1, tracelog.EventPoint, []byte("boot sequence")) {
		t.Fatalf("matching text rejected")
	}
	if f.Eval(1, tracelog.EventPoint, []byte("shutdown")) {
		t.Fatalf("non-matching text admitted")
	}
}

func TestFilterCompileError(t *testing.T) {
	if _, err := newCELFilter("((("); err == nil {
		t.Fatalf("expected compile error")
	}
}

func TestFilterNonBoolRejects(t *testing.T) {
	f, err := newCELFilter("id + 1")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if f.Eval(1, tracelog.EventPoint, nil) {
		t.Fatalf("non-bool result must reject")
	}
}
