package pinerr_test

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/yeisme/pinboard/pkg/pinerr"
)

// TestKindMatching 测试哨兵值按分类匹配，包装后仍可识别.
func TestKindMatching(t *testing.T) {
	err := pinerr.New(pinerr.NotFound, "pin %q does not exist", "cars")

	if !errors.Is(err, pinerr.ErrNotFound) {
		t.Fatalf("expected %v to match ErrNotFound", err)
	}

	if errors.Is(err, pinerr.ErrUsage) {
		t.Fatalf("NotFound must not match ErrUsage")
	}

	wrapped := fmt.Errorf("read pin: %w", err)
	if got := pinerr.KindOf(wrapped); got != pinerr.NotFound {
		t.Fatalf("KindOf(wrapped) = %v, want %v", got, pinerr.NotFound)
	}
}

func TestWrap(t *testing.T) {
	if pinerr.Wrap(pinerr.Schema, nil, "ignored") != nil {
		t.Fatal("Wrap(nil) must return nil")
	}

	err := pinerr.Wrap(pinerr.NotFound, fs.ErrNotExist, "metadata for %s", "cars")

	if !errors.Is(err, fs.ErrNotExist) {
		t.Error("wrapped cause lost")
	}

	if want := "metadata for cars: file does not exist"; err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestKindOfOther(t *testing.T) {
	if got := pinerr.KindOf(errors.New("boom")); got != pinerr.Other {
		t.Errorf("KindOf(plain) = %v", got)
	}

	if got := pinerr.Kind(99).String(); got != "kind(99)" {
		t.Errorf("unknown kind string = %q", got)
	}
}
