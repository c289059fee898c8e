package process

import (
	"bytes"
	"context"
	"strings"
	"testing"

	apperrors "github.com/kbukum/procinvoke/errors"
)

func TestLookupEncoding(t *testing.T) {
	for _, name := range []string{"", "utf-8", "UTF8", "unicode-1-1-utf-8"} {
		enc, err := lookupEncoding(name)
		if err != nil || enc != nil {
			t.Errorf("lookupEncoding(%q) = %v, %v; want no transcoding", name, enc, err)
		}
	}
	if enc, err := lookupEncoding("shift_jis"); err != nil || enc == nil {
		t.Fatalf("lookupEncoding(shift_jis) = %v, %v", enc, err)
	}
	if _, err := lookupEncoding("klingon"); !apperrors.HasCode(err, apperrors.ErrCodeInvalidInput) {
		t.Fatalf("expected INVALID_INPUT, got %v", err)
	}
}

func TestCopyDecoded(t *testing.T) {
	var dst bytes.Buffer
	src := bytes.NewReader([]byte{'c', 'a', 'f', 0xe9})
	if err := copyDecoded(context.Background(), "output", &dst, src, "latin1"); err != nil {
		t.Fatalf("copyDecoded: %v", err)
	}
	if dst.String() != "café" {
		t.Fatalf("expected café, got %q", dst.String())
	}
}

func TestCopyDecodedStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var dst bytes.Buffer
	err := copyDecoded(ctx, "output", &dst, strings.NewReader("ignored"), "")
	if err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if dst.Len() != 0 {
		t.Fatalf("expected nothing copied, got %q", dst.String())
	}
}
