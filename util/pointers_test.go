package util

import "testing"

func TestPtr(t *testing.T) {
	v := 42
	p := Ptr(v)
	if *p != 42 {
		t.Errorf("expected *p=42, got %d", *p)
	}

	s := Ptr("hello")
	if *s != "hello" {
		t.Errorf("expected *s=hello, got %s", *s)
	}
}

func TestValueOr(t *testing.T) {
	tests := []struct {
		name     string
		p        *int64
		fallback int64
		want     int64
	}{
		{"nil uses fallback", nil, 4096, 4096},
		{"set value wins", Ptr[int64](1024), 4096, 1024},
		{"zero value is still set", Ptr[int64](0), 4096, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValueOr(tt.p, tt.fallback); got != tt.want {
				t.Errorf("ValueOr() = %d, want %d", got, tt.want)
			}
		})
	}
}
