package util

import "testing"

func TestParseSize(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"1024", 1024, false},
		{"512KB", 512 << 10, false},
		{"64mb", 64 << 20, false},
		{"2 GB", 2 << 30, false},
		{"10B", 10, false},
		{"", 0, true},
		{"lots", 0, true},
		{"-5MB", 0, true},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseSize(tc.in)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tc.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("ParseSize(%q) = %d, want %d", tc.in, got, tc.want)
			}
		})
	}
}

func TestFormatSize(t *testing.T) {
	tests := map[int64]string{
		100:      "100B",
		2048:     "2KB",
		64 << 20: "64MB",
		3 << 30:  "3GB",
		1500:     "1500B",
	}
	for in, want := range tests {
		if got := FormatSize(in); got != want {
			t.Errorf("FormatSize(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestParseEnvAssignment(t *testing.T) {
	tests := []struct {
		in       string
		key, val string
		wantErr  bool
	}{
		{"A=1", "A", "1", false},
		{"PATH=/usr/bin:/bin", "PATH", "/usr/bin:/bin", false},
		{`MSG="hello world"`, "MSG", "hello world", false},
		{"EMPTY=", "EMPTY", "", false},
		{"EQ=a=b", "EQ", "a=b", false},
		{"novalue", "", "", true},
		{"=x", "", "", true},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			key, val, err := ParseEnvAssignment(tc.in)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tc.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if key != tc.key || val != tc.val {
				t.Errorf("got %q=%q, want %q=%q", key, val, tc.key, tc.val)
			}
		})
	}
}

func TestMaskSecret(t *testing.T) {
	if got := MaskSecret("hunter2", 2); got != "hu***" {
		t.Errorf("unexpected mask: %q", got)
	}
	if got := MaskSecret("ab", 4); got != "***" {
		t.Errorf("expected full mask, got %q", got)
	}
}
