package sheets

import (
	"testing"
	"time"
)

func TestMonthSheetNames(t *testing.T) {
	cases := []struct {
		month time.Month
		want  string
	}{
		{time.January, "Январь"},
		{time.May, "Май"},
		{time.September, "Сентябрь"},
		{time.December, "Декабрь"},
	}
	for _, tc := range cases {
		at := time.Date(2025, tc.month, 15, 0, 0, 0, 0, time.UTC)
		if got := MonthSheet(at); got != tc.want {
			t.Fatalf("MonthSheet(%v) = %q, want %q", tc.month, got, tc.want)
		}
	}
}

func TestConfigTimeoutDefault(t *testing.T) {
	if got := (Config{}).timeout(); got != 15*time.Second {
		t.Fatalf("default timeout = %v", got)
	}
	if got := (Config{TimeoutSeconds: 30}).timeout(); got != 30*time.Second {
		t.Fatalf("timeout = %v", got)
	}
}
