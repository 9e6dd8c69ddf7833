package compress

import "testing"

func TestQuality(t *testing.T) {
	tests := []struct {
		name   string
		bytes  int
		want   float64
		wantOK bool
	}{
		{"small image keeps source quality", 2_000_000, 0, false},
		{"exactly at lowest band", 3_000_000, 0, false},
		{"small band", 5_000_000, 0.6, true},
		{"medium band", 12_000_000, 0.5, true},
		{"large band", 20_000_000, 0.5, true},
		{"huge band", 50_000_000, 0.5, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Quality(tt.bytes)
			if ok != tt.wantOK {
				t.Fatalf("Quality(%d) ok = %v, want %v", tt.bytes, ok, tt.wantOK)
			}
			if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("Quality(%d) = %v, want %v", tt.bytes, got, tt.want)
			}
		})
	}
}

func TestFrameQuality(t *testing.T) {
	tests := []struct {
		name    string
		raw     int
		cropped int
		want    float64
	}{
		{"large frame floors at 0.3", 100_000, 1_000_000, 0.3},
		{"large frame keeps higher ratio", 900_000, 1_000_000, 0.9},
		{"medium frame floors at 0.5", 100_000, 600_000, 0.5},
		{"small band floors at 0.7", 100_000, 300_000, 0.7},
		{"small band keeps ratio above floor", 240_000, 300_000, 0.8},
		{"tiny frame uses fixed quality", 10, 100_000, 0.9},
		{"empty cropped frame", 100, 0, 0.9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FrameQuality(tt.raw, tt.cropped)
			if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("FrameQuality(%d, %d) = %v, want %v", tt.raw, tt.cropped, got, tt.want)
			}
		})
	}
}
