package index

import "testing"

func TestExtractNumber(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"ep2", 2, false},
		{"episode_012", 12, false},
		{"seg10_part3", 10, false},
		{"42", 42, false},
		{"s0", 0, false},
		{"intro", 0, true},
		{"", 0, true},
		{"ep١٢", 0, true},
		{"x99999999999999999999999", 0, true},
	}
	for _, tt := range tests {
		got, err := ExtractNumber(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ExtractNumber(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ExtractNumber(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
