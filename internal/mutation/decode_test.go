package mutation

import (
	"errors"
	"testing"
)

func TestParser_Decode(t *testing.T) {
	p := NewParser()

	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr error
	}{
		{"single base", "C", "C", nil},
		{"run of bases", "CAT", "CAT", nil},
		{"substitution", "G>C", "C", nil},
		{"long substitution", "GTC>CAT", "CAT", nil},
		{"single deletion", "-", "-", nil},
		{"deletion run", "---", "---", nil},
		{"insertion", "+TATA", "", ErrUnsupportedFeature},
		{"lowercase", "g>c", "", ErrParse},
		{"empty", "", "", ErrParse},
		{"dangling reference", "G>", "", ErrParse},
		{"mixed deletion", "A-", "", ErrParse},
		{"bare plus", "+", "", ErrParse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.Decode(tt.raw)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Parser.Decode(%q) error = %v, want %v", tt.raw, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parser.Decode(%q) unexpected error %v", tt.raw, err)
			}
			if got != tt.want {
				t.Errorf("Parser.Decode(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestSite(t *testing.T) {
	if got := (Site{Position: 28881, Allele: "A"}).String(); got != "28881A" {
		t.Errorf("Site.String() = %q", got)
	}
	if !(Site{Position: 1, Allele: "---"}).Deletion() {
		t.Error("expected a deletion")
	}
	if (Site{Position: 1, Allele: "A"}).Deletion() {
		t.Error("substitution reported as deletion")
	}
}
