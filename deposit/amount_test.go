package deposit

import (
	"strings"
	"testing"
)

func TestSanitizeInput(t *testing.T) {
	tests := []struct {
		name string
		prev string
		next string
		want string
	}{
		{
			name: "third fractional digit rejected",
			prev: "100.5",
			next: "100.555",
			want: "100.5",
		},
		{
			name: "two fractional digits accepted",
			prev: "100.5",
			next: "100.55",
			want: "100.55",
		},
		{
			name: "above ceiling rejected",
			prev: "1000",
			next: "10001",
			want: "1000",
		},
		{
			name: "ceiling itself accepted",
			prev: "1000",
			next: "10000",
			want: "10000",
		},
		{
			name: "negative sign stripped",
			prev: "",
			next: "-5",
			want: "5",
		},
		{
			name: "clearing the field allowed",
			prev: "100",
			next: "",
			want: "",
		},
		{
			name: "trailing decimal point allowed while typing",
			prev: "100",
			next: "100.",
			want: "100.",
		},
		{
			name: "letters rejected",
			prev: "10",
			next: "10a",
			want: "10",
		},
		{
			name: "second decimal point rejected",
			prev: "10.5",
			next: "10.5.",
			want: "10.5",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SanitizeInput(tt.prev, tt.next)
			if got != tt.want {
				t.Errorf("SanitizeInput(%q, %q) = %q, want %q", tt.prev, tt.next, got, tt.want)
			}
		})
	}
}

func TestValidateSubmit(t *testing.T) {
	method := &Method{ID: "cryptomus", Name: "Cryptomus", MinAmount: 5}

	tests := []struct {
		name    string
		raw     string
		want    float64
		wantErr bool
	}{
		{name: "valid amount", raw: "5", want: 5},
		{name: "valid decimal amount", raw: "10.50", want: 10.5},
		{name: "empty input", raw: "", wantErr: true},
		{name: "below minimum", raw: "4.99", wantErr: true},
		{name: "leading zero integer", raw: "010", wantErr: true},
		{name: "zero with decimals accepted shape but below minimum", raw: "0.50", wantErr: true},
		{name: "above ceiling", raw: "10001", wantErr: true},
		{name: "three fractional digits", raw: "5.555", wantErr: true},
		{name: "non numeric", raw: "abc", wantErr: true},
		{name: "negative", raw: "-5", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateSubmit(tt.raw, method)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateSubmit(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ValidateSubmit(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestValidateSubmitMinimumMessageNamesMethod(t *testing.T) {
	method := &Method{ID: "latam", Name: "Latin America", MinAmount: 10}

	_, err := ValidateSubmit("9.99", method)
	if err == nil {
		t.Fatal("expected an error for a below-minimum amount")
	}
	if !strings.Contains(err.Error(), "Latin America") {
		t.Errorf("error %q does not name the method", err.Error())
	}
	if !strings.Contains(err.Error(), "10.00") {
		t.Errorf("error %q does not name the minimum", err.Error())
	}
}
