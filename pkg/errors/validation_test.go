package errors

import (
	"math"
	"testing"
)

func TestValidatePath(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		relative bool
		wantErr  bool
	}{
		{"valid simple", "out.svg", true, false},
		{"valid nested", "renders/ball.png", true, false},
		{"absolute allowed for cli", "/tmp/out.svg", false, false},
		{"dotdot allowed for cli", "../out.svg", false, false},

		{"empty", "", false, true},
		{"too long", string(make([]byte, 600)), false, true},
		{"null byte", "foo\x00bar", false, true},
		{"absolute", "/etc/passwd", true, true},
		{"path traversal", "foo/../../bar", true, true},
		{"backslash", "foo\\bar", true, true},
		{"newline", "foo\nbar", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePath(tt.input, tt.relative)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePath(%q, %v) error = %v, wantErr %v", tt.input, tt.relative, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidPath) {
				t.Errorf("ValidatePath(%q) code = %v, want %v", tt.input, GetCode(err), ErrCodeInvalidPath)
			}
		})
	}
}

func TestValidateColor(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"#111111", false},
		{"#fff", false},
		{"#A0b1C2", false},
		{"111111", true},
		{"#11111", true},
		{"#gggggg", true},
		{"black", true},
		{"", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			err := ValidateColor(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateColor(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidatePositive(t *testing.T) {
	for _, v := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		if err := ValidatePositive("gamma", v); err == nil {
			t.Errorf("ValidatePositive(%v) should fail", v)
		} else if !Is(err, ErrCodeInvalidParameter) {
			t.Errorf("ValidatePositive(%v) code = %v", v, GetCode(err))
		}
	}
	if err := ValidatePositive("gamma", 0.5); err != nil {
		t.Errorf("ValidatePositive(0.5) error = %v", err)
	}
}

func TestValidateUnit(t *testing.T) {
	for _, v := range []float64{0, 0.5, 1} {
		if err := ValidateUnit("relax", v); err != nil {
			t.Errorf("ValidateUnit(%v) error = %v", v, err)
		}
	}
	for _, v := range []float64{-0.01, 1.01, math.NaN()} {
		if err := ValidateUnit("relax", v); err == nil {
			t.Errorf("ValidateUnit(%v) should fail", v)
		}
	}
}

func TestValidateFormat(t *testing.T) {
	allowed := []string{"svg", "png", "json"}
	for _, f := range allowed {
		if err := ValidateFormat(f, allowed...); err != nil {
			t.Errorf("ValidateFormat(%q) = %v", f, err)
		}
	}
	for _, f := range []string{"", "SVG", "pdf"} {
		err := ValidateFormat(f, allowed...)
		if !Is(err, ErrCodeInvalidFormat) {
			t.Errorf("ValidateFormat(%q) = %v, want INVALID_FORMAT", f, err)
		}
	}
}
