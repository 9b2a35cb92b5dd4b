package errors

import (
	"strings"
	"testing"
)

func TestValidateNodeName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid simple", "matmul", false},
		{"valid scoped", "model/layer_1/MatMul", false},
		{"valid with dots", "conv2d.bias", false},

		{"empty", "", true},
		{"too long", strings.Repeat("a", 300), true},
		{"port suffix", "matmul:0", true},
		{"control input", "^matmul", true},
		{"space", "mat mul", true},
		{"null byte", "mat\x00mul", true},
		{"newline", "mat\nmul", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateNodeName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateNodeName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidNode) {
				t.Errorf("ValidateNodeName(%q) returned wrong error code: %v", tt.input, err)
			}
		})
	}
}

func TestValidateOpName(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"", false},
		{"MatMul", false},
		{"nn.Conv2D", false},
		{"_Retval", false},
		{"1Op", true},
		{"Mat-Mul", true},
		{"Mat Mul", true},
		{strings.Repeat("A", 300), true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			err := ValidateOpName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateOpName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateDevicePrefix(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"/device:ACCEL:", false},
		{"/device:GPU:", false},
		{"", true},
		{"/device: GPU:", true},
		{"/device:\tGPU:", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			err := ValidateDevicePrefix(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateDevicePrefix(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidArgument) {
				t.Errorf("ValidateDevicePrefix(%q) returned wrong error code: %v", tt.input, err)
			}
		})
	}
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"redis://localhost:6379/0", false},
		{"rediss://cache.internal:6380", false},
		{"", true},
		{"http://localhost:6379", true},
		{"localhost:6379", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			err := ValidateURL(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateURL(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestErrorCodesAreUnique(t *testing.T) {
	codes := []Code{
		ErrCodeInvalidArgument,
		ErrCodeUnimplemented,
		ErrCodeInternal,
		ErrCodeInvalidInput,
		ErrCodeInvalidFormat,
		ErrCodeInvalidNode,
		ErrCodeInvalidConfig,
		ErrCodeNotFound,
		ErrCodeFileNotFound,
		ErrCodeNetwork,
		ErrCodeTimeout,
		ErrCodeUnsupported,
	}

	seen := make(map[Code]bool)
	for _, code := range codes {
		if seen[code] {
			t.Errorf("Duplicate error code: %s", code)
		}
		seen[code] = true
	}
}
