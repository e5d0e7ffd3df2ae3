package errors

import (
	"strings"
	"testing"
)

func TestValidateResourceGroup(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"empty means all", "", false},
		{"simple", "rg-network", false},
		{"parentheses and dots", "rg.prod(eu)", false},
		{"underscore", "rg_shared", false},

		{"trailing period", "rg-network.", true},
		{"quote injection", "rg' or 1==1", true},
		{"space", "rg network", true},
		{"too long", strings.Repeat("a", 91), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateResourceGroup(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateResourceGroup(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidScope) {
				t.Errorf("code = %v, want %v", GetCode(err), ErrCodeInvalidScope)
			}
		})
	}
}

func TestValidateSubscriptionID(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"", false},
		{"00000000-1111-2222-3333-444444444444", false},
		{"ABCDEF00-1111-2222-3333-444444444444", false},
		{"not-a-guid", true},
		{"00000000-1111-2222-3333-44444444444", true},
	}

	for _, tt := range tests {
		err := ValidateSubscriptionID(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateSubscriptionID(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
		}
	}
}

func TestValidateDiagramName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple", "prod-network", false},
		{"with spaces", "Prod Network (EU)", false},
		{"unicode", "本番環境", false},

		{"empty", "", true},
		{"blank", "   ", true},
		{"slash", "a/b", true},
		{"traversal", "..", true},
		{"backslash", "a\\b", true},
		{"newline", "a\nb", true},
		{"too long", strings.Repeat("n", 129), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDiagramName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateDiagramName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidatePath(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid simple", "out.drawio", false},
		{"valid nested", "diagrams/prod/out.drawio", false},

		{"empty", "", true},
		{"absolute", "/etc/passwd", true},
		{"traversal", "../secret", true},
		{"backslash", "a\\b", true},
		{"null byte", "a\x00b", true},
		{"too long", strings.Repeat("a", 501), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePath(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePath(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}
