package cli

import (
	"os"
	"path/filepath"
	"testing"
)

func TestValidator_ValidateRanking(t *testing.T) {
	v := NewValidator()

	tests := []struct {
		name    string
		kind    string
		wantErr bool
	}{
		{name: "comedian", kind: "comedian", wantErr: false},
		{name: "professor", kind: "professor", wantErr: false},
		{name: "unknown", kind: "poet", wantErr: true},
		{name: "case sensitive", kind: "Comedian", wantErr: true},
		{name: "empty", kind: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateRanking(tt.kind)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateRanking() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidator_ValidateLimit(t *testing.T) {
	v := NewValidator()

	tests := []struct {
		name    string
		limit   int
		wantErr bool
		errMsg  string
	}{
		{name: "no limit", limit: 0, wantErr: false},
		{name: "positive", limit: 25, wantErr: false},
		{name: "negative", limit: -1, wantErr: true, errMsg: "--limit must not be negative, got -1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateLimit(tt.limit)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateLimit() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr && err.Error() != tt.errMsg {
				t.Errorf("ValidateLimit() error message = %v, want %v", err.Error(), tt.errMsg)
			}
		})
	}
}

func TestValidator_ValidateQuery(t *testing.T) {
	v := NewValidator()

	if err := v.ValidateQuery("road trip"); err != nil {
		t.Errorf("ValidateQuery() unexpected error = %v", err)
	}
	if err := v.ValidateQuery("   "); err == nil {
		t.Error("ValidateQuery() expected error for blank query")
	}
}

func TestValidator_ResolvePath(t *testing.T) {
	v := NewValidator()

	cwd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		path string
		want string
	}{
		{name: "empty path", path: "", want: ""},
		{name: "current directory", path: ".", want: cwd},
		{name: "absolute path", path: "/tmp/msgstats.db", want: "/tmp/msgstats.db"},
		{name: "relative path", path: "data/msgstats.db", want: filepath.Join(cwd, "data/msgstats.db")},
		{name: "home", path: "~", want: home},
		{name: "under home", path: "~/.msgstats/x.db", want: filepath.Join(home, ".msgstats/x.db")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := v.ResolvePath(tt.path)
			if err != nil {
				t.Fatalf("ResolvePath() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ResolvePath() = %v, want %v", got, tt.want)
			}
		})
	}
}
