package run

import (
	"strings"
	"testing"
	"time"

	"github.com/Iron-Ham/olx/internal/errors"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		args    Args
		want    Configuration
		wantErr any
	}{
		{
			name: "valid run",
			args: Args{Name: "fall2019", StartDate: "2019-09-01", EndDate: "2019-12-15"},
			want: Configuration{Name: "fall2019", StartDate: date(2019, 9, 1), EndDate: date(2019, 12, 15)},
		},
		{
			name: "same day",
			args: Args{Name: "oneday", StartDate: "2019-03-03", EndDate: "2019-03-03", Suffix: "Sprint", Public: true, CreateBranch: true},
			want: Configuration{
				Name: "oneday", StartDate: date(2019, 3, 3), EndDate: date(2019, 3, 3),
				Suffix: "Sprint", Public: true, CreateBranch: true,
			},
		},
		{
			name:    "reserved name",
			args:    Args{Name: "_base", StartDate: "2019-01-01", EndDate: "2019-01-31"},
			wantErr: &errors.ReservedNameError{},
		},
		{
			name:    "reserved name with inverted dates",
			args:    Args{Name: "_base", StartDate: "2019-02-01", EndDate: "2019-01-31"},
			wantErr: &errors.ReservedNameError{},
		},
		{
			name:    "empty name",
			args:    Args{Name: "", StartDate: "2019-01-01", EndDate: "2019-01-31"},
			wantErr: &errors.InvalidNameError{},
		},
		{
			name:    "parent directory",
			args:    Args{Name: "..", StartDate: "2019-01-01", EndDate: "2019-01-31"},
			wantErr: &errors.InvalidNameError{},
		},
		{
			name:    "path escape",
			args:    Args{Name: "../escape", StartDate: "2019-01-01", EndDate: "2019-01-31"},
			wantErr: &errors.InvalidNameError{},
		},
		{
			name:    "end before start",
			args:    Args{Name: "foo", StartDate: "2019-02-01", EndDate: "2019-01-31"},
			wantErr: &errors.DateOrderError{},
		},
		{
			name:    "impossible day",
			args:    Args{Name: "foo", StartDate: "2019-02-01", EndDate: "2019-02-31"},
			wantErr: &errors.InvalidDateError{},
		},
		{
			name:    "wrong layout",
			args:    Args{Name: "foo", StartDate: "01/02/2019", EndDate: "2019-02-28"},
			wantErr: &errors.InvalidDateError{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.args)

			switch want := tt.wantErr.(type) {
			case nil:
				if err != nil {
					t.Fatalf("Parse() error = %v", err)
				}
				if got != tt.want {
					t.Errorf("Parse() = %+v, want %+v", got, tt.want)
				}
			case *errors.ReservedNameError:
				if !errors.As(err, &want) {
					t.Errorf("Parse() error = %v, want ReservedNameError", err)
				}
			case *errors.InvalidNameError:
				if !errors.As(err, &want) {
					t.Errorf("Parse() error = %v, want InvalidNameError", err)
				}
				if !errors.IsUsage(err) {
					t.Errorf("Parse() error = %v should be a usage error", err)
				}
			case *errors.DateOrderError:
				if !errors.As(err, &want) {
					t.Errorf("Parse() error = %v, want DateOrderError", err)
				}
			case *errors.InvalidDateError:
				if !errors.As(err, &want) {
					t.Errorf("Parse() error = %v, want InvalidDateError", err)
				}
			}

			if tt.wantErr != nil && !errors.IsUsage(err) {
				t.Errorf("Parse() error %v should be a usage error", err)
			}
		})
	}
}

func TestParse_InvalidDateNamesLiteral(t *testing.T) {
	literals := []string{"2019-02-31", "2019-13-01", "yesterday", "", "2019-1-1"}

	for _, lit := range literals {
		t.Run(lit, func(t *testing.T) {
			_, err := Parse(Args{Name: "foo", StartDate: "2019-01-01", EndDate: lit})
			if err == nil {
				t.Fatal("Parse() should fail")
			}
			if !strings.Contains(err.Error(), "Not a valid date: '"+lit+"'") {
				t.Errorf("error %q does not name literal %q", err.Error(), lit)
			}
		})
	}
}

func TestParse_DateOrderMessage(t *testing.T) {
	_, err := Parse(Args{Name: "foo", StartDate: "2019-02-01", EndDate: "2019-01-31"})
	if err == nil {
		t.Fatal("Parse() should fail")
	}
	if !strings.Contains(err.Error(), "must be greater than or equal") {
		t.Errorf("error = %q", err.Error())
	}
	if !strings.Contains(err.Error(), "[2019-01-31]") || !strings.Contains(err.Error(), "[2019-02-01]") {
		t.Errorf("error %q should show both dates", err.Error())
	}
}

func TestConfiguration_Context(t *testing.T) {
	cfg := Configuration{
		Name:      "fall2019",
		StartDate: date(2019, 9, 1),
		EndDate:   date(2019, 12, 15),
		Suffix:    "Online",
		Public:    true,
	}

	ctx := cfg.Context()

	if ctx.RunName != "fall2019" || ctx.Suffix != "Online" || !ctx.IsPublic {
		t.Errorf("Context() = %+v", ctx)
	}
	if !ctx.StartDate.Equal(cfg.StartDate) {
		t.Errorf("StartDate = %v, want %v", ctx.StartDate, cfg.StartDate)
	}
	want := time.Date(2019, 12, 15, 23, 59, 59, 0, time.UTC)
	if !ctx.EndDate.Equal(want) {
		t.Errorf("EndDate = %v, want %v", ctx.EndDate, want)
	}
	if !cfg.EndDate.Equal(date(2019, 12, 15)) {
		t.Error("Context() must not modify the configuration")
	}
}

func TestBranchNameAndCommitMessage(t *testing.T) {
	if got := BranchName("run", "fall2019"); got != "run/fall2019" {
		t.Errorf("BranchName() = %q", got)
	}
	if got := CommitMessage("fall2019"); got != "New run: fall2019" {
		t.Errorf("CommitMessage() = %q", got)
	}
}

func TestValidName(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"fall2019", true},
		{"spring-2020.v2", true},
		{"_base", true},
		{"", false},
		{".", false},
		{"..", false},
		{"../escape", false},
		{"a/b", false},
		{"/abs", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidName(tt.name); got != tt.want {
				t.Errorf("ValidName(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}
