package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/p-n-ai/mentora/internal/dedup"
)

func TestCommandTree(t *testing.T) {
	want := []string{"create-staff", "delete-group", "detect", "migrate", "seed"}
	for _, name := range want {
		cmd, _, err := rootCmd.Find([]string{name})
		if err != nil {
			t.Errorf("Find(%q) error = %v", name, err)
			continue
		}
		if cmd.Name() != name {
			t.Errorf("Find(%q) = %q", name, cmd.Name())
		}
		if cmd.RunE == nil {
			t.Errorf("%s has no RunE", name)
		}
	}
}

func TestSeedRequiresDir(t *testing.T) {
	if err := seedCmd.Args(seedCmd, nil); err == nil {
		t.Error("seed should require a directory argument")
	}
	if err := seedCmd.Args(seedCmd, []string{"./banks"}); err != nil {
		t.Errorf("seed ./banks error = %v", err)
	}
}

const testSubject = "3f2b8c1e-5d4a-4e8b-9c7f-1a2b3c4d5e6f"

func newDetectFlags(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "detect"}
	addDetectFlags(cmd)
	if err := cmd.ParseFlags(args); err != nil {
		t.Fatalf("ParseFlags(%v) error = %v", args, err)
	}
	return cmd
}

func TestDetectRequest(t *testing.T) {
	tests := []struct {
		name          string
		args          []string
		wantLevel     *int
		wantSubject   string
		wantThreshold *float64
		wantErr       bool
	}{
		{name: "no flags"},
		{name: "class level zero is a filter", args: []string{"--class-level", "0"}, wantLevel: intPtr(0)},
		{name: "class level", args: []string{"--class-level", "5"}, wantLevel: intPtr(5)},
		{name: "subject", args: []string{"--subject", testSubject}, wantSubject: testSubject},
		{name: "subject not a uuid", args: []string{"--subject", "abc"}, wantErr: true},
		{name: "threshold", args: []string{"--threshold", "0.9"}, wantThreshold: floatPtr(0.9)},
		{name: "threshold out of range", args: []string{"--threshold", "1.5"}, wantErr: true},
		{name: "threshold zero", args: []string{"--threshold", "0"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := detectRequest(newDetectFlags(t, tt.args...))
			if (err != nil) != tt.wantErr {
				t.Fatalf("detectRequest() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if !equalPtr(req.Filter.ClassLevel, tt.wantLevel) {
				t.Errorf("ClassLevel = %v, want %v", req.Filter.ClassLevel, tt.wantLevel)
			}
			if req.Filter.SubjectID != tt.wantSubject {
				t.Errorf("SubjectID = %q, want %q", req.Filter.SubjectID, tt.wantSubject)
			}
			if !equalPtr(req.Threshold, tt.wantThreshold) {
				t.Errorf("Threshold = %v, want %v", req.Threshold, tt.wantThreshold)
			}
		})
	}
}

func TestWriteReportJSON(t *testing.T) {
	var buf bytes.Buffer
	report := dedup.Report{
		Threshold:   0.85,
		Groups:      []dedup.Group{},
		GeneratedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	if err := writeReportJSON(&buf, report); err != nil {
		t.Fatalf("writeReportJSON() error = %v", err)
	}
	out := buf.String()
	for _, want := range []string{`"threshold": 0.85`, `"duplicates": []`, `"total_groups": 0`} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %s:\n%s", want, out)
		}
	}
}

func TestDeleteGroupArgs(t *testing.T) {
	if err := deleteGroupCmd.Args(deleteGroupCmd, nil); err == nil {
		t.Error("delete-group should require at least one id")
	}
	cmd := &cobra.Command{Use: "delete-group"}
	addDeleteFlags(cmd)
	if err := cmd.ParseFlags([]string{"--dry-run", "--group-id", "g1"}); err != nil {
		t.Fatalf("ParseFlags() error = %v", err)
	}
	if dry, _ := cmd.Flags().GetBool("dry-run"); !dry {
		t.Error("--dry-run not parsed")
	}
}

func TestWriteDeleteResult(t *testing.T) {
	var buf bytes.Buffer
	res := dedup.DeleteResult{DeletedCount: 2, PreservedCount: 1, PreservedID: "a", DeletedIDs: []string{"b", "c"}}
	if err := writeDeleteResult(&buf, res, true); err != nil {
		t.Fatalf("writeDeleteResult() error = %v", err)
	}
	out := buf.String()
	for _, want := range []string{`"deleted_count": 2`, `"preserved_id": "a"`, `"dry_run": true`} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %s:\n%s", want, out)
		}
	}
}

func TestStaffPassword(t *testing.T) {
	newCmd := func(args ...string) *cobra.Command {
		cmd := &cobra.Command{Use: "create-staff"}
		addStaffFlags(cmd)
		if err := cmd.ParseFlags(args); err != nil {
			t.Fatalf("ParseFlags() error = %v", err)
		}
		return cmd
	}

	t.Setenv(passwordEnv, "")
	if _, err := staffPassword(newCmd()); err == nil {
		t.Error("staffPassword() should fail with no flag or env")
	}

	t.Setenv(passwordEnv, "from-env-secret")
	if got, _ := staffPassword(newCmd()); got != "from-env-secret" {
		t.Errorf("staffPassword() = %q, want env value", got)
	}
	if got, _ := staffPassword(newCmd("--password", "from-flag-secret")); got != "from-flag-secret" {
		t.Errorf("staffPassword() = %q, want flag value", got)
	}
}

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

func equalPtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
