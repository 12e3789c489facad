package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/suyashkumar/dicom/pkg/tag"
)

func validRun() *Run {
	r := Default()
	r.Root = "/data/scans"
	return r
}

func TestDefaultsValidate(t *testing.T) {
	for _, mode := range []struct {
		name string
		run  *Run
	}{
		{"patient", Default()},
		{"series", DefaultSeries()},
	} {
		t.Run(mode.name, func(t *testing.T) {
			mode.run.Root = "/data/scans"
			if err := mode.run.Validate(); err != nil {
				t.Errorf("default %s config invalid: %v", mode.name, err)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Run)
		wantErr bool
	}{
		{"valid", func(r *Run) {}, false},
		{"missing root", func(r *Run) { r.Root = "" }, true},
		{"missing pattern", func(r *Run) { r.Pattern = "" }, true},
		{"match field not extracted", func(r *Run) { r.MatchField = "SeriesDescription" }, true},
		{"unknown identity field", func(r *Run) { r.IdentityFields = []string{"NoSuchKeyword"} }, true},
		{"unknown updatable field", func(r *Run) { r.UpdatableFields = []string{"NoSuchKeyword"} }, true},
		{"creation field without choices", func(r *Run) { r.Creation = map[string][]string{"BodyPartExamined": nil} }, true},
		{"creation field with choices", func(r *Run) { r.Creation = map[string][]string{"BodyPartExamined": {"CHEST"}} }, false},
		{"unknown creation field", func(r *Run) { r.Creation = map[string][]string{"NoSuchKeyword": {"x"}} }, true},
		{"bad policy tag", func(r *Run) { r.Policy.Clear = []string{"NoSuchKeyword"} }, true},
		{"hex policy tag", func(r *Run) { r.Policy.Clear = []string{"0010,0020"} }, false},
		{"bad VR code", func(r *Run) { r.Policy.VRFilter = []string{"LONG"} }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := validRun()
			tt.mutate(r)
			err := r.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestResolveTag(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    tag.Tag
		wantErr bool
	}{
		{"keyword", "PatientID", tag.PatientID, false},
		{"hex pair", "0010,0020", tag.Tag{Group: 0x0010, Element: 0x0020}, false},
		{"hex pair with spaces", " 0009 , 0010 ", tag.Tag{Group: 0x0009, Element: 0x0010}, false},
		{"unknown keyword", "NoSuchKeyword", tag.Tag{}, true},
		{"bad hex", "XXXX,0020", tag.Tag{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveTag(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ResolveTag(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Errorf("ResolveTag(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestCompilePolicy(t *testing.T) {
	r := validRun()
	r.Policy = PolicyConfig{
		Spare:     []string{"AccessionNumber"},
		Clear:     []string{"PatientName", "0010,0020"},
		Overrides: map[string]string{"StationName": "REDACTED"},
		VRFilter:  []string{"PN"},
		Sentinel:  "Anonymized",
	}

	p, err := r.CompilePolicy()
	if err != nil {
		t.Fatalf("CompilePolicy: %v", err)
	}
	if len(p.Spare) != 1 || p.Spare[0] != tag.AccessionNumber {
		t.Errorf("Spare = %v", p.Spare)
	}
	if len(p.Clear) != 2 || p.Clear[1] != tag.PatientID {
		t.Errorf("Clear = %v", p.Clear)
	}
	if p.Overrides[tag.StationName] != "REDACTED" {
		t.Errorf("Overrides = %v", p.Overrides)
	}
	if p.Sentinel != "Anonymized" {
		t.Errorf("Sentinel = %q", p.Sentinel)
	}
}

func TestCompilePolicyEmptyClearUsesDefaults(t *testing.T) {
	p, err := validRun().CompilePolicy()
	if err != nil {
		t.Fatalf("CompilePolicy: %v", err)
	}
	if len(p.Clear) == 0 {
		t.Fatal("empty clear-list did not fall back to the default tags")
	}
	found := false
	for _, tg := range p.Clear {
		if tg == tag.PatientName {
			found = true
		}
	}
	if !found {
		t.Error("default clear-list lacks PatientName")
	}
}

func TestResolveCreations(t *testing.T) {
	r := validRun()
	r.Creation = map[string][]string{"BodyPartExamined": {"CHEST", "ABDOMEN"}}

	creations, err := r.ResolveCreations(map[string]string{"BodyPartExamined": "CHEST"})
	if err != nil {
		t.Fatalf("ResolveCreations: %v", err)
	}
	if creations[tag.BodyPartExamined] != "CHEST" {
		t.Errorf("creations = %v", creations)
	}

	if _, err := r.ResolveCreations(map[string]string{"BodyPartExamined": "HEAD"}); err == nil {
		t.Error("expected error for a value outside the option set")
	}
	if _, err := r.ResolveCreations(map[string]string{"StationName": "X"}); err == nil {
		t.Error("expected error for a field with no configured options")
	}

	// No choice means no tag creation, not an error.
	creations, err = r.ResolveCreations(nil)
	if err != nil {
		t.Fatalf("ResolveCreations(nil): %v", err)
	}
	if len(creations) != 0 {
		t.Errorf("creations = %v, want none", creations)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	doc := `
root: /data/scans
series_mode: false
updatable_fields:
  - PatientName
creation:
  BodyPartExamined:
    - CHEST
    - ABDOMEN
policy:
  spare:
    - AccessionNumber
  sentinel: Anonymized
`
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}

	r, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if r.Root != "/data/scans" {
		t.Errorf("Root = %q", r.Root)
	}
	if r.Pattern != "*.dcm" {
		t.Errorf("Pattern = %q, want default filled in", r.Pattern)
	}
	if r.MatchField != "AccessionNumber" {
		t.Errorf("MatchField = %q, want default filled in", r.MatchField)
	}
	if len(r.UpdatableFields) != 1 || r.UpdatableFields[0] != "PatientName" {
		t.Errorf("UpdatableFields = %v, want the explicit list kept", r.UpdatableFields)
	}
	if r.Policy.Sentinel != "Anonymized" {
		t.Errorf("Sentinel = %q", r.Policy.Sentinel)
	}
}

func TestLoadExpandsEnvironment(t *testing.T) {
	t.Setenv("SCAN_ROOT", "/data/scans")

	path := filepath.Join(t.TempDir(), "run.yaml")
	if err := os.WriteFile(path, []byte("root: ${SCAN_ROOT}\n"), 0644); err != nil {
		t.Fatal(err)
	}

	r, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if r.Root != "/data/scans" {
		t.Errorf("Root = %q, want the variable expanded", r.Root)
	}
}

func TestLoadInvalidConfigRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	if err := os.WriteFile(path, []byte("pattern: '*.dcm'\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error for a config without a root")
	}
}

func TestCasesConfig(t *testing.T) {
	r := validRun()
	r.Creation = map[string][]string{"StationName": {"A"}, "BodyPartExamined": {"CHEST"}}

	cfg := r.CasesConfig()
	if cfg.Root != r.Root || cfg.MatchField != r.MatchField {
		t.Errorf("cases config does not mirror the run: %+v", cfg)
	}
	want := []string{"BodyPartExamined", "StationName"}
	if len(cfg.CreationFields) != 2 || cfg.CreationFields[0] != want[0] || cfg.CreationFields[1] != want[1] {
		t.Errorf("CreationFields = %v, want sorted %v", cfg.CreationFields, want)
	}
}
