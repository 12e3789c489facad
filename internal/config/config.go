// Package config holds the serializable run configuration: which fields
// identify a case, which are shown for reference, which may be overridden,
// and the redaction policy itself. A Run is explicit per invocation; nothing
// survives between runs outside the exported tables.
package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/suyashkumar/dicom/pkg/tag"
	"gopkg.in/yaml.v3"

	"dicom-redactor/internal/cases"
	"dicom-redactor/internal/redact"
)

// Run is one anonymization run's full configuration.
type Run struct {
	Root    string `yaml:"root"`
	Pattern string `yaml:"pattern"`

	// SeriesMode keys cases by acquisition series instead of by patient.
	SeriesMode bool `yaml:"series_mode"`

	IdentityFields  []string `yaml:"identity_fields"`
	ReferenceFields []string `yaml:"reference_fields"`
	UpdatableFields []string `yaml:"updatable_fields"`

	// MatchField is the column used to match uploaded override rows to
	// cases. It must be one of the extracted fields.
	MatchField string `yaml:"match_field"`

	// ProposedDefaults pre-seeds Proposed_ columns in the exported template.
	ProposedDefaults map[string]string `yaml:"proposed_defaults"`

	// Creation maps a field to the finite set of values an operator may
	// choose from when records lack the tag.
	Creation map[string][]string `yaml:"creation"`

	Policy PolicyConfig `yaml:"policy"`
}

// PolicyConfig is the YAML form of the redaction policy. Tags are given as
// dictionary keywords ("PatientID") or "GGGG,EEEE" hex pairs.
type PolicyConfig struct {
	Spare     []string          `yaml:"spare"`
	Clear     []string          `yaml:"clear"`
	Overrides map[string]string `yaml:"overrides"`
	VRFilter  []string          `yaml:"vr_filter"`
	Sentinel  string            `yaml:"sentinel"`
}

// Default returns the per-patient run configuration.
func Default() *Run {
	return &Run{
		Pattern:         "*.dcm",
		IdentityFields:  []string{"PatientName", "PatientID", "AccessionNumber"},
		ReferenceFields: []string{"PatientBirthDate", "PatientSex", "PatientAge", "StudyDate", "StudyTime", "BodyPartExamined"},
		UpdatableFields: []string{"PatientName", "PatientID", "BodyPartExamined"},
		MatchField:      "AccessionNumber",
	}
}

// DefaultSeries returns the per-series run configuration.
func DefaultSeries() *Run {
	r := Default()
	r.SeriesMode = true
	r.IdentityFields = []string{"PatientID", "SeriesInstanceUID"}
	r.ReferenceFields = append(r.ReferenceFields, "SeriesInstanceUID")
	r.UpdatableFields = append(r.UpdatableFields, "SeriesDescription")
	r.MatchField = "SeriesInstanceUID"
	return r
}

// Load reads a YAML run configuration with environment variable expansion,
// fills unset sections from the mode's defaults, and validates it.
func Load(filename string) (*Run, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", filename, err)
	}

	r := &Run{}
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), r); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", filename, err)
	}

	r.ApplyDefaults()
	if err := r.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return r, nil
}

// ApplyDefaults fills unset field lists from the defaults of the selected
// mode.
func (r *Run) ApplyDefaults() {
	def := Default()
	if r.SeriesMode {
		def = DefaultSeries()
	}
	if r.Pattern == "" {
		r.Pattern = def.Pattern
	}
	if len(r.IdentityFields) == 0 {
		r.IdentityFields = def.IdentityFields
	}
	if len(r.ReferenceFields) == 0 {
		r.ReferenceFields = def.ReferenceFields
	}
	if len(r.UpdatableFields) == 0 {
		r.UpdatableFields = def.UpdatableFields
	}
	if r.MatchField == "" {
		r.MatchField = def.MatchField
	}
}

// Validate checks the configuration for self-contradictions before any file
// is touched.
func (r *Run) Validate() error {
	if err := validation.ValidateStruct(r,
		validation.Field(&r.Root, validation.Required),
		validation.Field(&r.Pattern, validation.Required),
		validation.Field(&r.IdentityFields, validation.Required),
		validation.Field(&r.MatchField, validation.Required),
	); err != nil {
		return err
	}

	if !containsField(r.extractedFields(), r.MatchField) {
		return fmt.Errorf("match_field %q is not among the extracted fields", r.MatchField)
	}

	for _, name := range r.extractedFields() {
		if _, err := tag.FindByName(name); err != nil {
			return fmt.Errorf("unknown field %q", name)
		}
	}
	for _, name := range r.UpdatableFields {
		if _, err := tag.FindByName(name); err != nil {
			return fmt.Errorf("unknown updatable field %q", name)
		}
	}

	for field, options := range r.Creation {
		if _, err := tag.FindByName(field); err != nil {
			return fmt.Errorf("unknown creation field %q", field)
		}
		if len(options) == 0 {
			return fmt.Errorf("creation field %q has no configured choices", field)
		}
	}

	for _, s := range append(append([]string{}, r.Policy.Spare...), r.Policy.Clear...) {
		if _, err := ResolveTag(s); err != nil {
			return err
		}
	}
	for s := range r.Policy.Overrides {
		if _, err := ResolveTag(s); err != nil {
			return err
		}
	}
	for _, vr := range r.Policy.VRFilter {
		if len(strings.TrimSpace(vr)) != 2 {
			return fmt.Errorf("invalid VR code %q", vr)
		}
	}

	return nil
}

// CreationFields returns the creation field names in deterministic order.
func (r *Run) CreationFields() []string {
	var fields []string
	for field := range r.Creation {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fields
}

// CasesConfig maps the run onto an aggregation config.
func (r *Run) CasesConfig() cases.Config {
	return cases.Config{
		Root:             r.Root,
		Pattern:          r.Pattern,
		IdentityFields:   r.IdentityFields,
		ReferenceFields:  r.ReferenceFields,
		CreationFields:   r.CreationFields(),
		UpdatableFields:  r.UpdatableFields,
		MatchField:       r.MatchField,
		SeriesMode:       r.SeriesMode,
		ProposedDefaults: r.ProposedDefaults,
	}
}

// CompilePolicy resolves the YAML policy into tag form. An empty clear-list
// falls back to the default identifying-tag list.
func (r *Run) CompilePolicy() (*redact.Policy, error) {
	p := &redact.Policy{
		Sentinel: r.Policy.Sentinel,
		VRFilter: r.Policy.VRFilter,
	}

	var err error
	if p.Spare, err = resolveTags(r.Policy.Spare); err != nil {
		return nil, err
	}
	if p.Clear, err = resolveTags(r.Policy.Clear); err != nil {
		return nil, err
	}
	if len(p.Clear) == 0 {
		p.Clear = redact.DefaultClearTags
	}

	if len(r.Policy.Overrides) > 0 {
		p.Overrides = make(map[tag.Tag]string, len(r.Policy.Overrides))
		for s, v := range r.Policy.Overrides {
			t, err := ResolveTag(s)
			if err != nil {
				return nil, err
			}
			p.Overrides[t] = v
		}
	}

	return p, nil
}

// ResolveCreations validates the operator's creation choices against the
// configured option sets and returns them keyed by tag. Fields without a
// choice are omitted: no value chosen means the tag is not created.
func (r *Run) ResolveCreations(choices map[string]string) (map[tag.Tag]string, error) {
	creations := make(map[tag.Tag]string)
	for field, value := range choices {
		options, ok := r.Creation[field]
		if !ok {
			return nil, fmt.Errorf("field %q is not a configured creation field", field)
		}
		if !containsField(options, value) {
			return nil, fmt.Errorf("value %q is not an allowed choice for %s (allowed: %s)",
				value, field, strings.Join(options, ", "))
		}
		info, err := tag.FindByName(field)
		if err != nil {
			return nil, fmt.Errorf("unknown creation field %q", field)
		}
		creations[info.Tag] = value
	}
	return creations, nil
}

// ResolveTag parses a tag reference: a dictionary keyword ("PatientID") or a
// "GGGG,EEEE" hex pair ("0010,0020").
func ResolveTag(s string) (tag.Tag, error) {
	s = strings.TrimSpace(s)
	if group, elem, ok := strings.Cut(s, ","); ok {
		g, err := strconv.ParseUint(strings.TrimSpace(group), 16, 16)
		if err != nil {
			return tag.Tag{}, fmt.Errorf("invalid tag %q: %w", s, err)
		}
		e, err := strconv.ParseUint(strings.TrimSpace(elem), 16, 16)
		if err != nil {
			return tag.Tag{}, fmt.Errorf("invalid tag %q: %w", s, err)
		}
		return tag.Tag{Group: uint16(g), Element: uint16(e)}, nil
	}

	info, err := tag.FindByName(s)
	if err != nil {
		return tag.Tag{}, fmt.Errorf("unknown tag %q", s)
	}
	return info.Tag, nil
}

func (r *Run) extractedFields() []string {
	fields := append(append([]string{}, r.IdentityFields...), r.ReferenceFields...)
	return append(fields, r.CreationFields()...)
}

func resolveTags(refs []string) ([]tag.Tag, error) {
	if len(refs) == 0 {
		return nil, nil
	}
	tags := make([]tag.Tag, 0, len(refs))
	for _, s := range refs {
		t, err := ResolveTag(s)
		if err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, nil
}

func containsField(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
