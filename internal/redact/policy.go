// Package redact applies a layered redaction policy to every element of a
// DICOM dataset, including elements nested inside sequences.
package redact

import "github.com/suyashkumar/dicom/pkg/tag"

// Policy is the immutable per-run rule set. Precedence per element:
// spare-list first (disables everything), then VR wildcard, then clear-list,
// then overrides, which always win unless the tag is spared.
type Policy struct {
	// Spare lists tags exempt from all redaction.
	Spare []tag.Tag

	// Clear lists tags forced to an empty value.
	Clear []tag.Tag

	// Overrides maps tags to literal replacement values.
	Overrides map[tag.Tag]string

	// VRFilter lists VR codes (e.g. "PN", "DA") whose elements are redacted
	// to Sentinel regardless of tag.
	VRFilter []string

	// Sentinel is the replacement written by the VR filter. The default is
	// the empty string; elements whose value cannot hold a string are
	// emptied instead.
	Sentinel string
}

// DefaultClearTags are the identifying tags cleared when no explicit
// clear-list is configured.
var DefaultClearTags = []tag.Tag{
	// Patient identifiers
	tag.PatientName,
	tag.PatientID,
	tag.PatientBirthDate,
	tag.PatientSex,
	tag.PatientAddress,
	tag.PatientTelephoneNumbers,
	tag.MedicalRecordLocator,
	tag.AdditionalPatientHistory,
	tag.PatientComments,

	// Study identifiers
	tag.AccessionNumber,
	tag.StudyID,

	// Institution information
	tag.InstitutionName,
	tag.InstitutionAddress,

	// Physician information
	tag.ReferringPhysicianName,
	tag.PhysiciansOfRecord,
	tag.PerformingPhysicianName,
	tag.OperatorsName,
	tag.RequestingPhysician,
}

// DefaultVRFilter matches the free-text VR classes that routinely carry
// identifying values: person names, long/short strings, application entity
// titles, and date/date-time stamps.
var DefaultVRFilter = []string{"PN", "LO", "SH", "AE", "DT", "DA"}

// Default returns a policy with the default clear-list and an empty VR
// filter. The VR wildcard is opt-in: clearing known tags is predictable,
// wiping whole VR classes needs an explicit decision.
func Default() *Policy {
	return &Policy{
		Clear: DefaultClearTags,
	}
}

// compiled is the lookup form of a Policy plus the per-case override map.
type compiled struct {
	spare     map[tag.Tag]bool
	clear     map[tag.Tag]bool
	vr        map[string]bool
	overrides map[tag.Tag]string
	sentinel  string
}

func (p *Policy) compile(caseOverrides map[tag.Tag]string) *compiled {
	c := &compiled{
		spare:     make(map[tag.Tag]bool, len(p.Spare)),
		clear:     make(map[tag.Tag]bool, len(p.Clear)),
		vr:        make(map[string]bool, len(p.VRFilter)),
		overrides: make(map[tag.Tag]string, len(p.Overrides)+len(caseOverrides)),
		sentinel:  p.Sentinel,
	}
	for _, t := range p.Spare {
		c.spare[t] = true
	}
	for _, t := range p.Clear {
		c.clear[t] = true
	}
	for _, vr := range p.VRFilter {
		c.vr[vr] = true
	}
	for t, v := range p.Overrides {
		c.overrides[t] = v
	}
	// Case-level overrides shadow policy-level ones.
	for t, v := range caseOverrides {
		c.overrides[t] = v
	}
	return c
}
