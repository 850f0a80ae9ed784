package block

import "regexp"

// RecordType classifies what a block fingerprints. The set is open;
// producers may register their own tags as long as they match the format.
type RecordType string

// Well-known record types.
const (
	RecordMedicalTreatment RecordType = "MEDICAL_TREATMENT"
	RecordPayment          RecordType = "PAYMENT"
	RecordAuditBatch       RecordType = "AUDIT_BATCH"
	RecordHealthToken      RecordType = "HEALTH_TOKEN"

	// RecordHealthProbe marks synthetic blocks written by the health probe.
	RecordHealthProbe RecordType = "HEALTH_PROBE"
)

var recordTypePattern = regexp.MustCompile(`^[A-Z][A-Z0-9_]{0,63}$`)

// Valid reports whether t is well formed.
func (t RecordType) Valid() bool {
	return recordTypePattern.MatchString(string(t))
}

// IsReserved reports whether t is written only by the ledger itself.
func (t RecordType) IsReserved() bool {
	return t == RecordHealthProbe || t == RecordAuditBatch
}

// String implements fmt.Stringer.
func (t RecordType) String() string { return string(t) }
