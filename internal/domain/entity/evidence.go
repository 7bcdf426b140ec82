package entity

// EvidenceKind identifies the trust tier behind a reconciliation event.
// A user claim is an unverified self-report, an admin decision is a manual
// review, and gateway evidence is backed by the signed protocol (either a
// callback we verify or a status poll we signed ourselves).
type EvidenceKind string

const (
	EvidenceUserClaim       EvidenceKind = "user_claim"
	EvidenceAdminDecision   EvidenceKind = "admin_decision"
	EvidenceGatewayCallback EvidenceKind = "gateway_callback"
	EvidenceStatusPoll      EvidenceKind = "status_poll"
)

// Evidence carries everything the reconciliation engine needs to validate
// and apply a single state-changing event.
type Evidence struct {
	Kind EvidenceKind

	// Gateway callback fields. RawBody is the exact payload the signature
	// was computed over; it must not be re-serialized before verification.
	RawBody   string
	Signature string

	// Gateway-reported outcome (callback or status poll).
	GatewayState string
	GatewayTxnID string

	// Admin decision fields.
	AdminID        string
	AdminNotes     string
	DecisionStatus TransactionStatus

	// User claim fields (e.g. a self-reported UPI reference).
	ClaimDetails map[string]interface{}
}
