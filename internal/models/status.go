package models

import "fmt"

// ProcessStatus is the derived three-valued processing state of a request.
type ProcessStatus string

const (
	// StatusNotProcessed indicates the authority has not written a status yet.
	StatusNotProcessed ProcessStatus = "not_processed"
	// StatusSuccess indicates the authority applied the change.
	StatusSuccess ProcessStatus = "success"
	// StatusError indicates the authority rejected the change.
	StatusError ProcessStatus = "error"
)

// StatusErrorKind names a recognized authority error. The authority's code
// space evolves independently of this client, so the table is closed here but
// every unlisted code decodes to StatusErrorUnknown instead of failing.
type StatusErrorKind string

const (
	StatusErrorMalformed    StatusErrorKind = "malformed_request"
	StatusErrorNotFound     StatusErrorKind = "not_found"
	StatusErrorAccessDenied StatusErrorKind = "access_denied"
	StatusErrorExpired      StatusErrorKind = "expired"
	StatusErrorUnknown      StatusErrorKind = "unknown"
)

// Authority status codes currently recognized by this client.
const (
	StatusCodeSuccess          = 0
	StatusCodeMalformedRequest = 601
	StatusCodeTargetNotFound   = 603
	StatusCodeAccessDenied     = 606
	StatusCodeRequestExpired   = 611
)

var knownErrorKinds = map[int]StatusErrorKind{
	StatusCodeMalformedRequest: StatusErrorMalformed,
	StatusCodeTargetNotFound:   StatusErrorNotFound,
	StatusCodeAccessDenied:     StatusErrorAccessDenied,
	StatusCodeRequestExpired:   StatusErrorExpired,
}

// StatusErrorCode is the typed decoding of a non-zero authority status code.
// RawCode is always preserved so unrecognized codes survive for diagnostics.
type StatusErrorCode struct {
	Kind    StatusErrorKind `json:"kind"`
	RawCode int             `json:"raw_code"`
}

func (e StatusErrorCode) String() string {
	return fmt.Sprintf("%s (code %d)", e.Kind, e.RawCode)
}

// DecodedStatus pairs a processing status with its typed error, keeping the
// raw code and its meaning consistent for observers.
type DecodedStatus struct {
	Status    ProcessStatus    `json:"status"`
	ErrorCode *StatusErrorCode `json:"error_code,omitempty"`
}

// DecodeStatus classifies an authority status code. It is pure and total:
// nil is pending, 0 is success, any other integer is an error whose kind is
// looked up in the known table, falling back to the unknown kind.
func DecodeStatus(code *int) DecodedStatus {
	if code == nil {
		return DecodedStatus{Status: StatusNotProcessed}
	}
	if *code == 0 {
		return DecodedStatus{Status: StatusSuccess}
	}

	kind, ok := knownErrorKinds[*code]
	if !ok {
		kind = StatusErrorUnknown
	}
	return DecodedStatus{
		Status:    StatusError,
		ErrorCode: &StatusErrorCode{Kind: kind, RawCode: *code},
	}
}

// Decoded returns the derived status view for the record's current code.
func (r *PermissionChangeRequest) Decoded() DecodedStatus {
	return DecodeStatus(r.StatusCode)
}
