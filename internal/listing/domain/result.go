package domain

// ValidationResult is the outcome of an image validation check. Reason is a
// human-readable, caller-correctable message; validation never errors out.
type ValidationResult struct {
	Valid  bool
	Reason string
}

func ValidResult() ValidationResult {
	return ValidationResult{Valid: true}
}

func InvalidResult(reason string) ValidationResult {
	return ValidationResult{Valid: false, Reason: reason}
}

// ResultCode classifies the outcome of a coordinator operation.
type ResultCode int

const (
	ResultOK ResultCode = iota
	ResultValidationFailed
	ResultStorageFailed
	ResultNotFound
)

// SaveResult is the tagged outcome of a listing create/update/delete. The
// coordinator never signals these conditions through errors or panics.
type SaveResult struct {
	Code   ResultCode
	Reason string
}

func SaveOK() SaveResult {
	return SaveResult{Code: ResultOK}
}

func SaveValidationFailed(reason string) SaveResult {
	return SaveResult{Code: ResultValidationFailed, Reason: reason}
}

func SaveStorageFailed(reason string) SaveResult {
	return SaveResult{Code: ResultStorageFailed, Reason: reason}
}

func SaveNotFound(reason string) SaveResult {
	return SaveResult{Code: ResultNotFound, Reason: reason}
}

// OK reports whether the operation committed.
func (r SaveResult) OK() bool {
	return r.Code == ResultOK
}
