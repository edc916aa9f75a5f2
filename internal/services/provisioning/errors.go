package provisioning

import "errors"

var (
	// ErrProductNotFound - the productID does not resolve to a catalog product
	ErrProductNotFound = errors.New("product not found")

	// ErrAllocationExhausted - the serial allocator lost the uniqueness race
	// on every attempt within its retry bound. Retry-safe: no durable side
	// effect remains.
	ErrAllocationExhausted = errors.New("serial allocation exhausted")

	// ErrUploadFailed - the artifact could not be stored in the blob store
	ErrUploadFailed = errors.New("artifact upload failed")

	// ErrRecordInsertFailed - the unit record insert failed for a reason other
	// than serial uniqueness; the uploaded artifact has been compensated
	ErrRecordInsertFailed = errors.New("unit record insert failed")
)
