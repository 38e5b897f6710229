package errors

import "fmt"

var (
	ErrValidation    = fmt.Errorf("validation failed")
	ErrNotFound      = fmt.Errorf("not found")
	ErrTransport     = fmt.Errorf("delivery failed")
	ErrSessionClosed = fmt.Errorf("session closed")
	ErrSlowConsumer  = fmt.Errorf("session queue overflow")
	ErrStorage       = fmt.Errorf("storage failure")
	ErrWorkerPanic   = fmt.Errorf("worker panic")
)
