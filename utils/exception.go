package utils

import "fmt"

// OGC WCS 1.0.0 exception codes. The code strings go verbatim into the
// ServiceException code attribute and are checked by conformance
// suites.
const (
	ExcMissingParameterValue = "MissingParameterValue"
	ExcInvalidParameterValue = "InvalidParameterValue"
	ExcInvalidFormat         = "InvalidFormat"
	ExcCoverageNotDefined    = "CoverageNotDefined"
	ExcCurrentUpdateSequence = "CurrentUpdateSequence"
	ExcInvalidUpdateSequence = "InvalidUpdateSequence"
)

// ServiceExceptionContentType is mandated by the WCS 1.0.0 spec for
// ServiceExceptionReport responses.
const ServiceExceptionContentType = "application/vnd.ogc.se_xml"

// ServiceError is a validation failure as a first-class value. It
// carries the offending field, the OGC exception code and a human
// readable message; the boundary layer turns it into a
// ServiceExceptionReport. The validator reports only the first error
// encountered.
type ServiceError struct {
	Field   string
	Code    string
	Message string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Code, e.Field, e.Message)
}

func NewServiceError(field, code, format string, args ...interface{}) *ServiceError {
	return &ServiceError{Field: field, Code: code, Message: fmt.Sprintf(format, args...)}
}
