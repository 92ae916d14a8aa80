package utils

import (
	"regexp"
	"strings"
)

// Canonical WCS 1.0.0 KVP field names. Parameter names are
// case-insensitive on the wire; values are case-sensitive.
const (
	FieldRequest        = "REQUEST"
	FieldVersion        = "VERSION"
	FieldService        = "SERVICE"
	FieldSection        = "SECTION"
	FieldUpdateSequence = "UPDATESEQUENCE"
	FieldCoverage       = "COVERAGE"
	FieldCRS            = "CRS"
	FieldResponseCRS    = "RESPONSE_CRS"
	FieldBBox           = "BBOX"
	FieldTime           = "TIME"
	FieldWidth          = "WIDTH"
	FieldHeight         = "HEIGHT"
	FieldResX           = "RESX"
	FieldResY           = "RESY"
	FieldInterpolation  = "INTERPOLATION"
	FieldFormat         = "FORMAT"
	FieldExceptions     = "EXCEPTIONS"
	FieldMeasurements   = "MEASUREMENTS"
)

// WCSRegexpMap maps WCS request parameters to regular expressions for
// doing syntactic pre-checks when parsing.
// --- These regexp do not avoid every case of
// --- invalid input but filter most of the malformed
// --- cases before the validation gates run.
var WCSRegexpMap = map[string]string{
	"service": `^WCS$`,
	"request": `^GetCapabilities$|^DescribeCoverage$|^GetCoverage$`,
	"crs":     `^(?i)(?:[A-Z]+):(?:[0-9]+)$`,
	"bbox":    `^[-+]?[0-9]*\.?[0-9]+([eE][-+]?[0-9]+)?(,[-+]?[0-9]*\.?[0-9]+([eE][-+]?[0-9]+)?){3,5}$`,
	"width":   `^[0-9]+$`,
	"height":  `^[0-9]+$`,
}

func CompileWCSRegexMap() map[string]*regexp.Regexp {
	REMap := make(map[string]*regexp.Regexp)
	for key, re := range WCSRegexpMap {
		REMap[key] = regexp.MustCompile(re)
	}

	return REMap
}

// NormalizeKVP maps arbitrary-case query keys to canonical upper-case
// field names, preserving values verbatim. Repeated keys keep the
// first value. Purely syntactic; no validation happens here, and
// unrecognised keys are carried through so downstream code can ignore
// them (the OGC spec requires unknown parameters to be tolerated).
func NormalizeKVP(query map[string][]string) map[string]string {
	params := make(map[string]string)
	for key, vals := range query {
		if len(vals) == 0 {
			continue
		}
		canonical := strings.ToUpper(strings.TrimSpace(key))
		if _, found := params[canonical]; !found {
			params[canonical] = vals[0]
		}
	}
	return params
}

func CheckWCSVersion(version string) bool {
	return version == "1.0.0"
}

// CheckRouting validates the SERVICE and REQUEST parameters before a
// request is dispatched. Both are required for every operation and
// their values are case-sensitive.
func CheckRouting(params map[string]string, reMap map[string]*regexp.Regexp) *ServiceError {
	service, found := params[FieldService]
	if !found {
		return NewServiceError(FieldService, ExcMissingParameterValue, "SERVICE parameter is required")
	}
	if !reMap["service"].MatchString(service) {
		return NewServiceError(FieldService, ExcInvalidParameterValue, "SERVICE must be WCS, got %s", service)
	}
	request, found := params[FieldRequest]
	if !found {
		return NewServiceError(FieldRequest, ExcMissingParameterValue, "REQUEST parameter is required")
	}
	if !reMap["request"].MatchString(request) {
		return NewServiceError(FieldRequest, ExcInvalidParameterValue, "%s is not a valid WCS operation", request)
	}
	return nil
}
