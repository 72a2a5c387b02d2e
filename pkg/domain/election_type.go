package domain

import dErrors "ballotguard/pkg/domain-errors"

// ElectionType distinguishes the student-government election from the
// per-department ones. The two never share a scope.
type ElectionType string

const (
	ElectionTypeSSG          ElectionType = "ssg"
	ElectionTypeDepartmental ElectionType = "departmental"
)

// ParseElectionType constructs an ElectionType from external input.
func ParseElectionType(s string) (ElectionType, error) {
	t := ElectionType(s)
	if !t.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "election type must be ssg or departmental")
	}
	return t, nil
}

func (t ElectionType) IsValid() bool {
	return t == ElectionTypeSSG || t == ElectionTypeDepartmental
}

func (t ElectionType) String() string {
	return string(t)
}
