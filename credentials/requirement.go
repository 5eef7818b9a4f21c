package credentials

// Shape is one accepted form of credentials, e.g. "accessKey" with
// parameters accessKey and secretKey.
type Shape struct {
	Name       string
	Parameters []string
}

// Requirement lists the credential shapes a provider accepts, in declared
// order. An empty Requirement means the provider needs no credentials.
type Requirement []Shape

// NewRequirement is a convenience for the common single-shape case.
func NewRequirement(shape string, params ...string) Requirement {
	return Requirement{{Name: shape, Parameters: params}}
}

// And appends another shape.
func (r Requirement) And(shape string, params ...string) Requirement {
	return append(r, Shape{Name: shape, Parameters: params})
}

// Match returns the first shape credentials c conform to, or false when none
// matches.
func (r Requirement) Match(c Credentials) (Shape, bool) {
	for _, shape := range r {
		if shape.matches(c) {
			return shape, true
		}
	}
	return Shape{}, false
}

func (s Shape) matches(c Credentials) bool {
	switch v := c.(type) {
	case ListCredentials:
		return len(v) == len(s.Parameters)
	case MapCredentials:
		for _, p := range s.Parameters {
			if _, ok := v[p]; !ok {
				return false
			}
		}
		return true
	}
	return false
}
