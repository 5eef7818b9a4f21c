package credentials

// CheckValid validates candidate against the shapes provider declares and
// returns it unchanged on success. Providers with an empty requirement take
// no credentials; for them CheckValid always returns Anonymous.
//
// CheckValid is a pure function: it does no I/O and records nothing.
func CheckValid(candidate Credentials, provider string, requirement Requirement) (Credentials, error) {
	if len(requirement) == 0 {
		return Anonymous, nil
	}
	if IsAbsent(candidate) {
		return nil, &InvalidCredentialsError{Kind: Absent, Provider: provider, Requirement: requirement}
	}
	if _, ok := requirement.Match(candidate); !ok {
		return nil, &InvalidCredentialsError{Kind: Incorrect, Provider: provider, Requirement: requirement}
	}
	return candidate, nil
}
