package auth

// The error messages repeat the reference protocol word for word:
// launchers match on them.

type InvalidCredentialsError struct {
}

func (*InvalidCredentialsError) Error() string {
	return "Invalid credentials. Invalid username or password."
}

type InvalidTokenError struct {
}

func (*InvalidTokenError) Error() string {
	return "Invalid token."
}

type IllegalArgumentError struct {
	Message string
}

func (e *IllegalArgumentError) Error() string {
	return e.Message
}

type TooManyProfilesRequestedError struct {
}

func (*TooManyProfilesRequestedError) Error() string {
	return "The players requested are too many."
}
