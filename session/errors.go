package session

type ProfileNotSelectedError struct {
	ProfileId string
}

func (e *ProfileNotSelectedError) Error() string {
	return "Unable to select profile " + e.ProfileId + " for the refreshed session"
}
