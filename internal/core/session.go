package core

// Session is the resolved authentication state of the process.
// CoupleID and DisplayName are set exactly when IsAuthenticated is true.
type Session struct {
	IsAuthenticated bool
	IsLoading       bool
	UserID          string
	CoupleID        string
	DisplayName     string
}

// UnresolvedSession is the placeholder held before initialization completes.
func UnresolvedSession() Session {
	return Session{IsLoading: true}
}

// Authenticated builds the session for a user with a couple membership.
func Authenticated(m Membership) Session {
	return Session{
		IsAuthenticated: true,
		UserID:          m.UserID,
		CoupleID:        m.CoupleID,
		DisplayName:     m.DisplayName,
	}
}

// Valid reports whether the tenant fields agree with IsAuthenticated.
func (s Session) Valid() bool {
	if s.IsAuthenticated {
		return s.CoupleID != "" && s.DisplayName != ""
	}
	return s.CoupleID == "" && s.DisplayName == ""
}
