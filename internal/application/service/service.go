package service

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Identity is the authenticated caller resolved by the auth collaborator.
// Every operation is scoped to the identity's company.
type Identity struct {
	UserID    int64
	CompanyID int64
}
