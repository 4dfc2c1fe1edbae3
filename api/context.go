package api

//contextKey is the type used for values stored in a request context
type contextKey int

//Context keys
const (
	TransactionKey contextKey = iota
	UserKey
)
