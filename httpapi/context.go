package httpapi

type contextKey int

//RequestIDKey is the context key for the request id
const RequestIDKey contextKey = 0
