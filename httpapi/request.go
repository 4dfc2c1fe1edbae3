package httpapi

//UserCreateRequest is a request to create a new User
type UserCreateRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	OrgName  string `json:"org_name"`
}

//ChangeUserPasswordRequest is a request to change a User's password
type ChangeUserPasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

//AuthenticateRequest is an email/password authentication request
type AuthenticateRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
