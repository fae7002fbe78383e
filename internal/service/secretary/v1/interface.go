package secretary

// Secretary defines a service for credential ciphering and token authorization.
type Secretary interface {
	Encode(data string) string
	Decode(msg string) (string, error)
	NewToken() (accessToken string, userID string, err error)
	GetTokenForUser(userID string) (string, error)
	ValidateToken(accessToken string) (string, error)
}
