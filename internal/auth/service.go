package auth

// Service authenticates the single configured operator. Credentials come
// from the environment at startup, never from a user table.
type Service struct {
	jwtManager   *JWTManager
	username     string
	passwordHash string
}

// NewService creates the operator auth service
func NewService(jwtManager *JWTManager, username, passwordHash string) *Service {
	return &Service{
		jwtManager:   jwtManager,
		username:     username,
		passwordHash: passwordHash,
	}
}

// Login verifies operator credentials and returns a token pair
func (s *Service) Login(username, password string) (*TokenPair, error) {
	// Verify the hash even on a username mismatch to keep timing uniform
	ok := VerifyPassword(password, s.passwordHash)
	if username != s.username || !ok {
		return nil, ErrInvalidCredentials
	}

	accessToken, err := s.jwtManager.GenerateAccessToken(OperatorClaims{Username: username})
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken: accessToken,
		ExpiresIn:   s.jwtManager.GetAccessTokenDuration(),
		TokenType:   "Bearer",
	}, nil
}
