package response

type SecretIssuedResponse struct {
	UserID    string `json:"userId,omitempty"`
	ExpiresIn int64  `json:"expiresInSeconds"`
}

type VerifiedResponse struct {
	UserID     string `json:"userId"`
	IsVerified bool   `json:"isVerified"`
}
