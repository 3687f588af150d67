package request

type SendOTPRequest struct {
	UserID string `json:"userId" validate:"required,uuid"`
}

type VerifyOTPRequest struct {
	UserID string `json:"userId" validate:"required,uuid"`
	OTP    string `json:"otp" validate:"required,numeric,min=4,max=10"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	UserID   string `json:"userId" validate:"required,uuid"`
	Token    string `json:"token" validate:"required,hexadecimal,len=64"`
	Password string `json:"password" validate:"required,min=8,bcryptlen"`
}
