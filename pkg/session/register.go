package session

import (
	"context"
	"net/mail"
	"strings"

	"yeetbank/pkg/api"
	"yeetbank/pkg/logger"
)

const minPasswordLen = 6

// ValidateRegistration checks the sign-up form before anything is sent.
func ValidateRegistration(r api.Registration) error {
	required := []struct {
		field, value, label string
	}{
		{"first_name", r.FirstName, "First name"},
		{"last_name", r.LastName, "Last name"},
		{"email", r.Email, "Email"},
		{"phone", r.Phone, "Phone"},
		{"country", r.Country, "Country"},
		{"residential_address", r.ResidentialAddress, "Residential address"},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return api.Invalid(f.field, f.label+" is required")
		}
	}
	if _, err := mail.ParseAddress(r.Email); err != nil {
		return api.Invalid("email", "Enter a valid email address")
	}
	if len(r.Password) < minPasswordLen {
		return api.Invalid("password", "Password must be at least 6 characters")
	}
	if r.Password != r.ConfirmPassword {
		return api.Invalid("confirm_password", "Passwords do not match")
	}
	return nil
}

// Register validates, creates the account and, when the backend hands back
// tokens, signs straight in. Without tokens the caller must log in.
func (s *Store) Register(ctx context.Context, r api.Registration) (*api.RegisterResponse, *api.User, error) {
	r.Email = strings.TrimSpace(r.Email)
	if err := ValidateRegistration(r); err != nil {
		return nil, nil, err
	}
	res, err := s.backend.Register(ctx, r)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("registered", "account", res.AccountNumber)
	if res.Access == "" {
		return res, nil, nil
	}
	if err := s.setTokens(res.Access, res.Refresh); err != nil {
		return res, nil, err
	}
	u, ok := s.CurrentIdentity(ctx)
	if !ok {
		return res, nil, nil
	}
	return res, &u, nil
}
