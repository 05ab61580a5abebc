package session

import (
	"yeetbank/pkg/api"
)

// ValidatePINChange checks a transfer PIN change. The current PIN is only
// required once a PIN has been set.
func ValidatePINChange(hasPIN bool, current, next, confirm string) error {
	if next == "" || confirm == "" {
		return api.Invalid("new_pin", "Please fill in all fields")
	}
	if hasPIN && current == "" {
		return api.Invalid("current_pin", "Current PIN is required")
	}
	if len(next) != 4 || len(confirm) != 4 {
		return api.Invalid("new_pin", "PIN must be 4 digits")
	}
	if next != confirm {
		return api.Invalid("confirm_pin", "New PINs do not match")
	}
	return nil
}

func ValidatePasswordChange(current, next, confirm string) error {
	if current == "" || next == "" || confirm == "" {
		return api.Invalid("password", "Please fill in all fields")
	}
	if len(next) < minPasswordLen {
		return api.Invalid("new_password", "Password must be at least 6 characters")
	}
	if next != confirm {
		return api.Invalid("confirm_password", "New passwords do not match")
	}
	return nil
}
