package api

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// User is the authenticated profile returned by user/profile and login.
type User struct {
	ID                 int64           `json:"id"`
	Username           string          `json:"username"`
	Email              string          `json:"email"`
	FirstName          string          `json:"first_name"`
	LastName           string          `json:"last_name"`
	Phone              string          `json:"phone"`
	Country            string          `json:"country"`
	ResidentialAddress string          `json:"residential_address"`
	AccountNumber      string          `json:"account_number"`
	Balance            decimal.Decimal `json:"balance"`
	IsStaff            bool            `json:"is_staff"`
	IsAdmin            bool            `json:"is_admin"`
	IsVerified         bool            `json:"is_verified"`
	HasTransferPIN     bool            `json:"has_set_transfer_pin"`
}

// FullName joins first and last name, falling back to the username.
func (u User) FullName() string {
	n := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if n == "" {
		return u.Username
	}
	return n
}

type LoginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type LoginResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
	User    *User  `json:"user,omitempty"`
}

// Registration is what the user fills in on the sign-up form.
type Registration struct {
	FirstName          string
	LastName           string
	Email              string
	Phone              string
	Country            string
	ResidentialAddress string
	Password           string
	ConfirmPassword    string
}

type registerRequest struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Phone           string `json:"phone"`
	Country         string `json:"country"`
	Address         string `json:"address"`
}

type RegisterResponse struct {
	Access        string `json:"access,omitempty"`
	Refresh       string `json:"refresh,omitempty"`
	ID            int64  `json:"id,omitempty"`
	Email         string `json:"email,omitempty"`
	AccountNumber string `json:"account_number,omitempty"`
	Message       string `json:"message,omitempty"`
}

type RefreshResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
}

// ProfileUpdate carries only the fields being changed.
type ProfileUpdate struct {
	FirstName          *string `json:"first_name,omitempty"`
	LastName           *string `json:"last_name,omitempty"`
	Phone              *string `json:"phone,omitempty"`
	Country            *string `json:"country,omitempty"`
	ResidentialAddress *string `json:"residential_address,omitempty"`
}

// Receiver is the account holder returned by validate-receiver.
type Receiver struct {
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	Email         string `json:"email"`
	AccountNumber string `json:"account_number"`
}

func (r Receiver) Name() string {
	return strings.TrimSpace(r.FirstName + " " + r.LastName)
}

type ValidateReceiverResponse struct {
	Valid    bool      `json:"valid"`
	Receiver *Receiver `json:"receiver,omitempty"`
	Error    string    `json:"error,omitempty"`
}

type TransferRequest struct {
	RecipientAccount string  `json:"recipient_account"`
	Amount           float64 `json:"amount"`
	TransferPIN      string  `json:"transfer_pin"`
	Message          string  `json:"message"`
}

type RecipientInfo struct {
	Name    string `json:"name"`
	Bank    string `json:"bank"`
	Account string `json:"account"`
	IFSC    string `json:"ifsc"`
}

type WireTransferRequest struct {
	RecipientInfo RecipientInfo `json:"recipient_info"`
	Amount        float64       `json:"amount"`
	TransferPIN   string        `json:"transfer_pin"`
	Message       string        `json:"message"`
}

// TransferResponse is shared by yeet_transfer and wire_transfer. NewBalance
// is nil when the server did not report one.
type TransferResponse struct {
	Success       bool             `json:"success"`
	Message       string           `json:"message,omitempty"`
	Error         string           `json:"error,omitempty"`
	NewBalance    *decimal.Decimal `json:"new_balance,omitempty"`
	TransactionID string           `json:"transaction_id,omitempty"`
}

type Transaction struct {
	ID               int64           `json:"id"`
	Reference        string          `json:"reference"`
	TransactionType  string          `json:"transaction_type"`
	Amount           decimal.Decimal `json:"amount"`
	Fee              decimal.Decimal `json:"fee"`
	Status           string          `json:"status"`
	Description      string          `json:"description"`
	SenderAccount    string          `json:"sender_account"`
	RecipientAccount string          `json:"recipient_account"`
	CreatedAt        time.Time       `json:"created_at"`
}

type AccountSummary struct {
	Balance          decimal.Decimal `json:"balance"`
	TotalSent        decimal.Decimal `json:"total_sent"`
	TotalReceived    decimal.Decimal `json:"total_received"`
	TransactionCount int             `json:"transaction_count"`
}

type ReportRequest struct {
	Transaction int64  `json:"transaction"`
	Reason      string `json:"reason"`
	Description string `json:"description"`
}

type Report struct {
	ID          int64     `json:"id"`
	Transaction int64     `json:"transaction"`
	Reason      string    `json:"reason"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

type Participant struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	IsStaff   bool   `json:"is_staff"`
}

// DisplayName is the upper-cased full name, or username when unnamed.
func (p Participant) DisplayName() string {
	n := strings.TrimSpace(p.FirstName + " " + p.LastName)
	if n == "" {
		n = p.Username
	}
	return strings.ToUpper(n)
}

// RoomUserUser is the room type used for customer/staff conversations.
const RoomUserUser = "USER_USER"

type Room struct {
	ID           int64         `json:"id"`
	RoomType     string        `json:"room_type"`
	Participants []Participant `json:"participants"`
	LastMessage  *ChatMessage  `json:"last_message,omitempty"`
	UnreadCount  int           `json:"unread_count"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// HasParticipant reports whether user id takes part in the room.
func (r Room) HasParticipant(id int64) bool {
	for _, p := range r.Participants {
		if p.ID == id {
			return true
		}
	}
	return false
}

// Message types.
const (
	MessageText  = "TEXT"
	MessageImage = "IMAGE"
)

type ChatMessage struct {
	ID          int64       `json:"id"`
	Content     string      `json:"content"`
	Image       string      `json:"image,omitempty"`
	MessageType string      `json:"message_type"`
	Sender      Participant `json:"sender"`
	CreatedAt   time.Time   `json:"created_at"`
}

// Photo is an image attached to an outgoing chat message.
type Photo struct {
	Filename    string
	ContentType string
	Data        []byte
}

type typingRequest struct {
	IsTyping bool `json:"is_typing"`
}

type TypingStatus struct {
	IsTyping bool `json:"is_typing"`
}

// Notification mirrors the push payload (title, body, icon, tag) plus read state.
type Notification struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Icon      string    `json:"icon,omitempty"`
	Tag       string    `json:"tag,omitempty"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

type unreadCount struct {
	Count int `json:"count"`
}
