package demo

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/shopspring/decimal"
)

// DemoPassword is shared by the built-in accounts.
const DemoPassword = "demo123"

// Account is a demo ledger entry together with its credentials.
type Account struct {
	ID            int64
	FirstName     string
	LastName      string
	Email         string
	Phone         string
	Country       string
	Address       string
	AccountNumber string
	Balance       decimal.Decimal
	PIN           string
	Password      string
	IsStaff       bool
	IsAdmin       bool
	IsVerified    bool
}

func (a *Account) name() string {
	return a.FirstName + " " + a.LastName
}

// DefaultAccounts returns the three seeded demo users. The admin doubles as
// support staff for chat.
func DefaultAccounts() []Account {
	return []Account{
		{
			ID: 1, FirstName: "John", LastName: "Doe", Email: "john@demo.com", Phone: "+1234567890",
			Country: "United States", Address: "123 Main Street", AccountNumber: "ACC0001234",
			Balance: decimal.NewFromInt(50000), PIN: "1234", Password: DemoPassword, IsVerified: true,
		},
		{
			ID: 2, FirstName: "Jane", LastName: "Smith", Email: "jane@demo.com", Phone: "+1234567891",
			Country: "United Kingdom", Address: "456 Oak Avenue", AccountNumber: "ACC0001235",
			Balance: decimal.NewFromInt(25000), PIN: "5678", Password: DemoPassword, IsVerified: true,
		},
		{
			ID: 3, FirstName: "Admin", LastName: "User", Email: "admin@demo.com", Phone: "+1234567892",
			Country: "Canada", Address: "789 Pine Road", AccountNumber: "ACC0001236",
			Balance: decimal.NewFromInt(100000), PIN: "9999", Password: DemoPassword,
			IsStaff: true, IsAdmin: true, IsVerified: true,
		},
	}
}

type seedFile struct {
	Accounts []seedAccount `yaml:"accounts"`
}

type seedAccount struct {
	ID            int64  `yaml:"id"`
	FirstName     string `yaml:"first_name"`
	LastName      string `yaml:"last_name"`
	Email         string `yaml:"email"`
	Phone         string `yaml:"phone"`
	Country       string `yaml:"country"`
	Address       string `yaml:"address"`
	AccountNumber string `yaml:"account_number"`
	Balance       string `yaml:"balance"`
	PIN           string `yaml:"pin"`
	Password      string `yaml:"password"`
	IsStaff       bool   `yaml:"is_staff"`
	IsAdmin       bool   `yaml:"is_admin"`
}

// LoadAccountsFile reads a YAML seed file of accounts.
func LoadAccountsFile(path string) ([]Account, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseAccounts(b)
}

// ParseAccounts decodes a seed document. Missing passwords default to
// DemoPassword; balances are exact decimals.
func ParseAccounts(b []byte) ([]Account, error) {
	var f seedFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse accounts: %w", err)
	}
	seen := make(map[string]struct{})
	out := make([]Account, 0, len(f.Accounts))
	for i, s := range f.Accounts {
		if s.AccountNumber == "" || s.Email == "" {
			return nil, fmt.Errorf("account %d: email and account_number are required", i)
		}
		if _, dup := seen[s.AccountNumber]; dup {
			return nil, fmt.Errorf("account %d: duplicate account_number %s", i, s.AccountNumber)
		}
		seen[s.AccountNumber] = struct{}{}
		bal := decimal.Zero
		if s.Balance != "" {
			v, err := decimal.NewFromString(s.Balance)
			if err != nil {
				return nil, fmt.Errorf("account %d: balance: %w", i, err)
			}
			bal = v
		}
		pw := s.Password
		if pw == "" {
			pw = DemoPassword
		}
		id := s.ID
		if id == 0 {
			id = int64(i + 1)
		}
		out = append(out, Account{
			ID: id, FirstName: s.FirstName, LastName: s.LastName, Email: s.Email, Phone: s.Phone,
			Country: s.Country, Address: s.Address, AccountNumber: s.AccountNumber,
			Balance: bal, PIN: s.PIN, Password: pw, IsStaff: s.IsStaff, IsAdmin: s.IsAdmin, IsVerified: true,
		})
	}
	return out, nil
}
