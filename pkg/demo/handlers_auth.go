package demo

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"yeetbank/pkg/router"
)

func itoa(v int64) string { return strconv.FormatInt(v, 10) }

func userJSON(a *Account) map[string]any {
	return map[string]any{
		"id":                   a.ID,
		"username":             a.Email,
		"email":                a.Email,
		"first_name":           a.FirstName,
		"last_name":            a.LastName,
		"phone":                a.Phone,
		"country":              a.Country,
		"residential_address":  a.Address,
		"account_number":       a.AccountNumber,
		"balance":              a.Balance,
		"is_staff":             a.IsStaff,
		"is_admin":             a.IsAdmin,
		"is_verified":          a.IsVerified,
		"has_set_transfer_pin": a.PIN != "",
	}
}

func (s *Server) handleLogin(ctx *fasthttp.RequestCtx) {
	var req struct {
		Identifier string `json:"identifier"`
		Password   string `json:"password"`
	}
	if err := router.ReadJSON(ctx, &req); err != nil {
		router.WriteJSONError(ctx, fasthttp.StatusBadRequest, "detail", "Malformed request body")
		return
	}
	ident := strings.TrimSpace(req.Identifier)
	if !s.limiter.Allow(strings.ToLower(ident)) {
		router.WriteJSONError(ctx, fasthttp.StatusTooManyRequests, "detail", "Too many login attempts. Try again shortly.")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	var found *Account
	for _, id := range s.order {
		a := s.accounts[id]
		if a.Email == ident || a.Phone == ident || a.AccountNumber == ident {
			found = a
			break
		}
	}
	if found == nil || found.Password != req.Password {
		router.WriteJSONError(ctx, fasthttp.StatusUnauthorized, "detail", "Invalid email/phone/account number or password")
		return
	}
	access, refresh := s.issueTokens(found.ID)
	router.WriteJSON(ctx, fasthttp.StatusOK, map[string]any{
		"access":  access,
		"refresh": refresh,
		"user":    userJSON(found),
	})
}

func (s *Server) handleRegister(ctx *fasthttp.RequestCtx) {
	var req struct {
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
	if err := router.ReadJSON(ctx, &req); err != nil {
		router.WriteJSONError(ctx, fasthttp.StatusBadRequest, "detail", "Malformed request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		router.WriteJSONError(ctx, fasthttp.StatusBadRequest, "detail", "Email and password are required")
		return
	}
	if req.Password != req.PasswordConfirm {
		router.WriteJSON(ctx, fasthttp.StatusBadRequest, map[string][]string{"password": {"Password fields didn't match."}})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.order {
		if strings.EqualFold(s.accounts[id].Email, req.Email) {
			router.WriteJSONError(ctx, fasthttp.StatusBadRequest, "detail", "Email already in use")
			return
		}
	}
	a := &Account{
		ID:            s.id(),
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		Email:         req.Email,
		Phone:         req.Phone,
		Country:       req.Country,
		Address:       req.Address,
		AccountNumber: fmt.Sprintf("ACC%07d", len(s.order)+1001),
		Password:      req.Password,
	}
	for s.byAccountNumber(a.AccountNumber) != nil {
		a.AccountNumber = fmt.Sprintf("ACC%07d", s.id()+1000)
	}
	s.accounts[a.ID] = a
	s.order = append(s.order, a.ID)
	s.notify(a.ID, "Welcome to Yeet Bank", "Your account "+a.AccountNumber+" is ready.", "welcome")
	access, refresh := s.issueTokens(a.ID)
	router.WriteJSON(ctx, fasthttp.StatusCreated, map[string]any{
		"id":             a.ID,
		"email":          a.Email,
		"account_number": a.AccountNumber,
		"access":         access,
		"refresh":        refresh,
		"message":        "Registration successful! Please check your email to verify your account.",
	})
}

func (s *Server) handleRefresh(ctx *fasthttp.RequestCtx) {
	s.refreshCalls.Add(1)
	if d := time.Duration(s.refreshDelay.Load()); d > 0 {
		time.Sleep(d)
	}
	var req struct {
		Refresh string `json:"refresh"`
	}
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil || req.Refresh == "" {
		router.WriteJSONError(ctx, fasthttp.StatusBadRequest, "detail", "refresh is required")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	uid, ok := s.refresh[req.Refresh]
	if !ok {
		router.WriteJSONError(ctx, fasthttp.StatusUnauthorized, "detail", "Token is invalid or expired")
		return
	}
	// rotate
	delete(s.refresh, req.Refresh)
	access, refresh := s.issueTokens(uid)
	router.WriteJSON(ctx, fasthttp.StatusOK, map[string]string{"access": access, "refresh": refresh})
}

func (s *Server) handleLogout(ctx *fasthttp.RequestCtx, userID int64) {
	token := strings.TrimPrefix(string(ctx.Request.Header.Peek("Authorization")), "Bearer ")
	s.mu.Lock()
	delete(s.access, token)
	s.mu.Unlock()
	router.WriteJSON(ctx, fasthttp.StatusOK, map[string]string{"message": "Logged out"})
}

func (s *Server) handleProfile(ctx *fasthttp.RequestCtx, userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.accounts[userID]
	if a == nil {
		router.WriteJSONError(ctx, fasthttp.StatusNotFound, "detail", "User not found")
		return
	}
	router.WriteJSON(ctx, fasthttp.StatusOK, userJSON(a))
}

func (s *Server) handleUpdateProfile(ctx *fasthttp.RequestCtx, userID int64) {
	var req struct {
		FirstName *string `json:"first_name"`
		LastName  *string `json:"last_name"`
		Phone     *string `json:"phone"`
		Country   *string `json:"country"`
		Address   *string `json:"residential_address"`
	}
	if err := router.ReadJSON(ctx, &req); err != nil {
		router.WriteJSONError(ctx, fasthttp.StatusBadRequest, "detail", "Malformed request body")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.accounts[userID]
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = strings.TrimSpace(*v)
		}
	}
	set(&a.FirstName, req.FirstName)
	set(&a.LastName, req.LastName)
	set(&a.Phone, req.Phone)
	set(&a.Country, req.Country)
	set(&a.Address, req.Address)
	router.WriteJSON(ctx, fasthttp.StatusOK, userJSON(a))
}

func validPIN(p string) bool {
	if len(p) != 4 {
		return false
	}
	for _, r := range p {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func (s *Server) handleChangePIN(ctx *fasthttp.RequestCtx, userID int64) {
	var req struct {
		CurrentPIN string `json:"current_pin"`
		NewPIN     string `json:"new_pin"`
	}
	if err := router.ReadJSON(ctx, &req); err != nil {
		router.WriteJSONError(ctx, fasthttp.StatusBadRequest, "error", "Malformed request body")
		return
	}
	if !validPIN(req.NewPIN) {
		router.WriteJSONError(ctx, fasthttp.StatusBadRequest, "error", "PIN must be exactly 4 digits")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.accounts[userID]
	if a.PIN != "" && a.PIN != req.CurrentPIN {
		router.WriteJSONError(ctx, fasthttp.StatusBadRequest, "error", "Current PIN is incorrect")
		return
	}
	a.PIN = req.NewPIN
	router.WriteJSON(ctx, fasthttp.StatusOK, map[string]string{"message": "Transfer PIN updated successfully"})
}

func (s *Server) handleChangePassword(ctx *fasthttp.RequestCtx, userID int64) {
	var req struct {
		Current string `json:"current_password"`
		New     string `json:"new_password"`
	}
	if err := router.ReadJSON(ctx, &req); err != nil {
		router.WriteJSONError(ctx, fasthttp.StatusBadRequest, "error", "Malformed request body")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.accounts[userID]
	if a.Password != req.Current {
		router.WriteJSONError(ctx, fasthttp.StatusBadRequest, "error", "Current password is incorrect")
		return
	}
	if len(req.New) < 6 {
		router.WriteJSONError(ctx, fasthttp.StatusBadRequest, "error", "Password must be at least 6 characters")
		return
	}
	a.Password = req.New
	router.WriteJSON(ctx, fasthttp.StatusOK, map[string]string{"message": "Password changed successfully"})
}
