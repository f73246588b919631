package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dtroode/accounts-server/internal/api/http/response"
	"github.com/dtroode/accounts-server/internal/logger"
	"github.com/dtroode/accounts-server/internal/model"
)

// AccountService defines the account operations exposed over HTTP.
type AccountService interface {
	Register(ctx context.Context, params model.RegisterParams) (model.Account, error)
	PasswordLogin(ctx context.Context, phone, password string) (model.Account, model.Session, error)
	SendSMSCode(ctx context.Context, phone string) (model.SMSDispatch, error)
	SMSLogin(ctx context.Context, phone, code string) (model.Account, model.Session, bool, error)
	Refresh(ctx context.Context, refreshToken string) (string, time.Time, error)
	ChangePassword(ctx context.Context, id uuid.UUID, params model.ChangePasswordParams) error
	UpdateProfile(ctx context.Context, id uuid.UUID, patch model.ProfilePatch) (model.Account, error)
	Get(ctx context.Context, id uuid.UUID, includeDeleted bool) (model.Account, error)
	SoftDelete(ctx context.Context, id uuid.UUID) error
	Restore(ctx context.Context, id uuid.UUID) (model.Account, error)
	HardDelete(ctx context.Context, id uuid.UUID) error
	ListActive(ctx context.Context, page model.Page) (model.AccountList, error)
	ListDeleted(ctx context.Context, page model.Page) (model.AccountList, error)
	UploadAvatar(ctx context.Context, id uuid.UUID, avatar model.Avatar) (model.Account, error)
	OpenAvatar(ctx context.Context, id uuid.UUID) (model.Object, error)
	Health(ctx context.Context) error
}

// Account handles the /auth and /accounts endpoints.
type Account struct {
	service        AccountService
	contextManager model.ContextManager
	avatarMaxBytes int64
	logger         *logger.Logger
}

// NewAccount creates a new Account handler.
func NewAccount(service AccountService, contextManager model.ContextManager, avatarMaxBytes int64, logger *logger.Logger) *Account {
	return &Account{
		service:        service,
		contextManager: contextManager,
		avatarMaxBytes: avatarMaxBytes,
		logger:         logger,
	}
}

// Register handles POST /auth/register.
func (h *Account) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, err)
		return
	}

	account, err := h.service.Register(r.Context(), model.RegisterParams{
		Phone:           req.Phone,
		Username:        req.Username,
		Password:        req.Password,
		PasswordConfirm: req.PasswordConfirm,
		Email:           req.Email,
		Bio:             req.Bio,
	})
	if err != nil {
		h.fail(w, r, "registration failed", err)
		return
	}

	response.JSON(w, http.StatusCreated, "account created", response.Project(accountView(account), response.ParseFields(r)))
}

// Token handles POST /auth/token (password login).
func (h *Account) Token(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, err)
		return
	}

	_, session, err := h.service.PasswordLogin(r.Context(), req.Phone, req.Password)
	if err != nil {
		h.fail(w, r, "password login failed", err)
		return
	}

	response.JSON(w, http.StatusOK, "ok", sessionView(session))
}

// Refresh handles POST /auth/token/refresh.
func (h *Account) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, err)
		return
	}

	access, expiresAt, err := h.service.Refresh(r.Context(), req.Refresh)
	if err != nil {
		h.fail(w, r, "refresh failed", err)
		return
	}

	response.JSON(w, http.StatusOK, "ok", map[string]any{
		"access":            access,
		"access_expires_at": expiresAt.UTC(),
	})
}

// SendSMS handles POST /auth/sms/send.
func (h *Account) SendSMS(w http.ResponseWriter, r *http.Request) {
	var req smsSendRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, err)
		return
	}

	dispatch, err := h.service.SendSMSCode(r.Context(), req.Phone)
	if err != nil {
		if model.IsKind(err, model.KindRateLimited) {
			w.Header().Set("X-RateLimit-Remaining", "0")
		}
		h.fail(w, r, "sms send failed", err)
		return
	}

	if dispatch.Remaining >= 0 {
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(dispatch.Remaining))
	}
	response.JSON(w, http.StatusOK, "code sent", map[string]any{
		"expires_at": dispatch.ExpiresAt.UTC(),
	})
}

// SMSLogin handles POST /auth/sms/login.
func (h *Account) SMSLogin(w http.ResponseWriter, r *http.Request) {
	var req smsLoginRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, err)
		return
	}

	account, session, created, err := h.service.SMSLogin(r.Context(), req.Phone, req.Code)
	if err != nil {
		h.fail(w, r, "sms login failed", err)
		return
	}

	data := sessionView(session)
	data["account"] = response.Project(accountView(account), response.ParseFields(r))
	data["created"] = created

	response.JSON(w, http.StatusOK, "ok", data)
}

// Me handles GET /accounts/me.
func (h *Account) Me(w http.ResponseWriter, r *http.Request) {
	callerID, ok := h.callerID(w, r)
	if !ok {
		return
	}

	account, err := h.service.Get(r.Context(), callerID, false)
	if err != nil {
		h.fail(w, r, "get current account failed", err)
		return
	}

	response.JSON(w, http.StatusOK, "ok", response.Project(accountView(account), response.ParseFields(r)))
}

// ChangePassword handles PUT /accounts/me/password.
func (h *Account) ChangePassword(w http.ResponseWriter, r *http.Request) {
	callerID, ok := h.callerID(w, r)
	if !ok {
		return
	}

	var req changePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, err)
		return
	}

	err := h.service.ChangePassword(r.Context(), callerID, model.ChangePasswordParams{
		OldPassword:        req.Old,
		NewPassword:        req.New,
		NewPasswordConfirm: req.NewConfirm,
	})
	if err != nil {
		h.fail(w, r, "change password failed", err)
		return
	}

	response.JSON(w, http.StatusOK, "password updated", nil)
}

// UploadAvatar handles PUT /accounts/me/avatar (multipart field "avatar").
func (h *Account) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	callerID, ok := h.callerID(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.avatarMaxBytes+1<<20)
	file, header, err := r.FormFile("avatar")
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		response.Error(w, model.NewInvalidInput("avatar", fmt.Sprintf("avatar must be at most %d bytes", h.avatarMaxBytes)))
		return
	}
	if err != nil {
		response.Error(w, model.NewInvalidInput("avatar", "multipart field avatar is required"))
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		sniff := make([]byte, 512)
		n, _ := io.ReadFull(file, sniff)
		contentType = http.DetectContentType(sniff[:n])
		if _, err := file.Seek(0, io.SeekStart); err != nil {
			response.Error(w, err)
			return
		}
	}

	account, err := h.service.UploadAvatar(r.Context(), callerID, model.Avatar{
		Reader:      file,
		Size:        header.Size,
		ContentType: contentType,
	})
	if err != nil {
		h.fail(w, r, "avatar upload failed", err)
		return
	}

	response.JSON(w, http.StatusOK, "avatar updated", response.Project(accountView(account), response.ParseFields(r)))
}

// Avatar handles GET /accounts/{id}/avatar.
func (h *Account) Avatar(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	obj, err := h.service.OpenAvatar(r.Context(), id)
	if err != nil {
		h.fail(w, r, "avatar download failed", err)
		return
	}
	defer obj.Body.Close()

	w.Header().Set("Content-Type", obj.ContentType)
	if obj.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(obj.Size, 10))
	}
	w.Header().Set("Cache-Control", "private, max-age=300")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, obj.Body); err != nil {
		h.logger.WarnContext(r.Context(), "Account handler: avatar stream interrupted", "error", err.Error())
	}
}

// List handles GET /accounts.
func (h *Account) List(w http.ResponseWriter, r *http.Request) {
	page, err := parsePage(r)
	if err != nil {
		response.Error(w, err)
		return
	}

	list, err := h.service.ListActive(r.Context(), page)
	if err != nil {
		h.fail(w, r, "list accounts failed", err)
		return
	}

	response.JSON(w, http.StatusOK, "ok", listView(list, response.ParseFields(r)))
}

// ListDeleted handles GET /accounts/deleted. Staff only.
func (h *Account) ListDeleted(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	if !caller.IsStaff && !caller.IsSuperuser {
		response.Error(w, model.NewForbidden("staff only"))
		return
	}

	page, err := parsePage(r)
	if err != nil {
		response.Error(w, err)
		return
	}

	list, err := h.service.ListDeleted(r.Context(), page)
	if err != nil {
		h.fail(w, r, "list deleted accounts failed", err)
		return
	}

	response.JSON(w, http.StatusOK, "ok", listView(list, response.ParseFields(r)))
}

// Get handles GET /accounts/{id}.
func (h *Account) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	account, err := h.service.Get(r.Context(), id, false)
	if err != nil {
		h.fail(w, r, "get account failed", err)
		return
	}

	response.JSON(w, http.StatusOK, "ok", response.Project(accountView(account), response.ParseFields(r)))
}

// Update handles PATCH /accounts/{id}. Self only.
func (h *Account) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.selfOnly(w, r)
	if !ok {
		return
	}

	var req updateProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, err)
		return
	}

	account, err := h.service.UpdateProfile(r.Context(), id, model.ProfilePatch{
		Username: req.Username,
		Phone:    req.Phone,
		Bio:      req.Bio,
	})
	if err != nil {
		h.fail(w, r, "update profile failed", err)
		return
	}

	response.JSON(w, http.StatusOK, "ok", response.Project(accountView(account), response.ParseFields(r)))
}

// SoftDelete handles DELETE /accounts/{id}. Self only.
func (h *Account) SoftDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.selfOnly(w, r)
	if !ok {
		return
	}

	if err := h.service.SoftDelete(r.Context(), id); err != nil {
		h.fail(w, r, "soft delete failed", err)
		return
	}

	response.JSON(w, http.StatusOK, "account deleted", nil)
}

// Restore handles POST /accounts/{id}/restore. Owner or staff.
func (h *Account) Restore(w http.ResponseWriter, r *http.Request) {
	id, ok := h.ownerOrStaff(w, r)
	if !ok {
		return
	}

	account, err := h.service.Restore(r.Context(), id)
	if err != nil {
		h.fail(w, r, "restore failed", err)
		return
	}

	response.JSON(w, http.StatusOK, "account restored", response.Project(accountView(account), response.ParseFields(r)))
}

// HardDelete handles DELETE /accounts/{id}/hard. Owner or staff.
func (h *Account) HardDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.ownerOrStaff(w, r)
	if !ok {
		return
	}

	if err := h.service.HardDelete(r.Context(), id); err != nil {
		h.fail(w, r, "hard delete failed", err)
		return
	}

	response.JSON(w, http.StatusOK, "account permanently deleted", nil)
}

// Health handles GET /healthz.
func (h *Account) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Health(r.Context()); err != nil {
		h.logger.WarnContext(r.Context(), "Account handler: health check failed", "error", err.Error())
		response.JSON(w, http.StatusServiceUnavailable, "unavailable", nil)
		return
	}
	response.JSON(w, http.StatusOK, "ok", nil)
}

func (h *Account) callerID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, ok := h.contextManager.GetAccountIDFromContext(r.Context())
	if !ok {
		response.Error(w, model.NewUnauthorized("missing authorization token"))
		return uuid.Nil, false
	}
	return id, true
}

// caller loads the authenticated account, soft-deleted included, so owners
// can still restore themselves.
func (h *Account) caller(w http.ResponseWriter, r *http.Request) (model.Account, bool) {
	id, ok := h.callerID(w, r)
	if !ok {
		return model.Account{}, false
	}

	account, err := h.service.Get(r.Context(), id, true)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			response.Error(w, model.ErrInvalidToken)
			return model.Account{}, false
		}
		h.fail(w, r, "load caller failed", err)
		return model.Account{}, false
	}
	return account, true
}

func (h *Account) selfOnly(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, ok := pathID(w, r)
	if !ok {
		return uuid.Nil, false
	}
	callerID, ok := h.callerID(w, r)
	if !ok {
		return uuid.Nil, false
	}
	if callerID != id {
		response.Error(w, model.NewForbidden("you can only change your own account"))
		return uuid.Nil, false
	}
	return id, true
}

func (h *Account) ownerOrStaff(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, ok := pathID(w, r)
	if !ok {
		return uuid.Nil, false
	}
	caller, ok := h.caller(w, r)
	if !ok {
		return uuid.Nil, false
	}
	if caller.ID != id && !caller.IsStaff && !caller.IsSuperuser {
		response.Error(w, model.NewForbidden("only the owner or staff may do this"))
		return uuid.Nil, false
	}
	return id, true
}

func (h *Account) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	if response.StatusOf(err) >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "Account handler: "+msg, "error", err.Error())
	} else {
		h.logger.DebugContext(r.Context(), "Account handler: "+msg, "error", err.Error())
	}
	response.Error(w, err)
}

func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, model.NewInvalidInput("id", "id must be a UUID"))
		return uuid.Nil, false
	}
	return id, true
}

func parsePage(r *http.Request) (model.Page, error) {
	q := r.URL.Query()
	var page model.Page

	if raw := q.Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return model.Page{}, model.NewInvalidInput("page", "page must be a positive integer")
		}
		page.Number = n
	}
	if raw := q.Get("page_size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return model.Page{}, model.NewInvalidInput("page_size", "page_size must be a positive integer")
		}
		page.Size = n
	}

	return page.Normalize(), nil
}
