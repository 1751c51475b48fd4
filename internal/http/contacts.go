package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/addrbook/addrbook/internal/domain"
	"github.com/addrbook/addrbook/internal/service"
	"github.com/addrbook/addrbook/pkg/httpx"
	"github.com/addrbook/addrbook/pkg/slogx"
)

// ContactsHandler serves the address book endpoints. Every route sits
// behind AuthnMiddleware, so the acting user is always on the context.
type ContactsHandler struct {
	ContactService *service.ContactService
}

const birthdayLayout = "2006-01-02"

type contactRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Birthday  string `json:"birthday,omitempty"`
	ExtraInfo string `json:"extra_info,omitempty"`
}

type contactResponse struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Birthday  string `json:"birthday,omitempty"`
	ExtraInfo string `json:"extra_info,omitempty"`
}

func toContactResponse(c domain.Contact) contactResponse {
	resp := contactResponse{
		ID:        c.ID,
		FirstName: c.FirstName,
		LastName:  c.LastName,
		Email:     c.Email,
		Phone:     c.Phone,
		ExtraInfo: c.ExtraInfo,
	}
	if c.Birthday != nil {
		resp.Birthday = c.Birthday.Format(birthdayLayout)
	}
	return resp
}

func toContactResponses(cs []domain.Contact) []contactResponse {
	out := make([]contactResponse, 0, len(cs))
	for _, c := range cs {
		out = append(out, toContactResponse(c))
	}
	return out
}

// parseContact validates a create request body into a domain contact owned
// by userID. The id is left empty; Create mints it.
func parseContact(r *http.Request, userID string) (domain.Contact, *APIError) {
	var req contactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return domain.Contact{}, ErrInvalidRequest
	}

	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	req.Email = strings.TrimSpace(req.Email)
	if req.FirstName == "" || req.LastName == "" || req.Email == "" {
		return domain.Contact{}, ErrInvalidRequest
	}

	c := domain.Contact{
		UserID:    userID,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Phone:     req.Phone,
		ExtraInfo: req.ExtraInfo,
	}
	if req.Birthday != "" {
		day, err := time.Parse(birthdayLayout, req.Birthday)
		if err != nil {
			return domain.Contact{}, ErrInvalidRequest
		}
		c.Birthday = &day
	}
	return c, nil
}

// HandleList returns a page of the user's contacts.
func (h *ContactsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	snap, ok := userFromContext(r.Context())
	if !ok {
		ErrUnauthorized.WriteError(w)
		return
	}

	offset := queryInt(r, "skip", 0)
	limit := queryInt(r, "limit", 0)

	contacts, err := h.ContactService.List(r.Context(), snap.ID, offset, limit)
	if err != nil {
		writeServiceError(w, slogx.FromContext(r.Context()), err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toContactResponses(contacts))
}

// HandleGet returns one contact by id.
func (h *ContactsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	snap, ok := userFromContext(r.Context())
	if !ok {
		ErrUnauthorized.WriteError(w)
		return
	}

	c, err := h.ContactService.Get(r.Context(), snap.ID, r.PathValue("id"))
	if err != nil {
		writeServiceError(w, slogx.FromContext(r.Context()), err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toContactResponse(c))
}

// HandleSearch finds a contact by first name, last name or email. The first
// criterion present wins.
func (h *ContactsHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	snap, ok := userFromContext(r.Context())
	if !ok {
		ErrUnauthorized.WriteError(w)
		return
	}

	q := r.URL.Query()
	c, err := h.ContactService.Search(r.Context(), snap.ID, service.SearchQuery{
		FirstName: q.Get("first_name"),
		LastName:  q.Get("last_name"),
		Email:     q.Get("email"),
	})
	if err != nil {
		writeServiceError(w, slogx.FromContext(r.Context()), err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toContactResponse(c))
}

// HandleBirthdays lists contacts with a birthday in the coming week.
func (h *ContactsHandler) HandleBirthdays(w http.ResponseWriter, r *http.Request) {
	snap, ok := userFromContext(r.Context())
	if !ok {
		ErrUnauthorized.WriteError(w)
		return
	}

	contacts, err := h.ContactService.UpcomingBirthdays(r.Context(), snap.ID)
	if err != nil {
		writeServiceError(w, slogx.FromContext(r.Context()), err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toContactResponses(contacts))
}

// HandleCreate adds a contact.
func (h *ContactsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	snap, ok := userFromContext(r.Context())
	if !ok {
		ErrUnauthorized.WriteError(w)
		return
	}

	c, apiErr := parseContact(r, snap.ID)
	if apiErr != nil {
		apiErr.WriteError(w)
		return
	}

	created, err := h.ContactService.Create(r.Context(), c)
	if err != nil {
		writeServiceError(w, slogx.FromContext(r.Context()), err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toContactResponse(created))
}

// contactUpdateRequest distinguishes omitted fields from empty ones so an
// update only touches what the body provides.
type contactUpdateRequest struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Email     *string `json:"email"`
	Phone     *string `json:"phone"`
	Birthday  *string `json:"birthday"`
	ExtraInfo *string `json:"extra_info"`
}

// HandleUpdate applies a partial update: fields absent from the body keep
// their stored values. An empty birthday string clears the birthday.
func (h *ContactsHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	snap, ok := userFromContext(r.Context())
	if !ok {
		ErrUnauthorized.WriteError(w)
		return
	}

	var req contactUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ErrInvalidRequest.WriteError(w)
		return
	}

	c, err := h.ContactService.Get(r.Context(), snap.ID, r.PathValue("id"))
	if err != nil {
		writeServiceError(w, slogx.FromContext(r.Context()), err)
		return
	}

	if req.FirstName != nil {
		c.FirstName = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		c.LastName = strings.TrimSpace(*req.LastName)
	}
	if req.Email != nil {
		c.Email = strings.TrimSpace(*req.Email)
	}
	if req.Phone != nil {
		c.Phone = *req.Phone
	}
	if req.ExtraInfo != nil {
		c.ExtraInfo = *req.ExtraInfo
	}
	if req.Birthday != nil {
		if *req.Birthday == "" {
			c.Birthday = nil
		} else {
			day, err := time.Parse(birthdayLayout, *req.Birthday)
			if err != nil {
				ErrInvalidRequest.WriteError(w)
				return
			}
			c.Birthday = &day
		}
	}

	// The merged record must still satisfy the create-time requirements.
	if c.FirstName == "" || c.LastName == "" || c.Email == "" {
		ErrInvalidRequest.WriteError(w)
		return
	}

	updated, err := h.ContactService.Update(r.Context(), c)
	if err != nil {
		writeServiceError(w, slogx.FromContext(r.Context()), err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toContactResponse(updated))
}

// HandleDelete removes a contact.
func (h *ContactsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	snap, ok := userFromContext(r.Context())
	if !ok {
		ErrUnauthorized.WriteError(w)
		return
	}

	if err := h.ContactService.Delete(r.Context(), snap.ID, r.PathValue("id")); err != nil {
		writeServiceError(w, slogx.FromContext(r.Context()), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
