package httpapi

import (
	"net/http"
	"strings"
	"time"

	"rooflens.io/internal/audit"
	"rooflens.io/internal/document"
)

type documentRequest struct {
	Kind           string     `json:"kind"`
	Title          string     `json:"title"`
	BranchID       string     `json:"branch_id"`
	CustomerID     string     `json:"customer_id"`
	CompanyID      string     `json:"company_id,omitempty"`
	RecipientName  string     `json:"recipient_name,omitempty"`
	RecipientEmail string     `json:"recipient_email,omitempty"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
}

type sendResponse struct {
	Document  *document.Document `json:"document"`
	PublicURL string             `json:"public_url"`
}

type correctRequest struct {
	Status string `json:"status"`
}

type respondRequest struct {
	Outcome string `json:"outcome"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Reason  string `json:"reason,omitempty"`
}

func (a *API) handleDocuments(w http.ResponseWriter, r *http.Request) {
	p, ok := a.principal(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodPost:
		var req documentRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		doc, err := a.docs.Create(r.Context(), p, document.CreateInput{
			Kind:           document.Kind(req.Kind),
			Title:          req.Title,
			BranchID:       req.BranchID,
			CustomerID:     req.CustomerID,
			CompanyID:      req.CompanyID,
			RecipientName:  req.RecipientName,
			RecipientEmail: req.RecipientEmail,
			ExpiresAt:      req.ExpiresAt,
		})
		if err != nil {
			handleDocumentError(w, r, err)
			return
		}
		w.Header().Set("Location", "/v1/documents/"+doc.ID)
		writeJSON(w, http.StatusCreated, doc)
	case http.MethodGet:
		var kind document.Kind
		if raw := strings.TrimSpace(r.URL.Query().Get("kind")); raw != "" {
			parsed, err := document.ParseKind(raw)
			if err != nil {
				writeError(w, r, http.StatusBadRequest, "unknown document kind")
				return
			}
			kind = parsed
		}
		docs, err := a.docs.List(r.Context(), p, kind)
		if err != nil {
			handleDocumentError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": docs})
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleDocumentResource(w http.ResponseWriter, r *http.Request) {
	p, ok := a.principal(w, r)
	if !ok {
		return
	}
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/documents/"), "/")
	if rest == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	parts := strings.Split(rest, "/")
	id := parts[0]

	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			doc, err := a.docs.Get(r.Context(), p, id)
			if err != nil {
				handleDocumentError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, doc)
		case http.MethodPut:
			var req documentRequest
			if err := decodeJSON(w, r, &req); err != nil {
				writeError(w, r, http.StatusBadRequest, err.Error())
				return
			}
			doc, err := a.docs.UpdateDraft(r.Context(), p, id, document.CreateInput{
				Title:          req.Title,
				RecipientName:  req.RecipientName,
				RecipientEmail: req.RecipientEmail,
				ExpiresAt:      req.ExpiresAt,
			})
			if err != nil {
				handleDocumentError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, doc)
		case http.MethodDelete:
			if err := a.docs.Delete(r.Context(), p, id); err != nil {
				handleDocumentError(w, r, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		default:
			methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
		}
		return
	}

	if len(parts) != 2 {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	switch parts[1] {
	case "send":
		if r.Method != http.MethodPost {
			methodNotAllowed(w, r, http.MethodPost)
			return
		}
		doc, token, err := a.docs.Send(r.Context(), p, id)
		if err != nil {
			handleDocumentError(w, r, err)
			return
		}
		// The plain token appears exactly once, here. Only its digest is stored.
		writeJSON(w, http.StatusOK, sendResponse{
			Document:  doc,
			PublicURL: "/" + string(doc.Kind) + "/public/" + token,
		})
	case "cancel":
		if r.Method != http.MethodPost {
			methodNotAllowed(w, r, http.MethodPost)
			return
		}
		doc, err := a.docs.Cancel(r.Context(), p, id)
		if err != nil {
			handleDocumentError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, doc)
	case "correct":
		if r.Method != http.MethodPost {
			methodNotAllowed(w, r, http.MethodPost)
			return
		}
		var req correctRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		doc, err := a.docs.Correct(r.Context(), p, id, document.Status(req.Status))
		if err != nil {
			handleDocumentError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, doc)
	case "records":
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		recs, err := a.docs.Records(r.Context(), p, id)
		if err != nil {
			handleDocumentError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": recs})
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

// handlePublicDocument serves the anonymous token surface: a GET shows the
// public projection, a POST on /respond applies accept or reject. The token
// is the entire credential; no other authentication applies here.
func (a *API) handlePublicDocument(w http.ResponseWriter, r *http.Request) {
	kind, token, respond, ok := parsePublicPath(r.URL.Path)
	if !ok {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	if respond {
		if r.Method != http.MethodPost {
			methodNotAllowed(w, r, http.MethodPost)
			return
		}
		var req respondRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		var outcome document.Outcome
		switch strings.ToLower(strings.TrimSpace(req.Outcome)) {
		case "accepted", "accept":
			outcome = document.OutcomeAccepted
		case "rejected", "reject":
			outcome = document.OutcomeRejected
		default:
			writeError(w, r, http.StatusBadRequest, "outcome must be accepted or rejected")
			return
		}
		actor := document.Actor{Name: req.Name, Email: req.Email, OriginAddr: clientIP(r)}
		view, err := a.docs.RespondByToken(r.Context(), kind, token, outcome, actor, req.Reason)
		if err != nil {
			handleDocumentError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
		return
	}

	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	// A token used on the wrong kind's route answers not-found, the same as
	// an unknown token.
	view, err := a.docs.PublicByToken(r.Context(), kind, token)
	if err != nil {
		handleDocumentError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "document.public_view", map[string]any{
		"kind": string(view.Kind),
	})
	writeJSON(w, http.StatusOK, view)
}

func parsePublicPath(path string) (document.Kind, string, bool, bool) {
	var kind document.Kind
	var rest string
	switch {
	case strings.HasPrefix(path, "/offer/public/"):
		kind = document.KindOffer
		rest = strings.TrimPrefix(path, "/offer/public/")
	case strings.HasPrefix(path, "/service-agreement/public/"):
		kind = document.KindServiceAgreement
		rest = strings.TrimPrefix(path, "/service-agreement/public/")
	default:
		return "", "", false, false
	}
	rest = strings.Trim(rest, "/")
	if rest == "" {
		return "", "", false, false
	}
	parts := strings.Split(rest, "/")
	switch len(parts) {
	case 1:
		return kind, parts[0], false, true
	case 2:
		if parts[1] != "respond" {
			return "", "", false, false
		}
		return kind, parts[0], true, true
	}
	return "", "", false, false
}
