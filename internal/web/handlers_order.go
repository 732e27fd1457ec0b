package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/JonMunkholm/combokiosk/internal/catalog"
	"github.com/JonMunkholm/combokiosk/internal/combo"
	"github.com/JonMunkholm/combokiosk/internal/logging"
)

// orderRequest carries the order settings a client may override. Missing
// fields fall back to the configured defaults.
type orderRequest struct {
	BranchID *int   `json:"branchId,omitempty"`
	Channel  string `json:"channel,omitempty"`
	Currency string `json:"currency,omitempty"`
	Language string `json:"language,omitempty"`
}

// options resolves the request settings against the configured ones.
func (s *Server) options(req orderRequest, acceptLanguage string) (catalog.Options, error) {
	pricing := s.cfg.Ordering.Pricing()
	opt := catalog.Options{
		BranchID: s.cfg.Ordering.BranchID,
		Channel:  pricing.Channel,
		Currency: pricing.Currency,
		Language: s.cfg.Ordering.Language,
	}
	if req.BranchID != nil {
		if *req.BranchID < 0 {
			return opt, errors.New("branch must not be negative")
		}
		opt.BranchID = *req.BranchID
	}
	if req.Channel != "" {
		ch, ok := combo.ParseChannel(req.Channel)
		if !ok {
			return opt, errors.New("unknown channel: " + req.Channel)
		}
		opt.Channel = ch
	}
	if req.Currency != "" {
		cur, ok := combo.ParseCurrency(req.Currency)
		if !ok {
			return opt, errors.New("unknown currency: " + req.Currency)
		}
		opt.Currency = cur
	}
	switch {
	case req.Language != "":
		opt.Language = req.Language
	case acceptLanguage != "":
		opt.Language = acceptLanguage
	}
	return opt, nil
}

// queryOptions reads order settings from the query string.
func (s *Server) queryOptions(r *http.Request) (catalog.Options, error) {
	q := r.URL.Query()
	req := orderRequest{
		Channel:  q.Get("channel"),
		Currency: q.Get("currency"),
		Language: q.Get("lang"),
	}
	if b := q.Get("branch"); b != "" {
		id, err := strconv.Atoi(b)
		if err != nil {
			return catalog.Options{}, errors.New("invalid branch: " + b)
		}
		req.BranchID = &id
	}
	return s.options(req, r.Header.Get("Accept-Language"))
}

// maxJSONBody caps a kiosk request body.
const maxJSONBody = 1 << 20

// pathParam returns a route parameter unescaped. Group keys contain "/"
// between group and sub-group, which clients send as %2F; chi routes on
// the raw path and leaves the escape in place.
func pathParam(r *http.Request, name string) string {
	raw := chi.URLParam(r, name)
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}

// decodeJSON reads a JSON body. An empty body leaves v untouched.
func decodeJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return errors.New("invalid request body: " + err.Error())
	}
	return nil
}

// ----------------------------------------------------------------------------
// Catalog
// ----------------------------------------------------------------------------

// handleListCombos returns the combos offered at a branch.
func (s *Server) handleListCombos(w http.ResponseWriter, r *http.Request) {
	opt, err := s.queryOptions(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	list, err := s.catalog.List(r.Context(), opt.BranchID)
	if err != nil {
		logging.FromContext(r.Context()).Error("combo list failed", "branch_id", opt.BranchID, "error", err)
		writeJSON(w, http.StatusOK, []catalog.Summary{})
		return
	}
	if list == nil {
		list = []catalog.Summary{}
	}
	writeJSON(w, http.StatusOK, list)
}

// handleGetCombo returns the resolved combo. Fetch failures yield a combo
// with no groups so the kiosk can fall back to selling the plain product.
func (s *Server) handleGetCombo(w http.ResponseWriter, r *http.Request) {
	opt, err := s.queryOptions(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	c := s.catalog.ComboOrEmpty(r.Context(), pathParam(r, "productKey"), opt)
	writeJSON(w, http.StatusOK, c)
}

// ----------------------------------------------------------------------------
// Sessions
// ----------------------------------------------------------------------------

// groupView is one step of the flow as the kiosk shows it.
type groupView struct {
	Key              string               `json:"key"`
	GroupName        string               `json:"groupName"`
	Required         bool                 `json:"required"`
	RequiredQuantity int                  `json:"requiredQuantity,omitempty"`
	MaxQuantity      int                  `json:"maxQuantity,omitempty"`
	Total            int                  `json:"total"`
	Complete         bool                 `json:"complete"`
	Selected         []combo.SelectedItem `json:"selected"`
}

// sessionView is the state of a session after any call.
type sessionView struct {
	ID          string            `json:"id"`
	ProductKey  string            `json:"productKey"`
	Name        string            `json:"name"`
	Channel     combo.Channel     `json:"channel"`
	Currency    combo.Currency    `json:"currency"`
	BasePrice   decimal.Decimal   `json:"basePrice"`
	Total       decimal.Decimal   `json:"total"`
	ActiveIndex int               `json:"activeIndex"`
	ReviewIndex int               `json:"reviewIndex"`
	InReview    bool              `json:"inReview"`
	Groups      []groupView       `json:"groups"`
	Transition  *combo.Transition `json:"transition,omitempty"`
	Unmatched   []string          `json:"unmatched,omitempty"`
}

func newSessionView(s *Session, e *combo.Engine) sessionView {
	c := e.Combo()
	sel := e.Selections()
	pricing := s.Pricing()

	v := sessionView{
		ID:          s.ID,
		ProductKey:  c.ProductKey,
		Name:        c.Name,
		Channel:     s.Options.Channel,
		Currency:    s.Options.Currency,
		BasePrice:   c.BasePrice,
		Total:       pricing.Total(c.BasePrice, c, sel),
		ActiveIndex: e.ActiveIndex(),
		ReviewIndex: e.ReviewIndex(),
		InReview:    e.InReview(),
		Groups:      make([]groupView, len(c.Groups)),
	}
	for i, g := range c.Groups {
		gv := groupView{
			Key:         g.Key,
			GroupName:   g.GroupName,
			Required:    g.Required(),
			MaxQuantity: g.MaxQuantity,
			Total:       sel.Total(g.Key),
			Complete:    e.IsComplete(g.Key),
			Selected:    sel[g.Key],
		}
		if gv.Required {
			gv.RequiredQuantity = g.RequiredQuantity()
		}
		if gv.Selected == nil {
			gv.Selected = []combo.SelectedItem{}
		}
		v.Groups[i] = gv
	}
	return v
}

// session loads the session named in the URL and tags the request logger.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*Session, *http.Request, bool) {
	sess, err := s.sessions.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return nil, r, false
	}
	r = r.WithContext(logging.ContextWithSession(r.Context(), sess.ID))
	return sess, r, true
}

type createSessionRequest struct {
	orderRequest
	ProductKey    string `json:"productKey"`
	ApplyDefaults bool   `json:"applyDefaults,omitempty"`
}

// handleCreateSession opens a selection flow on the first group.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.ProductKey == "" {
		writeError(w, http.StatusBadRequest, "productKey is required")
		return
	}
	opt, err := s.options(req.orderRequest, r.Header.Get("Accept-Language"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	c, err := s.catalog.Combo(r.Context(), req.ProductKey, opt)
	if err != nil {
		respondSelectionError(w, r, err)
		return
	}

	e := combo.NewEngine(c)
	if req.ApplyDefaults {
		e.ApplyDefaults()
	}
	sess, err := s.sessions.Create(e, opt)
	if err != nil {
		respondSelectionError(w, r, err)
		return
	}

	logging.WithFields(logging.ContextWithSession(r.Context(), sess.ID),
		"product_key", c.ProductKey,
		"branch_id", opt.BranchID,
	).Debug("session opened")

	writeJSON(w, http.StatusCreated, newSessionView(sess, e))
}

type resumeSessionRequest struct {
	orderRequest
	Line combo.CartLineItem `json:"line"`
}

// handleResumeSession re-opens a cart line for editing. Sub-items the
// catalog no longer offers are dropped and listed as unmatched.
func (s *Server) handleResumeSession(w http.ResponseWriter, r *http.Request) {
	var req resumeSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Line.ProductKey == "" {
		writeError(w, http.StatusBadRequest, "line.productKey is required")
		return
	}
	opt, err := s.options(req.orderRequest, r.Header.Get("Accept-Language"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	c, err := s.catalog.Combo(r.Context(), req.Line.ProductKey, opt)
	if err != nil {
		respondSelectionError(w, r, err)
		return
	}
	e, unmatched, err := combo.ResumeEngine(c, req.Line)
	if err != nil {
		respondSelectionError(w, r, err)
		return
	}
	sess, err := s.sessions.Create(e, opt)
	if err != nil {
		respondSelectionError(w, r, err)
		return
	}
	if len(unmatched) > 0 {
		logging.FromContext(logging.ContextWithSession(r.Context(), sess.ID)).Info("cart line items no longer offered",
			"product_key", c.ProductKey,
			"unmatched", unmatched,
		)
	}

	v := newSessionView(sess, e)
	v.Unmatched = unmatched
	writeJSON(w, http.StatusCreated, v)
}

// handleGetSession returns the current state.
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, _, ok := s.session(w, r)
	if !ok {
		return
	}
	var v sessionView
	sess.Do(func(e *combo.Engine) error {
		v = newSessionView(sess, e)
		return nil
	})
	writeJSON(w, http.StatusOK, v)
}

// handleDeleteSession closes a session without a cart line.
func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if !s.sessions.Delete(chi.URLParam(r, "sessionID")) {
		writeError(w, http.StatusNotFound, ErrSessionNotFound.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// mutate runs fn on the session engine and answers with the new state.
func (s *Server) mutate(w http.ResponseWriter, r *http.Request, fn func(e *combo.Engine) (*combo.Transition, error)) {
	sess, r, ok := s.session(w, r)
	if !ok {
		return
	}
	var v sessionView
	err := sess.Do(func(e *combo.Engine) error {
		t, err := fn(e)
		if err != nil {
			return err
		}
		v = newSessionView(sess, e)
		v.Transition = t
		return nil
	})
	if err != nil {
		respondSelectionError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// handleSetQuantity sets the quantity of one product in one group.
func (s *Server) handleSetQuantity(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Quantity *int `json:"quantity"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Quantity == nil {
		writeError(w, http.StatusBadRequest, "quantity is required")
		return
	}
	groupKey := pathParam(r, "groupKey")
	productKey := pathParam(r, "productKey")

	s.mutate(w, r, func(e *combo.Engine) (*combo.Transition, error) {
		t, err := e.SetQuantity(groupKey, productKey, *req.Quantity)
		if err != nil {
			return nil, err
		}
		return &t, nil
	})
}

// handleGoTo moves to any step; the review step is reviewIndex.
func (s *Server) handleGoTo(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Index *int `json:"index"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Index == nil {
		writeError(w, http.StatusBadRequest, "index is required")
		return
	}
	s.mutate(w, r, func(e *combo.Engine) (*combo.Transition, error) {
		return nil, e.GoTo(*req.Index)
	})
}

// handleReview moves to the review step.
func (s *Server) handleReview(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, func(e *combo.Engine) (*combo.Transition, error) {
		e.GoToReview()
		return nil, nil
	})
}

// handleApplyDefaults fills untouched groups with their default items.
func (s *Server) handleApplyDefaults(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, func(e *combo.Engine) (*combo.Transition, error) {
		e.ApplyDefaults()
		return nil, nil
	})
}

// handleValidate reports the first unmet group, or 200 when the selection
// can be committed.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	sess, r, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := sess.Do(func(e *combo.Engine) error { return e.Validate() }); err != nil {
		respondSelectionError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"valid": true})
}

// handleCommit validates, prices and returns the cart line, then closes the
// session. A failed validation leaves the session open.
func (s *Server) handleCommit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Quantity int    `json:"quantity"`
		Notes    string `json:"notes"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Quantity < 0 {
		writeError(w, http.StatusBadRequest, combo.ErrNegativeQuantity.Error())
		return
	}
	sess, r, ok := s.session(w, r)
	if !ok {
		return
	}

	var line combo.CartLineItem
	err := sess.Do(func(e *combo.Engine) error {
		var err error
		line, err = e.Commit(combo.CommitInput{
			Quantity: req.Quantity,
			Notes:    req.Notes,
			Pricing:  sess.Pricing(),
		})
		if err != nil {
			return err
		}
		// Only the commit that closes the session hands out the line.
		if !s.sessions.Delete(sess.ID) {
			return ErrSessionNotFound
		}
		return nil
	})
	if err != nil {
		respondSelectionError(w, r, err)
		return
	}

	logging.FromContext(r.Context()).Info("combo committed",
		"product_key", line.ProductKey,
		"items", len(line.Items),
		"unit_price", combo.Format(line.UnitPrice),
	)
	writeJSON(w, http.StatusOK, line)
}
