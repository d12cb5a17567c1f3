package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/iota-uz/lead-rotation/modules/rotation/domain/aggregates/lead"
	"github.com/iota-uz/lead-rotation/modules/rotation/domain/aggregates/representative"
	"github.com/iota-uz/lead-rotation/modules/rotation/domain/audit"
	"github.com/iota-uz/lead-rotation/modules/rotation/domain/eligibility"
	"github.com/iota-uz/lead-rotation/modules/rotation/domain/entities/entry"
	"github.com/iota-uz/lead-rotation/modules/rotation/domain/hit"
	"github.com/iota-uz/lead-rotation/modules/rotation/domain/lane"
	"github.com/iota-uz/lead-rotation/modules/rotation/domain/period"
	"github.com/iota-uz/lead-rotation/modules/rotation/domain/rotationerr"
	"github.com/iota-uz/lead-rotation/modules/rotation/services"
	"github.com/iota-uz/lead-rotation/pkg/constants"
	"github.com/iota-uz/lead-rotation/pkg/httpapi"
)

const idPattern = "{id:[0-9a-fA-F-]{36}}"

type RotationAPIController struct {
	svc       *services.Registry
	apiPrefix string
}

func NewRotationAPIController(svc *services.Registry) *RotationAPIController {
	return &RotationAPIController{svc: svc, apiPrefix: "/api/rotation"}
}

func (c *RotationAPIController) Key() string {
	return c.apiPrefix
}

func (c *RotationAPIController) Register(r *mux.Router) {
	api := r.PathPrefix(c.apiPrefix).Subrouter()

	api.HandleFunc("/representatives", instrumentAPI("representatives.list", c.ListRepresentatives)).Methods(http.MethodGet)
	api.HandleFunc("/representatives", instrumentAPI("representatives.create", c.CreateRepresentative)).Methods(http.MethodPost)
	api.HandleFunc("/representatives/"+idPattern, instrumentAPI("representatives.get", c.GetRepresentative)).Methods(http.MethodGet)
	api.HandleFunc("/representatives/"+idPattern, instrumentAPI("representatives.update", c.UpdateRepresentative)).Methods(http.MethodPut)
	api.HandleFunc("/representatives/"+idPattern+"/cushions", instrumentAPI("cushions.list", c.ListCushions)).Methods(http.MethodGet)
	api.HandleFunc("/representatives/"+idPattern+"/cushions/{lane}", instrumentAPI("cushions.configure", c.ConfigureCushion)).Methods(http.MethodPut)

	api.HandleFunc("/leads", instrumentAPI("leads.list", c.ListLeads)).Methods(http.MethodGet)
	api.HandleFunc("/leads", instrumentAPI("leads.assign", c.AssignLead)).Methods(http.MethodPost)
	api.HandleFunc("/leads/"+idPattern, instrumentAPI("leads.get", c.GetLead)).Methods(http.MethodGet)
	api.HandleFunc("/leads/"+idPattern, instrumentAPI("leads.update", c.UpdateLead)).Methods(http.MethodPatch)
	api.HandleFunc("/leads/"+idPattern, instrumentAPI("leads.delete", c.DeleteLead)).Methods(http.MethodDelete)
	api.HandleFunc("/leads/"+idPattern+":can-delete", instrumentAPI("leads.can_delete", c.CanDeleteLead)).Methods(http.MethodGet)
	api.HandleFunc("/leads/"+idPattern+":mark", instrumentAPI("leads.mark", c.MarkLead)).Methods(http.MethodPost)
	api.HandleFunc("/leads/"+idPattern+":unmark", instrumentAPI("leads.unmark", c.UnmarkLead)).Methods(http.MethodPost)
	api.HandleFunc("/leads/"+idPattern+":replace", instrumentAPI("leads.replace", c.ApplyReplacement)).Methods(http.MethodPost)
	api.HandleFunc("/leads/"+idPattern+":undo-replacement", instrumentAPI("leads.undo_replacement", c.UndoReplacement)).Methods(http.MethodPost)
	api.HandleFunc("/leads/"+idPattern+":delete-replacement", instrumentAPI("leads.delete_replacement", c.DeleteReplacement)).Methods(http.MethodPost)
	api.HandleFunc("/marks", instrumentAPI("marks.list", c.ListMarks)).Methods(http.MethodGet)

	api.HandleFunc("/entries", instrumentAPI("entries.list", c.ListEntries)).Methods(http.MethodGet)
	api.HandleFunc("/entries/skips", instrumentAPI("entries.skip", c.AddSkip)).Methods(http.MethodPost)
	api.HandleFunc("/entries/ooo", instrumentAPI("entries.ooo", c.AddOOO)).Methods(http.MethodPost)
	api.HandleFunc("/entries/"+idPattern, instrumentAPI("entries.delete", c.DeleteEntry)).Methods(http.MethodDelete)

	api.HandleFunc("/next", instrumentAPI("rotation.next", c.Next)).Methods(http.MethodGet)
	api.HandleFunc("/suggest", instrumentAPI("rotation.suggest", c.Suggest)).Methods(http.MethodPost)
	api.HandleFunc("/eligible", instrumentAPI("rotation.eligible", c.Eligible)).Methods(http.MethodGet)
	api.HandleFunc("/standings", instrumentAPI("rotation.standings", c.Standings)).Methods(http.MethodGet)

	api.HandleFunc("/ledger", instrumentAPI("ledger.list", c.ListLedger)).Methods(http.MethodGet)
	api.HandleFunc("/ledger/net", instrumentAPI("ledger.net", c.LedgerNet)).Methods(http.MethodGet)
	api.HandleFunc("/ledger/drift", instrumentAPI("ledger.drift", c.LedgerDrift)).Methods(http.MethodGet)

	api.HandleFunc("/audit", instrumentAPI("audit.list", c.ListAudit)).Methods(http.MethodGet)
}

func (c *RotationAPIController) ListRepresentatives(w http.ResponseWriter, r *http.Request) {
	params := &representative.FindParams{ActiveOnly: r.URL.Query().Get("active") == "true"}
	reps, err := c.svc.Representatives.List(r.Context(), params)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(reps, toRepresentativeResponse))
}

func (c *RotationAPIController) CreateRepresentative(w http.ResponseWriter, r *http.Request) {
	var dto representative.SaveDTO
	if !decodeBody(w, r, &dto) {
		return
	}
	rep, err := c.svc.Representatives.Create(r.Context(), &dto)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toRepresentativeResponse(rep))
}

func (c *RotationAPIController) GetRepresentative(w http.ResponseWriter, r *http.Request) {
	rep, err := c.svc.Representatives.GetByID(r.Context(), pathID(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRepresentativeResponse(rep))
}

func (c *RotationAPIController) UpdateRepresentative(w http.ResponseWriter, r *http.Request) {
	var dto representative.SaveDTO
	if !decodeBody(w, r, &dto) {
		return
	}
	rep, err := c.svc.Representatives.Update(r.Context(), pathID(r), &dto)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRepresentativeResponse(rep))
}

func (c *RotationAPIController) ListCushions(w http.ResponseWriter, r *http.Request) {
	states, err := c.svc.Cushions.List(r.Context(), pathID(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, states)
}

func (c *RotationAPIController) ConfigureCushion(w http.ResponseWriter, r *http.Request) {
	l, err := lane.Parse(mux.Vars(r)["lane"])
	if err != nil {
		writeAPIError(w, r, http.StatusBadRequest, "ROTATION_INVALID_QUERY", err.Error())
		return
	}
	var req cushionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	state, err := c.svc.Cushions.Configure(r.Context(), pathID(r), l, req.Size, req.Occurrences)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (c *RotationAPIController) ListLeads(w http.ResponseWriter, r *http.Request) {
	p, ok := queryPeriod(w, r)
	if !ok {
		return
	}
	params := &lead.FindParams{Period: &p}
	if params.RepID, ok = queryUUID(w, r, "rep_id"); !ok {
		return
	}
	leads, err := c.svc.Leads.List(r.Context(), params)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(leads, toLeadResponse))
}

// AssignLead assigns by rotation, or to rep_id when the body names one.
func (c *RotationAPIController) AssignLead(w http.ResponseWriter, r *http.Request) {
	var draft lead.Draft
	if !decodeBody(w, r, &draft) {
		return
	}
	created, err := c.svc.Leads.Assign(r.Context(), &draft)
	if err != nil {
		writeLeadError(w, r, created, err)
		return
	}
	writeJSON(w, http.StatusCreated, toLeadResponse(created))
}

func (c *RotationAPIController) GetLead(w http.ResponseWriter, r *http.Request) {
	l, err := c.svc.Leads.GetByID(r.Context(), pathID(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toLeadResponse(l))
}

func (c *RotationAPIController) UpdateLead(w http.ResponseWriter, r *http.Request) {
	var dto lead.UpdateDTO
	if !decodeBody(w, r, &dto) {
		return
	}
	updated, err := c.svc.Leads.Update(r.Context(), pathID(r), &dto)
	if err != nil {
		writeLeadError(w, r, updated, err)
		return
	}
	writeJSON(w, http.StatusOK, toLeadResponse(updated))
}

func (c *RotationAPIController) DeleteLead(w http.ResponseWriter, r *http.Request) {
	if err := c.svc.Leads.Delete(r.Context(), pathID(r)); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (c *RotationAPIController) CanDeleteLead(w http.ResponseWriter, r *http.Request) {
	decision, err := c.svc.Replacements.CanDelete(r.Context(), pathID(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, decision)
}

func (c *RotationAPIController) MarkLead(w http.ResponseWriter, r *http.Request) {
	mark, err := c.svc.Replacements.Mark(r.Context(), pathID(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mark)
}

func (c *RotationAPIController) UnmarkLead(w http.ResponseWriter, r *http.Request) {
	if err := c.svc.Replacements.Unmark(r.Context(), pathID(r)); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (c *RotationAPIController) ApplyReplacement(w http.ResponseWriter, r *http.Request) {
	var draft lead.Draft
	if !decodeBody(w, r, &draft) {
		return
	}
	created, err := c.svc.Replacements.Apply(r.Context(), pathID(r), &draft)
	if err != nil {
		writeLeadError(w, r, created, err)
		return
	}
	writeJSON(w, http.StatusCreated, toLeadResponse(created))
}

func (c *RotationAPIController) UndoReplacement(w http.ResponseWriter, r *http.Request) {
	if err := c.svc.Replacements.Undo(r.Context(), pathID(r)); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (c *RotationAPIController) DeleteReplacement(w http.ResponseWriter, r *http.Request) {
	if err := c.svc.Leads.DeleteReplacement(r.Context(), pathID(r)); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (c *RotationAPIController) ListMarks(w http.ResponseWriter, r *http.Request) {
	p, ok := queryPeriod(w, r)
	if !ok {
		return
	}
	marks, err := c.svc.Replacements.List(r.Context(), p)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, marks)
}

func (c *RotationAPIController) ListEntries(w http.ResponseWriter, r *http.Request) {
	p, ok := queryPeriod(w, r)
	if !ok {
		return
	}
	params := &entry.FindParams{Period: &p}
	if params.RepID, ok = queryUUID(w, r, "rep_id"); !ok {
		return
	}
	entries, err := c.svc.Entries.List(r.Context(), params)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(entries, toEntryResponse))
}

func (c *RotationAPIController) AddSkip(w http.ResponseWriter, r *http.Request) {
	c.addEntry(w, r, c.svc.Entries.AddSkip)
}

func (c *RotationAPIController) AddOOO(w http.ResponseWriter, r *http.Request) {
	c.addEntry(w, r, c.svc.Entries.AddOOO)
}

func (c *RotationAPIController) addEntry(
	w http.ResponseWriter,
	r *http.Request,
	add func(ctx context.Context, dto *entry.CreateDTO) (entry.Entry, error),
) {
	var dto entry.CreateDTO
	if !decodeBody(w, r, &dto) {
		return
	}
	created, err := add(r.Context(), &dto)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toEntryResponse(created))
}

func (c *RotationAPIController) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	if err := c.svc.Entries.Delete(r.Context(), pathID(r)); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (c *RotationAPIController) Next(w http.ResponseWriter, r *http.Request) {
	l, p, ok := queryLanePeriod(w, r)
	if !ok {
		return
	}
	repID, err := c.svc.Rotation.Next(r.Context(), l, p)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	type nextResponse struct {
		Lane   lane.Lane     `json:"lane"`
		Period period.Period `json:"period"`
		RepID  *uuid.UUID    `json:"rep_id"`
	}
	resp := nextResponse{Lane: l, Period: p}
	if repID != uuid.Nil {
		resp.RepID = &repID
	}
	writeJSON(w, http.StatusOK, resp)
}

func (c *RotationAPIController) Suggest(w http.ResponseWriter, r *http.Request) {
	var req suggestRequest
	if !decodeBody(w, r, &req) {
		return
	}
	p := period.Of(time.Now())
	if strings.TrimSpace(req.Period) != "" {
		parsed, err := period.Parse(req.Period)
		if err != nil {
			writeAPIError(w, r, http.StatusBadRequest, "ROTATION_INVALID_BODY", err.Error())
			return
		}
		p = parsed
	}
	repID, err := c.svc.Rotation.Suggest(r.Context(), eligibility.Draft{
		UnitCount:     req.UnitCount,
		PropertyTypes: req.PropertyTypes,
	}, p)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rep_id": repID, "period": p})
}

// Eligible takes unit_count and a comma separated property_types.
func (c *RotationAPIController) Eligible(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var d eligibility.Draft
	if raw := strings.TrimSpace(q.Get("unit_count")); raw != "" {
		units, err := strconv.Atoi(raw)
		if err != nil || units < 0 {
			writeAPIError(w, r, http.StatusBadRequest, "ROTATION_INVALID_QUERY", "unit_count is invalid")
			return
		}
		d.UnitCount = units
	}
	for _, pt := range strings.Split(q.Get("property_types"), ",") {
		if pt = strings.TrimSpace(pt); pt != "" {
			d.PropertyTypes = append(d.PropertyTypes, pt)
		}
	}
	ids, err := c.svc.Rotation.Eligible(r.Context(), d)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"lane": d.Lane(), "rep_ids": ids})
}

func (c *RotationAPIController) Standings(w http.ResponseWriter, r *http.Request) {
	l, p, ok := queryLanePeriod(w, r)
	if !ok {
		return
	}
	standings, err := c.svc.Rotation.Standings(r.Context(), l, p)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, standings)
}

func (c *RotationAPIController) ListLedger(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := &hit.FindParams{}
	var ok bool
	if q.Get("period") != "" {
		var p period.Period
		if p, ok = queryPeriod(w, r); !ok {
			return
		}
		params.Period = &p
	}
	if raw := q.Get("lane"); raw != "" {
		l, err := lane.Parse(raw)
		if err != nil {
			writeAPIError(w, r, http.StatusBadRequest, "ROTATION_INVALID_QUERY", err.Error())
			return
		}
		params.Lane = &l
	}
	if params.RepID, ok = queryUUID(w, r, "rep_id"); !ok {
		return
	}
	if params.Limit, params.Offset, ok = queryPage(w, r); !ok {
		return
	}
	events, err := c.svc.Ledger.List(r.Context(), params)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (c *RotationAPIController) LedgerNet(w http.ResponseWriter, r *http.Request) {
	l, p, ok := queryLanePeriod(w, r)
	if !ok {
		return
	}
	repID, ok := queryUUID(w, r, "rep_id")
	if !ok {
		return
	}
	if repID == nil {
		writeAPIError(w, r, http.StatusBadRequest, "ROTATION_INVALID_QUERY", "rep_id is required")
		return
	}
	net, err := c.svc.Ledger.Net(r.Context(), *repID, l, p)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rep_id": *repID, "lane": l, "period": p, "net": net})
}

func (c *RotationAPIController) LedgerDrift(w http.ResponseWriter, r *http.Request) {
	l, p, ok := queryLanePeriod(w, r)
	if !ok {
		return
	}
	report, err := c.svc.Ledger.Drift(r.Context(), l, p)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (c *RotationAPIController) ListAudit(w http.ResponseWriter, r *http.Request) {
	params := &audit.FindParams{}
	var ok bool
	if params.Subject, ok = queryUUID(w, r, "subject"); !ok {
		return
	}
	if params.Limit, params.Offset, ok = queryPage(w, r); !ok {
		return
	}
	entries, err := c.svc.Audit.List(r.Context(), params)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func pathID(r *http.Request) uuid.UUID {
	id, _ := uuid.Parse(mux.Vars(r)["id"])
	return id
}

func queryPeriod(w http.ResponseWriter, r *http.Request) (period.Period, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get("period"))
	if raw == "" {
		return period.Of(time.Now()), true
	}
	p, err := period.Parse(raw)
	if err != nil {
		writeAPIError(w, r, http.StatusBadRequest, "ROTATION_INVALID_QUERY", err.Error())
		return period.Period{}, false
	}
	return p, true
}

func queryLanePeriod(w http.ResponseWriter, r *http.Request) (lane.Lane, period.Period, bool) {
	l, err := lane.Parse(r.URL.Query().Get("lane"))
	if err != nil {
		writeAPIError(w, r, http.StatusBadRequest, "ROTATION_INVALID_QUERY", err.Error())
		return 0, period.Period{}, false
	}
	p, ok := queryPeriod(w, r)
	return l, p, ok
}

// queryUUID returns nil when the parameter is absent.
func queryUUID(w http.ResponseWriter, r *http.Request, name string) (*uuid.UUID, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		writeAPIError(w, r, http.StatusBadRequest, "ROTATION_INVALID_QUERY", name+" is invalid")
		return nil, false
	}
	return &id, true
}

func queryPage(w http.ResponseWriter, r *http.Request) (int, int, bool) {
	q := r.URL.Query()
	limit, offset := 100, 0
	for name, dst := range map[string]*int{"limit": &limit, "offset": &offset} {
		raw := q.Get(name)
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			writeAPIError(w, r, http.StatusBadRequest, "ROTATION_INVALID_QUERY", name+" is invalid")
			return 0, 0, false
		}
		*dst = v
	}
	return limit, offset, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, out any) bool {
	if err := decodeJSON(r.Body, out); err != nil {
		writeAPIError(w, r, http.StatusBadRequest, "ROTATION_INVALID_BODY", "invalid json body")
		return false
	}
	return true
}

func decodeJSON(body io.ReadCloser, out any) error {
	defer func() { _ = body.Close() }()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(out)
}

func requestID(r *http.Request) string {
	id, _ := r.Context().Value(constants.RequestIDKey).(string)
	return id
}

// writeLeadError reports err and, when the lead was stored before a ledger
// failure, names it so the caller can reconcile.
func writeLeadError(w http.ResponseWriter, r *http.Request, stored lead.Lead, err error) {
	svcErr := services.AsServiceError(err)
	meta := errorMeta(r, svcErr)
	if errors.Is(err, rotationerr.ErrLedgerWriteFailure) && stored.ID() != uuid.Nil {
		meta["lead_id"] = stored.ID().String()
	}
	_ = httpapi.WriteError(w, svcErr.Status, svcErr.Code, svcErr.Message, meta)
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	svcErr := services.AsServiceError(err)
	_ = httpapi.WriteError(w, svcErr.Status, svcErr.Code, svcErr.Message, errorMeta(r, svcErr))
}

func errorMeta(r *http.Request, svcErr *services.ServiceError) map[string]string {
	meta := map[string]string{}
	if id := requestID(r); id != "" {
		meta["request_id"] = id
	}
	for field, msg := range svcErr.Fields {
		meta["field."+field] = msg
	}
	return meta
}

func writeAPIError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	meta := map[string]string{}
	if id := requestID(r); id != "" {
		meta["request_id"] = id
	}
	_ = httpapi.WriteError(w, status, code, message, meta)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	if err := httpapi.WriteJSON(w, status, payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
