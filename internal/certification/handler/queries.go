package handler

import (
	"net/http"

	"harvestcert/pkg/platform/httputil"
)

func (h *Handler) HandleGetCertificate(w http.ResponseWriter, r *http.Request) {
	batch, ok := batchParam(w, r)
	if !ok {
		return
	}
	cert, err := h.service.GetCertificate(r.Context(), batch)
	if err != nil {
		h.fail(w, r, "get certificate", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromCertificate(cert))
}

func (h *Handler) HandleGetTelemetry(w http.ResponseWriter, r *http.Request) {
	batch, ok := batchParam(w, r)
	if !ok {
		return
	}
	verification, err := h.service.GetTelemetryVerification(r.Context(), batch)
	if err != nil {
		h.fail(w, r, "get telemetry verification", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, verification)
}

// HandleFacilityHarvests handles GET /facilities/{facilityID}/harvests.
// With ?view=ids only the batch ids are returned.
func (h *Handler) HandleFacilityHarvests(w http.ResponseWriter, r *http.Request) {
	facilityID, ok := facilityParam(w, r)
	if !ok {
		return
	}
	if r.URL.Query().Get("view") == "ids" {
		batches, err := h.service.GetFacilityBatches(r.Context(), facilityID)
		if err != nil {
			h.fail(w, r, "get facility batches", err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, fromBatchIDs(facilityID, batches))
		return
	}

	certs, err := h.service.ListFacilityCertificates(r.Context(), facilityID)
	if err != nil {
		h.fail(w, r, "list facility certificates", err)
		return
	}
	resp := &CertificateListResponse{
		FacilityID:   string(facilityID),
		Certificates: make([]*CertificateResponse, len(certs)),
	}
	for i, c := range certs {
		resp.Certificates[i] = FromCertificate(c)
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) HandleIsCertifier(w http.ResponseWriter, r *http.Request) {
	who, ok := identityParam(w, r)
	if !ok {
		return
	}
	authorized, err := h.service.IsCertifier(r.Context(), who)
	if err != nil {
		h.fail(w, r, "is certifier", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, CertifierResponse{Identity: string(who), Authorized: authorized})
}

func (h *Handler) HandleIsLabAuthorized(w http.ResponseWriter, r *http.Request) {
	lab, ok := labParam(w, r)
	if !ok {
		return
	}
	authorized, err := h.service.IsLabAuthorized(r.Context(), lab)
	if err != nil {
		h.fail(w, r, "is lab authorized", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, LabResponse{LabName: string(lab), Authorized: authorized})
}

func (h *Handler) HandleGetQualityParameters(w http.ResponseWriter, r *http.Request) {
	params, err := h.service.GetQualityParameters(r.Context())
	if err != nil {
		h.fail(w, r, "get quality parameters", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, params)
}

func (h *Handler) HandleGetStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.GetStatistics(r.Context())
	if err != nil {
		h.fail(w, r, "get statistics", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, StatisticsResponse{
		TotalCertificates: stats.TotalCertificates,
		TotalWeight:       stats.TotalWeight,
	})
}

func (h *Handler) HandleGetOwner(w http.ResponseWriter, r *http.Request) {
	owner, err := h.service.Owner(r.Context())
	if err != nil {
		h.fail(w, r, "get owner", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, OwnerResponse{Owner: string(owner)})
}

func (h *Handler) HandleGetFacility(w http.ResponseWriter, r *http.Request) {
	facilityID, ok := facilityParam(w, r)
	if !ok {
		return
	}
	f, err := h.directory.Facility(r.Context(), facilityID)
	if err != nil {
		h.fail(w, r, "get facility", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, f)
}

func (h *Handler) HandleGetDevice(w http.ResponseWriter, r *http.Request) {
	device, ok := deviceParam(w, r)
	if !ok {
		return
	}
	d, err := h.directory.Device(r.Context(), device)
	if err != nil {
		h.fail(w, r, "get device", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, d)
}
