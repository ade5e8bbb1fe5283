package handler

import (
	"net/http"

	"harvestcert/internal/certification/service"
	"harvestcert/internal/facility"
	"harvestcert/pkg/platform/httputil"
	"harvestcert/pkg/requestcontext"
)

// HandleRegisterHarvest handles POST /harvests.
func (h *Handler) HandleRegisterHarvest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[RegisterHarvestRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	cert, err := h.service.RegisterHarvest(ctx, req.Registration())
	if err != nil {
		h.fail(w, r, "register harvest", err)
		return
	}
	w.Header().Set("Location", "/harvests/"+string(cert.BatchID))
	httputil.WriteJSON(w, http.StatusCreated, FromCertificate(cert))
}

// HandleVerifyTelemetry handles POST /harvests/{batchID}/telemetry.
func (h *Handler) HandleVerifyTelemetry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	batch, ok := batchParam(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[TelemetryRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	verification, err := h.service.VerifyTelemetry(ctx, service.TelemetryReadings{
		BatchID:        batch,
		DeviceID:       req.deviceID,
		AvgPH:          req.AvgPH,
		AvgTemperature: req.AvgTemperature,
		AvgLight:       req.AvgLight,
		FinalDensity:   req.FinalDensity,
	})
	if err != nil {
		h.fail(w, r, "verify telemetry", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, verification)
}

// HandleUpdateNutrition handles PUT /harvests/{batchID}/nutrition.
func (h *Handler) HandleUpdateNutrition(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	batch, ok := batchParam(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[NutritionRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	cert, err := h.service.UpdateNutrition(ctx, service.LabReport{
		BatchID:            batch,
		LabName:            req.labName,
		LabCertificationID: req.LabCertificationID,
		ReportID:           req.ReportID,
		Profile:            req.Nutrition,
	})
	if err != nil {
		h.fail(w, r, "update nutrition", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromCertificate(cert))
}

// HandleCertify handles POST /harvests/{batchID}/certify. A batch failing
// the quality gate answers 422 and is stored as rejected.
func (h *Handler) HandleCertify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	batch, ok := batchParam(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[CertifyRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	cert, err := h.service.CertifyHarvest(ctx, batch, req.Score())
	if err != nil {
		h.fail(w, r, "certify harvest", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromCertificate(cert))
}

// HandleRevoke handles POST /harvests/{batchID}/revoke.
func (h *Handler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	batch, ok := batchParam(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[RevokeRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	cert, err := h.service.RevokeCertification(ctx, batch, req.Reason)
	if err != nil {
		h.fail(w, r, "revoke certification", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromCertificate(cert))
}

func (h *Handler) HandleAddCertifier(w http.ResponseWriter, r *http.Request) {
	who, ok := identityParam(w, r)
	if !ok {
		return
	}
	if err := h.service.AddCertifier(r.Context(), who); err != nil {
		h.fail(w, r, "add certifier", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleRemoveCertifier(w http.ResponseWriter, r *http.Request) {
	who, ok := identityParam(w, r)
	if !ok {
		return
	}
	if err := h.service.RemoveCertifier(r.Context(), who); err != nil {
		h.fail(w, r, "remove certifier", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleAuthorizeLab(w http.ResponseWriter, r *http.Request) {
	lab, ok := labParam(w, r)
	if !ok {
		return
	}
	if err := h.service.AuthorizeLab(r.Context(), lab); err != nil {
		h.fail(w, r, "authorize lab", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleDeauthorizeLab(w http.ResponseWriter, r *http.Request) {
	lab, ok := labParam(w, r)
	if !ok {
		return
	}
	if err := h.service.DeauthorizeLab(r.Context(), lab); err != nil {
		h.fail(w, r, "deauthorize lab", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleUpdateQualityParameters handles PUT /admin/quality-parameters.
func (h *Handler) HandleUpdateQualityParameters(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[QualityParametersRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	if err := h.service.UpdateQualityParameters(ctx, req.Parameters()); err != nil {
		h.fail(w, r, "update quality parameters", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, req.Parameters())
}

// HandleRegisterFacility handles POST /facilities.
func (h *Handler) HandleRegisterFacility(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[RegisterFacilityRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	f, err := h.directory.RegisterFacility(ctx, req.facilityID, req.Name)
	if err != nil {
		h.fail(w, r, "register facility", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, f)
}

// HandleRegisterDevice handles POST /facilities/{facilityID}/devices.
func (h *Handler) HandleRegisterDevice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	facilityID, ok := facilityParam(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[RegisterDeviceRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	d, err := h.directory.RegisterDevice(ctx, req.deviceID, facilityID)
	if err != nil {
		h.fail(w, r, "register device", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, d)
}

// HandleSetDeviceStatus handles PUT /devices/{deviceID}/status.
func (h *Handler) HandleSetDeviceStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	device, ok := deviceParam(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[DeviceStatusRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	d, err := h.directory.SetDeviceStatus(ctx, device, facility.DeviceStatus(req.Status))
	if err != nil {
		h.fail(w, r, "set device status", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, d)
}
