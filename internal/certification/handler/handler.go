// Package handler exposes the certification registry over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"harvestcert/internal/certification/models"
	"harvestcert/internal/certification/service"
	"harvestcert/internal/facility"
	id "harvestcert/pkg/domain"
	"harvestcert/pkg/platform/httputil"
	"harvestcert/pkg/requestcontext"
)

// Service is the registry as seen by the HTTP layer.
type Service interface {
	RegisterHarvest(ctx context.Context, req models.Registration) (*models.Certificate, error)
	VerifyTelemetry(ctx context.Context, in service.TelemetryReadings) (*models.TelemetryVerification, error)
	UpdateNutrition(ctx context.Context, report service.LabReport) (*models.Certificate, error)
	CertifyHarvest(ctx context.Context, batch id.BatchID, score uint8) (*models.Certificate, error)
	RevokeCertification(ctx context.Context, batch id.BatchID, reason string) (*models.Certificate, error)
	AddCertifier(ctx context.Context, who id.Identity) error
	RemoveCertifier(ctx context.Context, who id.Identity) error
	AuthorizeLab(ctx context.Context, lab id.LabName) error
	DeauthorizeLab(ctx context.Context, lab id.LabName) error
	UpdateQualityParameters(ctx context.Context, params models.QualityParameters) error

	IsCertifier(ctx context.Context, who id.Identity) (bool, error)
	IsLabAuthorized(ctx context.Context, lab id.LabName) (bool, error)
	GetCertificate(ctx context.Context, batch id.BatchID) (*models.Certificate, error)
	GetTelemetryVerification(ctx context.Context, batch id.BatchID) (*models.TelemetryVerification, error)
	GetFacilityBatches(ctx context.Context, facility id.FacilityID) ([]id.BatchID, error)
	ListFacilityCertificates(ctx context.Context, facility id.FacilityID) ([]*models.Certificate, error)
	GetQualityParameters(ctx context.Context) (models.QualityParameters, error)
	GetStatistics(ctx context.Context) (models.Statistics, error)
	Owner(ctx context.Context) (id.Identity, error)
}

// Directory is the facility directory as seen by the HTTP layer.
type Directory interface {
	RegisterFacility(ctx context.Context, facilityID id.FacilityID, name string) (*facility.Facility, error)
	RegisterDevice(ctx context.Context, deviceID id.DeviceID, facilityID id.FacilityID) (*facility.Device, error)
	SetDeviceStatus(ctx context.Context, deviceID id.DeviceID, status facility.DeviceStatus) (*facility.Device, error)
	Facility(ctx context.Context, facilityID id.FacilityID) (*facility.Facility, error)
	Device(ctx context.Context, deviceID id.DeviceID) (*facility.Device, error)
}

type Handler struct {
	service   Service
	directory Directory
	logger    *slog.Logger
	auth      func(http.Handler) http.Handler
}

type Option func(*Handler)

// WithDirectory mounts the facility directory routes.
func WithDirectory(d Directory) Option {
	return func(h *Handler) {
		h.directory = d
	}
}

// WithAuth guards every mutating route, typically with auth.RequireCaller.
// Without it, commands see whatever caller the surrounding middleware set.
func WithAuth(mw func(http.Handler) http.Handler) Option {
	return func(h *Handler) {
		h.auth = mw
	}
}

func New(service Service, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{service: service, logger: logger}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the registry routes. Queries are public.
func (h *Handler) Register(r chi.Router) {
	r.Get("/harvests/{batchID}", h.HandleGetCertificate)
	r.Get("/harvests/{batchID}/telemetry", h.HandleGetTelemetry)
	r.Get("/facilities/{facilityID}/harvests", h.HandleFacilityHarvests)
	r.Get("/certifiers/{identity}", h.HandleIsCertifier)
	r.Get("/labs/{lab}", h.HandleIsLabAuthorized)
	r.Get("/quality-parameters", h.HandleGetQualityParameters)
	r.Get("/statistics", h.HandleGetStatistics)
	r.Get("/owner", h.HandleGetOwner)

	r.Group(func(r chi.Router) {
		if h.auth != nil {
			r.Use(h.auth)
		}
		r.Post("/harvests", h.HandleRegisterHarvest)
		r.Post("/harvests/{batchID}/telemetry", h.HandleVerifyTelemetry)
		r.Put("/harvests/{batchID}/nutrition", h.HandleUpdateNutrition)
		r.Post("/harvests/{batchID}/certify", h.HandleCertify)
		r.Post("/harvests/{batchID}/revoke", h.HandleRevoke)

		r.Put("/admin/certifiers/{identity}", h.HandleAddCertifier)
		r.Delete("/admin/certifiers/{identity}", h.HandleRemoveCertifier)
		r.Put("/admin/labs/{lab}", h.HandleAuthorizeLab)
		r.Delete("/admin/labs/{lab}", h.HandleDeauthorizeLab)
		r.Put("/admin/quality-parameters", h.HandleUpdateQualityParameters)

		if h.directory != nil {
			r.Post("/facilities", h.HandleRegisterFacility)
			r.Post("/facilities/{facilityID}/devices", h.HandleRegisterDevice)
			r.Put("/devices/{deviceID}/status", h.HandleSetDeviceStatus)
		}
	})

	if h.directory != nil {
		r.Get("/facilities/{facilityID}", h.HandleGetFacility)
		r.Get("/devices/{deviceID}", h.HandleGetDevice)
	}
}

// fail writes err; registry rejections are expected outcomes and the
// service already logged them.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, action string, err error) {
	h.logger.DebugContext(r.Context(), action+" failed",
		"request_id", requestcontext.RequestID(r.Context()),
		"error", err,
	)
	httputil.WriteError(w, err)
}

// batchParam parses the {batchID} path segment, writing an error on failure.
func batchParam(w http.ResponseWriter, r *http.Request) (id.BatchID, bool) {
	batch, err := id.ParseBatchID(chi.URLParam(r, "batchID"))
	if err != nil {
		httputil.WriteError(w, err)
		return "", false
	}
	return batch, true
}

func facilityParam(w http.ResponseWriter, r *http.Request) (id.FacilityID, bool) {
	f, err := id.ParseFacilityID(chi.URLParam(r, "facilityID"))
	if err != nil {
		httputil.WriteError(w, err)
		return "", false
	}
	return f, true
}

func identityParam(w http.ResponseWriter, r *http.Request) (id.Identity, bool) {
	who, err := id.ParseIdentity(chi.URLParam(r, "identity"))
	if err != nil {
		httputil.WriteError(w, err)
		return "", false
	}
	return who, true
}

func labParam(w http.ResponseWriter, r *http.Request) (id.LabName, bool) {
	lab, err := id.ParseLabName(chi.URLParam(r, "lab"))
	if err != nil {
		httputil.WriteError(w, err)
		return "", false
	}
	return lab, true
}

func deviceParam(w http.ResponseWriter, r *http.Request) (id.DeviceID, bool) {
	device, err := id.ParseDeviceID(chi.URLParam(r, "deviceID"))
	if err != nil {
		httputil.WriteError(w, err)
		return "", false
	}
	return device, true
}
