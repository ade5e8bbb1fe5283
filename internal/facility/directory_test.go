package facility

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/suite"

	"harvestcert/internal/platform/kv"
	id "harvestcert/pkg/domain"
	dErrors "harvestcert/pkg/domain-errors"
	"harvestcert/pkg/requestcontext"
)

type DirectorySuite struct {
	suite.Suite
	dir *Directory
}

func TestDirectorySuite(t *testing.T) {
	suite.Run(t, new(DirectorySuite))
}

func (s *DirectorySuite) SetupTest() {
	s.dir = NewDirectory(kv.NewMemory(),
		WithAdmin("root"),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
}

func as(who id.Identity) context.Context {
	return requestcontext.WithCaller(context.Background(), who)
}

func (s *DirectorySuite) TestRegisterFacility() {
	s.Run("caller becomes owner", func() {
		f, err := s.dir.RegisterFacility(as("alice"), "FAC001", "North ponds")
		s.Require().NoError(err)
		s.Equal(id.Identity("alice"), f.Owner)

		ok, err := s.dir.FacilityExists(context.Background(), "FAC001")
		s.Require().NoError(err)
		s.True(ok)
	})

	s.Run("duplicate rejected", func() {
		_, err := s.dir.RegisterFacility(as("mallory"), "FAC001", "Copy")
		s.True(dErrors.HasCode(err, dErrors.CodeFacilityAlreadyExists))
	})

	s.Run("anonymous caller rejected", func() {
		_, err := s.dir.RegisterFacility(context.Background(), "FAC002", "x")
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("unknown facility does not exist", func() {
		ok, err := s.dir.FacilityExists(context.Background(), "FAC404")
		s.Require().NoError(err)
		s.False(ok)
	})
}

func (s *DirectorySuite) TestDeviceAuthorization() {
	_, err := s.dir.RegisterFacility(as("alice"), "FAC001", "North ponds")
	s.Require().NoError(err)
	_, err = s.dir.RegisterFacility(as("carol"), "FAC002", "South ponds")
	s.Require().NoError(err)

	s.Run("owner registration authorizes immediately", func() {
		d, err := s.dir.RegisterDevice(as("alice"), "DEV1", "FAC001")
		s.Require().NoError(err)
		s.Equal(DeviceAuthorized, d.Status)

		ok, err := s.dir.DeviceAuthorized(context.Background(), "DEV1", "FAC001")
		s.Require().NoError(err)
		s.True(ok)
	})

	s.Run("device is only authorized for its own facility", func() {
		ok, err := s.dir.DeviceAuthorized(context.Background(), "DEV1", "FAC002")
		s.Require().NoError(err)
		s.False(ok)
	})

	s.Run("admin registration needs explicit authorization", func() {
		d, err := s.dir.RegisterDevice(as("root"), "DEV2", "FAC002")
		s.Require().NoError(err)
		s.Equal(DeviceRegistered, d.Status)

		ok, _ := s.dir.DeviceAuthorized(context.Background(), "DEV2", "FAC002")
		s.False(ok)

		_, err = s.dir.SetDeviceStatus(as("carol"), "DEV2", DeviceAuthorized)
		s.Require().NoError(err)
		ok, _ = s.dir.DeviceAuthorized(context.Background(), "DEV2", "FAC002")
		s.True(ok)
	})

	s.Run("suspended device is not authorized", func() {
		_, err := s.dir.SetDeviceStatus(as("alice"), "DEV1", DeviceSuspended)
		s.Require().NoError(err)
		ok, _ := s.dir.DeviceAuthorized(context.Background(), "DEV1", "FAC001")
		s.False(ok)
	})

	s.Run("strangers cannot manage devices", func() {
		_, err := s.dir.RegisterDevice(as("mallory"), "DEV3", "FAC001")
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
		_, err = s.dir.SetDeviceStatus(as("mallory"), "DEV1", DeviceAuthorized)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("errors for unknown records", func() {
		_, err := s.dir.RegisterDevice(as("alice"), "DEV1", "FAC001")
		s.True(dErrors.HasCode(err, dErrors.CodeDeviceAlreadyExists))
		_, err = s.dir.RegisterDevice(as("alice"), "DEV9", "FAC404")
		s.True(dErrors.HasCode(err, dErrors.CodeFacilityNotFound))
		_, err = s.dir.SetDeviceStatus(as("alice"), "DEV404", DeviceSuspended)
		s.True(dErrors.HasCode(err, dErrors.CodeDeviceNotFound))
		_, err = s.dir.SetDeviceStatus(as("alice"), "DEV1", DeviceStatus("lost"))
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidParameters))
	})
}

func (s *DirectorySuite) TestNonEmptyCheck() {
	var check NonEmptyCheck
	ok, err := check.FacilityExists(context.Background(), "")
	s.Require().NoError(err)
	s.False(ok)

	ok, _ = check.FacilityExists(context.Background(), "FAC001")
	s.True(ok)

	ok, _ = check.DeviceAuthorized(context.Background(), "any", "FAC001")
	s.True(ok)
}
