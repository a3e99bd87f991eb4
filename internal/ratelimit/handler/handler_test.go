package handler

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"shahid/internal/ratelimit/handler/mocks"
	"shahid/internal/ratelimit/models"
	id "shahid/pkg/domain"
	dErrors "shahid/pkg/domain-errors"
)

type AdminHandlerSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	service *mocks.MockService
	router  chi.Router
}

func TestAdminHandlerSuite(t *testing.T) {
	suite.Run(t, new(AdminHandlerSuite))
}

func (s *AdminHandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.service = mocks.NewMockService(s.ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s.router = chi.NewRouter()
	New(s.service, logger).RegisterAdmin(s.router)
}

func (s *AdminHandlerSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *AdminHandlerSuite) do(method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *AdminHandlerSuite) TestBan() {
	s.Run("creates a ban", func() {
		ban := &models.IPBan{IP: "203.0.113.9", Reason: "scraping", BannedBy: id.NewUserID(), CreatedAt: time.Now()}
		s.service.EXPECT().BanIP(gomock.Any(), "203.0.113.9", "scraping").Return(ban, nil)

		rec := s.do(http.MethodPost, "/ipbans", `{"ip":"203.0.113.9","reason":"scraping"}`)
		s.Equal(http.StatusCreated, rec.Code)
		s.Contains(rec.Body.String(), "203.0.113.9")
	})

	s.Run("maps conflict to 409", func() {
		s.service.EXPECT().BanIP(gomock.Any(), "203.0.113.9", "scraping").
			Return(nil, dErrors.New(dErrors.CodeConflict, "ip is already banned"))

		rec := s.do(http.MethodPost, "/ipbans", `{"ip":"203.0.113.9","reason":"scraping"}`)
		s.Equal(http.StatusConflict, rec.Code)
	})

	s.Run("rejects an unknown field", func() {
		rec := s.do(http.MethodPost, "/ipbans", `{"address":"203.0.113.9"}`)
		s.Equal(http.StatusBadRequest, rec.Code)
	})
}

func (s *AdminHandlerSuite) TestUnban() {
	s.Run("removes a ban", func() {
		s.service.EXPECT().UnbanIP(gomock.Any(), "203.0.113.9").Return(nil)

		rec := s.do(http.MethodDelete, "/ipbans/203.0.113.9", "")
		s.Equal(http.StatusNoContent, rec.Code)
	})

	s.Run("decodes an escaped IPv6 address", func() {
		s.service.EXPECT().UnbanIP(gomock.Any(), "2001:db8::1").Return(nil)

		rec := s.do(http.MethodDelete, "/ipbans/2001%3Adb8%3A%3A1", "")
		s.Equal(http.StatusNoContent, rec.Code)
	})

	s.Run("maps missing ban to 404", func() {
		s.service.EXPECT().UnbanIP(gomock.Any(), "198.51.100.1").
			Return(dErrors.New(dErrors.CodeNotFound, "ip ban not found"))

		rec := s.do(http.MethodDelete, "/ipbans/198.51.100.1", "")
		s.Equal(http.StatusNotFound, rec.Code)
	})
}

func (s *AdminHandlerSuite) TestList() {
	s.service.EXPECT().ListBans(gomock.Any()).Return([]*models.IPBan{
		{IP: "203.0.113.9", Reason: "scraping"},
		{IP: "198.51.100.1", Reason: "abuse"},
	}, nil)

	rec := s.do(http.MethodGet, "/ipbans", "")
	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), "198.51.100.1")
}

func (s *AdminHandlerSuite) TestReset() {
	s.Run("resets by ip", func() {
		s.service.EXPECT().ResetLimits(gomock.Any(), "203.0.113.9", "").Return(nil)

		rec := s.do(http.MethodPost, "/ratelimits/reset", `{"ip":"203.0.113.9"}`)
		s.Equal(http.StatusNoContent, rec.Code)
	})

	s.Run("requires ip or user id", func() {
		rec := s.do(http.MethodPost, "/ratelimits/reset", `{}`)
		s.Equal(http.StatusBadRequest, rec.Code)
	})
}
