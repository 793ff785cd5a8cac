// services/entry_service.go
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"quest-entry-service/logger"
	"quest-entry-service/metrics"
	"quest-entry-service/store"
	"quest-entry-service/workers"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

const (
	msgEntryAdded        = "Entry added successfully."
	msgFieldsRequired    = "Email and wallet address are required."
	msgWalletRequired    = "Wallet address is required."
	msgWalletTooLong     = "Wallet address is too long."
	msgInvalidEmail      = "Invalid email address."
	msgInvalidBody       = "Invalid request body."
	msgWalletExists      = "Wallet already exists."
	msgEmailExists       = "Email already exists."
	msgEntryNotFound     = "Entry not found."
	msgEntryUpdated      = "Entry updated successfully."
	msgEntryUpToDate     = "Entry was already up-to-date."
	msgInternalError     = "Internal server error."
	msgExportUnavailable = "Snapshot export is not configured."
)

// Exporter writes a waitlist snapshot somewhere durable.
type Exporter interface {
	Export(ctx context.Context) (workers.ExportResult, error)
}

type EntryService struct {
	Store    store.Store
	Log      *logger.Logger
	Metrics  *metrics.Metrics
	Exporter Exporter
	Timeout  time.Duration
	validate *validator.Validate
}

func NewEntryService(st store.Store, log *logger.Logger, m *metrics.Metrics, timeout time.Duration) *EntryService {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &EntryService{
		Store:    st,
		Log:      log,
		Metrics:  m,
		Timeout:  timeout,
		validate: validator.New(),
	}
}

type createEntryRequest struct {
	Email             string `json:"email" validate:"required,email,max=320"`
	WalletAddress     string `json:"walletAddress" validate:"required,max=128"`
	EasterEggUnlocked *bool  `json:"easterEggUnlocked"`
	EasterEggSolved   *bool  `json:"easterEggSolved"`
}

type walletRequest struct {
	WalletAddress string `json:"walletAddress" validate:"required,max=128"`
}

func message(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(fiber.Map{"message": msg})
}

func (s *EntryService) ctx(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.UserContext(), s.Timeout)
}

func (s *EntryService) log(c *fiber.Ctx) *logrus.Entry {
	id, _ := c.Locals("requestid").(string)
	return s.Log.WithRequestID(id).WithField("path", c.Path())
}

// internalError logs the fault and answers with the generic 500 body.
func (s *EntryService) internalError(c *fiber.Ctx, err error, what string) error {
	s.log(c).WithError(err).Error(what)
	return message(c, fiber.StatusInternalServerError, msgInternalError)
}

// CreateEntry handles POST /create-entry.
func (s *EntryService) CreateEntry(c *fiber.Ctx) error {
	var req createEntryRequest
	if err := c.BodyParser(&req); err != nil {
		return message(c, fiber.StatusBadRequest, msgInvalidBody)
	}
	req.Email = strings.TrimSpace(req.Email)
	req.WalletAddress = strings.TrimSpace(req.WalletAddress)

	if req.Email == "" || req.WalletAddress == "" {
		return message(c, fiber.StatusBadRequest, msgFieldsRequired)
	}
	if err := s.validate.Struct(req); err != nil {
		return message(c, fiber.StatusBadRequest, validationMessage(err))
	}

	in := store.NewEntry{
		Email:             req.Email,
		WalletAddress:     req.WalletAddress,
		EasterEggUnlocked: true,
	}
	if req.EasterEggUnlocked != nil {
		in.EasterEggUnlocked = *req.EasterEggUnlocked
	}
	if req.EasterEggSolved != nil {
		in.EasterEggSolved = *req.EasterEggSolved
	}

	ctx, cancel := s.ctx(c)
	defer cancel()

	if _, err := s.Store.CreateEntry(ctx, in); err != nil {
		if field, ok := store.IsConflict(err); ok {
			s.Metrics.Conflicts.WithLabelValues(string(field)).Inc()
			if field == store.FieldEmail {
				return message(c, fiber.StatusConflict, msgEmailExists)
			}
			return message(c, fiber.StatusConflict, msgWalletExists)
		}
		return s.internalError(c, err, "Error adding entry")
	}

	s.Metrics.EntriesCreated.Inc()
	s.log(c).WithField("wallet", in.WalletAddress).Info("entry created")
	return message(c, fiber.StatusOK, msgEntryAdded)
}

// GetEntry handles GET /get-entries?walletAddress=. A missing entry is a 200
// with a message body; existing callers key off that message.
func (s *EntryService) GetEntry(c *fiber.Ctx) error {
	wallet := strings.TrimSpace(c.Query("walletAddress"))
	if wallet == "" {
		return message(c, fiber.StatusBadRequest, msgWalletRequired)
	}

	ctx, cancel := s.ctx(c)
	defer cancel()

	entry, err := s.Store.GetEntryByWallet(ctx, wallet)
	if errors.Is(err, store.ErrNotFound) {
		return message(c, fiber.StatusOK, msgEntryNotFound)
	}
	if err != nil {
		return s.internalError(c, err, "Error fetching entries")
	}
	return c.JSON(entry)
}

// GetRank handles GET /get-rank?walletAddress=.
func (s *EntryService) GetRank(c *fiber.Ctx) error {
	wallet := strings.TrimSpace(c.Query("walletAddress"))
	if wallet == "" {
		return message(c, fiber.StatusBadRequest, msgWalletRequired)
	}

	ctx, cancel := s.ctx(c)
	defer cancel()

	rank, err := s.Store.SolvedRank(ctx, wallet)
	if err != nil {
		return s.internalError(c, err, "Error fetching rank")
	}
	return c.JSON(rank)
}

// UpdateEntry handles POST /update-entry, the solve confirmation.
func (s *EntryService) UpdateEntry(c *fiber.Ctx) error {
	var req walletRequest
	if err := c.BodyParser(&req); err != nil {
		return message(c, fiber.StatusBadRequest, msgInvalidBody)
	}
	req.WalletAddress = strings.TrimSpace(req.WalletAddress)
	if err := s.validate.Struct(req); err != nil {
		return message(c, fiber.StatusBadRequest, validationMessage(err))
	}

	ctx, cancel := s.ctx(c)
	defer cancel()

	res, err := s.Store.MarkSolved(ctx, req.WalletAddress)
	if errors.Is(err, store.ErrNotFound) {
		s.Metrics.Solves.WithLabelValues("not_found").Inc()
		return message(c, fiber.StatusNotFound, msgEntryNotFound)
	}
	if err != nil {
		return s.internalError(c, err, "Error updating entry")
	}

	s.Metrics.Solves.WithLabelValues(res.String()).Inc()
	if res == store.SolveUpdated {
		s.log(c).WithField("wallet", req.WalletAddress).Info("quest solved")
		return message(c, fiber.StatusOK, msgEntryUpdated)
	}
	return message(c, fiber.StatusOK, msgEntryUpToDate)
}

// Health handles GET /healthz.
func (s *EntryService) Health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	if err := s.Store.Ping(ctx); err != nil {
		s.log(c).WithError(err).Warn("health check failed")
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable"})
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

// AdminStats handles GET /admin/stats.
func (s *EntryService) AdminStats(c *fiber.Ctx) error {
	ctx, cancel := s.ctx(c)
	defer cancel()

	st, err := s.Store.Stats(ctx)
	if err != nil {
		return s.internalError(c, err, "Error computing stats")
	}
	return c.JSON(fiber.Map{
		"total":    st.Total,
		"solved":   st.Solved,
		"unlocked": st.Unlocked,
		"rank":     store.RankFor(st.Solved).Rank,
	})
}

// AdminExport handles POST /admin/export.
func (s *EntryService) AdminExport(c *fiber.Ctx) error {
	if s.Exporter == nil {
		return message(c, fiber.StatusServiceUnavailable, msgExportUnavailable)
	}

	res, err := s.Exporter.Export(c.UserContext())
	if err != nil {
		return s.internalError(c, err, "Error exporting snapshot")
	}
	return c.JSON(res)
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return msgInvalidBody
	}
	for _, fe := range verrs {
		switch {
		case fe.Field() == "Email":
			return msgInvalidEmail
		case fe.Field() == "WalletAddress" && fe.Tag() == "required":
			return msgWalletRequired
		case fe.Field() == "WalletAddress" && fe.Tag() == "max":
			return msgWalletTooLong
		}
	}
	return msgInvalidBody
}
