package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/railway-reservation/internal/model"
	"github.com/iliyamo/railway-reservation/internal/service"
)

// ReservationHandler exposes the reservation lifecycle.  Ownership checks
// happen in the service: passengers act on their own reservations, admins
// on any.
type ReservationHandler struct {
	Svc *service.Service
}

func NewReservationHandler(svc *service.Service) *ReservationHandler {
	if svc == nil {
		panic("nil service passed to NewReservationHandler")
	}
	return &ReservationHandler{Svc: svc}
}

type createReservationReq struct {
	TrainID    uint64            `json:"train_id"`
	SeatsNum   int               `json:"seats_num"`
	Dependents []model.Dependent `json:"dependents"`
}

type newPassengerReq struct {
	NationalID string `json:"national_id"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Email      string `json:"email"`
}

type adminCreateReq struct {
	createReservationReq
	PassengerID uint64           `json:"passenger_id"`
	Passenger   *newPassengerReq `json:"passenger"`
}

type patchReservationReq struct {
	TrainID    *uint64            `json:"train_id"`
	SeatsNum   *int               `json:"seats_num"`
	Dependents *[]model.Dependent `json:"dependents"`
}

// Create books seats for the caller.
func (h *ReservationHandler) Create(c echo.Context) error {
	actor, ok, err := actorOf(c)
	if !ok {
		return err
	}
	var req createReservationReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.TrainID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "train_id is required"})
	}
	res, err := h.Svc.CreateReservation(c.Request().Context(), actor, service.CreateRequest{
		TrainID:    req.TrainID,
		SeatsNum:   req.SeatsNum,
		Dependents: req.Dependents,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, res)
}

// AdminCreate books on a passenger's behalf.  The passenger is picked by
// passenger_id or by passenger.national_id, created when unknown.
func (h *ReservationHandler) AdminCreate(c echo.Context) error {
	actor, ok, err := actorOf(c)
	if !ok {
		return err
	}
	var req adminCreateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.TrainID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "train_id is required"})
	}
	request := service.CreateRequest{
		TrainID:     req.TrainID,
		SeatsNum:    req.SeatsNum,
		Dependents:  req.Dependents,
		PassengerID: req.PassengerID,
	}
	if req.Passenger != nil {
		p := model.NewPassenger{
			NationalID: strings.TrimSpace(req.Passenger.NationalID),
			FirstName:  strings.TrimSpace(req.Passenger.FirstName),
			LastName:   strings.TrimSpace(req.Passenger.LastName),
			Email:      strings.TrimSpace(req.Passenger.Email),
		}
		if p.NationalID == "" {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "passenger.national_id is required"})
		}
		request.Passenger = &p
	}
	if request.PassengerID == 0 && request.Passenger == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "passenger_id or passenger is required"})
	}
	res, err := h.Svc.CreateReservation(c.Request().Context(), actor, request)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, res)
}

// Mine lists the caller's reservations.
func (h *ReservationHandler) Mine(c echo.Context) error {
	actor, ok, err := actorOf(c)
	if !ok {
		return err
	}
	items, err := h.Svc.ListPassengerReservations(c.Request().Context(), actor.UserID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Get returns one reservation.
func (h *ReservationHandler) Get(c echo.Context) error {
	actor, ok, err := actorOf(c)
	if !ok {
		return err
	}
	id, ok, err := pathID(c)
	if !ok {
		return err
	}
	res, err := h.Svc.GetReservation(c.Request().Context(), actor, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// Patch edits train, seat count or dependents of a pending or waitlisted
// reservation.
func (h *ReservationHandler) Patch(c echo.Context) error {
	actor, ok, err := actorOf(c)
	if !ok {
		return err
	}
	id, ok, err := pathID(c)
	if !ok {
		return err
	}
	var req patchReservationReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.TrainID == nil && req.SeatsNum == nil && req.Dependents == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "nothing to update"})
	}
	res, err := h.Svc.EditReservation(c.Request().Context(), actor, id, service.EditPatch{
		TrainID:    req.TrainID,
		SeatsNum:   req.SeatsNum,
		Dependents: req.Dependents,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// Pay confirms a pending reservation before its deadline.
func (h *ReservationHandler) Pay(c echo.Context) error {
	actor, ok, err := actorOf(c)
	if !ok {
		return err
	}
	id, ok, err := pathID(c)
	if !ok {
		return err
	}
	res, err := h.Svc.ConfirmPayment(c.Request().Context(), actor, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// Delete cancels a reservation and frees its seats.
func (h *ReservationHandler) Delete(c echo.Context) error {
	actor, ok, err := actorOf(c)
	if !ok {
		return err
	}
	id, ok, err := pathID(c)
	if !ok {
		return err
	}
	if err := h.Svc.CancelReservation(c.Request().Context(), actor, id); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// TrainReservations lists every reservation on a train.
func (h *ReservationHandler) TrainReservations(c echo.Context) error {
	id, ok, err := pathID(c)
	if !ok {
		return err
	}
	items, err := h.Svc.ListTrainReservations(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Waitlist returns a train's waitlist bucketed by loyalty tier.
func (h *ReservationHandler) Waitlist(c echo.Context) error {
	id, ok, err := pathID(c)
	if !ok {
		return err
	}
	buckets, err := h.Svc.ListWaitlist(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"train_id": id, "total": buckets.Len(), "waitlist": buckets})
}

// Promote moves one waitlisted reservation to pending.
func (h *ReservationHandler) Promote(c echo.Context) error {
	id, ok, err := pathID(c)
	if !ok {
		return err
	}
	res, err := h.Svc.PromoteReservation(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// PromoteNext promotes the highest-priority waitlisted reservation that
// fits the train's free seats.
func (h *ReservationHandler) PromoteNext(c echo.Context) error {
	id, ok, err := pathID(c)
	if !ok {
		return err
	}
	res, err := h.Svc.PromoteNext(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}
