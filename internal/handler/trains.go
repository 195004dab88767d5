package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/railway-reservation/internal/model"
	"github.com/iliyamo/railway-reservation/internal/repository"
)

// TrainCatalog is the train storage behind the catalogue endpoints.
type TrainCatalog interface {
	GetTrain(ctx context.Context, id uint64) (model.Train, error)
	CreateTrain(ctx context.Context, train *model.Train) error
	SearchTrains(ctx context.Context, q repository.TrainQuery) ([]model.Train, int64, error)
}

// TrainHandler serves the public train catalogue and admin train creation.
// OnChange, when set, runs after a train is created so cached listings can
// be dropped.
type TrainHandler struct {
	Catalog  TrainCatalog
	Now      func() time.Time
	OnChange func(ctx context.Context)
}

func NewTrainHandler(catalog TrainCatalog, onChange func(ctx context.Context)) *TrainHandler {
	return &TrainHandler{Catalog: catalog, Now: time.Now, OnChange: onChange}
}

type routeResp struct {
	SourceStation      string    `json:"source_station"`
	DepartureTime      time.Time `json:"departure_time"`
	DestinationStation string    `json:"destination_station"`
	ArrivalTime        time.Time `json:"arrival_time"`
}

type trainResp struct {
	ID             uint64            `json:"id"`
	NameEng        string            `json:"name_eng"`
	NameAr         string            `json:"name_ar"`
	Distance       float64           `json:"distance"`
	SeatCost       float64           `json:"seat_cost"`
	TotalSeats     int               `json:"total_seats"`
	AvailableSeats int               `json:"available_seats"`
	Status         model.TrainStatus `json:"status"`
	Route          routeResp         `json:"route"`
}

func trainOf(t model.Train) trainResp {
	return trainResp{
		ID:             t.ID,
		NameEng:        t.NameEng,
		NameAr:         t.NameAr,
		Distance:       t.Distance,
		SeatCost:       t.SeatCost,
		TotalSeats:     t.TotalSeats,
		AvailableSeats: t.AvailableSeats,
		Status:         t.Status,
		Route: routeResp{
			SourceStation:      t.Route.SourceStation,
			DepartureTime:      t.Route.DepartureTime,
			DestinationStation: t.Route.DestinationStation,
			ArrivalTime:        t.Route.ArrivalTime,
		},
	}
}

type createTrainReq struct {
	NameEng    string    `json:"name_eng"`
	NameAr     string    `json:"name_ar"`
	Distance   float64   `json:"distance"`
	SeatCost   float64   `json:"seat_cost"`
	TotalSeats int       `json:"total_seats"`
	Route      routeResp `json:"route"`
}

// List returns upcoming active trains, paged with ?page=&page_size=.
func (h *TrainHandler) List(c echo.Context) error {
	return h.search(c, repository.TrainQuery{Upcoming: true})
}

// Today returns the active trains departing on the current UTC day.
func (h *TrainHandler) Today(c echo.Context) error {
	return h.search(c, repository.TrainQuery{Date: h.Now().UTC()})
}

// Search filters by ?from=, ?to= and ?date=YYYY-MM-DD.
func (h *TrainHandler) Search(c echo.Context) error {
	q := repository.TrainQuery{
		From: strings.TrimSpace(c.QueryParam("from")),
		To:   strings.TrimSpace(c.QueryParam("to")),
	}
	if raw := strings.TrimSpace(c.QueryParam("date")); raw != "" {
		d, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "date must be YYYY-MM-DD"})
		}
		q.Date = d
	} else {
		q.Upcoming = true
	}
	return h.search(c, q)
}

func (h *TrainHandler) search(c echo.Context, q repository.TrainQuery) error {
	q.Page = queryInt(c, "page", 1)
	q.PageSize = queryInt(c, "page_size", 20)
	trains, total, err := h.Catalog.SearchTrains(c.Request().Context(), q)
	if err != nil {
		return writeError(c, err)
	}
	items := make([]trainResp, 0, len(trains))
	for _, t := range trains {
		items = append(items, trainOf(t))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items, "total": total, "page": q.Page})
}

// Detail returns one train.
func (h *TrainHandler) Detail(c echo.Context) error {
	id, ok, err := pathID(c)
	if !ok {
		return err
	}
	t, err := h.Catalog.GetTrain(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, trainOf(t))
}

// Create adds a train to the catalogue.  Every seat starts free.
func (h *TrainHandler) Create(c echo.Context) error {
	var req createTrainReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.NameEng = strings.TrimSpace(req.NameEng)
	req.Route.SourceStation = strings.TrimSpace(req.Route.SourceStation)
	req.Route.DestinationStation = strings.TrimSpace(req.Route.DestinationStation)
	switch {
	case req.NameEng == "":
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name_eng is required"})
	case req.Distance <= 0 || req.SeatCost < 0:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "distance must be positive and seat_cost non-negative"})
	case req.TotalSeats <= 0:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "total_seats must be positive"})
	case req.Route.SourceStation == "" || req.Route.DestinationStation == "":
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "route stations are required"})
	case req.Route.DepartureTime.IsZero() || !req.Route.ArrivalTime.After(req.Route.DepartureTime):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "arrival_time must be after departure_time"})
	}

	t := model.Train{
		NameEng:    req.NameEng,
		NameAr:     strings.TrimSpace(req.NameAr),
		Distance:   req.Distance,
		SeatCost:   req.SeatCost,
		TotalSeats: req.TotalSeats,
		Status:     model.TrainActive,
		Route: model.Route{
			SourceStation:      req.Route.SourceStation,
			DepartureTime:      req.Route.DepartureTime.UTC(),
			DestinationStation: req.Route.DestinationStation,
			ArrivalTime:        req.Route.ArrivalTime.UTC(),
		},
	}
	ctx := c.Request().Context()
	if err := h.Catalog.CreateTrain(ctx, &t); err != nil {
		return writeError(c, err)
	}
	if h.OnChange != nil {
		h.OnChange(ctx)
	}
	return c.JSON(http.StatusCreated, trainOf(t))
}
