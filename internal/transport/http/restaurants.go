package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/coverbook/coverbook/internal/app"
	"github.com/coverbook/coverbook/internal/domain"
)

// RestaurantConfigurator is the slice of the restaurant service the admin
// endpoints need.
type RestaurantConfigurator interface {
	CreateRestaurant(ctx context.Context, in app.CreateRestaurantInput) (domain.Restaurant, error)
	Get(ctx context.Context, restaurantID string) (domain.Restaurant, error)
	SetServiceHours(ctx context.Context, restaurantID string, hours map[time.Weekday]domain.ServiceHours) error
}

// HandleCreateRestaurant registers a new restaurant.
func HandleCreateRestaurant(svc RestaurantConfigurator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createRestaurantRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		restaurant, err := svc.CreateRestaurant(r.Context(), app.CreateRestaurantInput{
			Name:             req.Name,
			TotalSeats:       req.TotalSeats,
			AvgDiningMinutes: req.AvgDiningMinutes,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(toRestaurantResponse(restaurant))
	}
}

// HandleGetRestaurant returns a restaurant and its weekly hours.
func HandleGetRestaurant(svc RestaurantConfigurator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		restaurant, err := svc.Get(r.Context(), mux.Vars(r)["id"])
		if err != nil {
			writeServiceError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(toRestaurantResponse(restaurant))
	}
}

// HandleSetServiceHours replaces a restaurant's weekly service hours. The
// body maps lowercase weekday names to open/close pairs; omitted days are
// closed.
func HandleSetServiceHours(svc RestaurantConfigurator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req map[string]serviceHoursPayload
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		hours := make(map[time.Weekday]domain.ServiceHours, len(req))
		for name, h := range req {
			day, ok := weekdayByName[name]
			if !ok {
				writeError(w, http.StatusBadRequest, codeValidation, "unknown weekday: "+name)
				return
			}
			hours[day] = domain.ServiceHours{Open: h.Open, Close: h.Close}
		}

		if err := svc.SetServiceHours(r.Context(), mux.Vars(r)["id"], hours); err != nil {
			writeServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

var weekdayByName = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

type createRestaurantRequest struct {
	Name             string `json:"name"`
	TotalSeats       int    `json:"total_seats"`
	AvgDiningMinutes int    `json:"avg_dining_minutes,omitempty"`
}

type serviceHoursPayload struct {
	Open  string `json:"open"`
	Close string `json:"close"`
}

type restaurantResponse struct {
	ID               string                         `json:"id"`
	Name             string                         `json:"name"`
	TotalSeats       int                            `json:"total_seats"`
	AvgDiningMinutes int                            `json:"avg_dining_minutes"`
	Hours            map[string]serviceHoursPayload `json:"hours,omitempty"`
	CreatedAt        time.Time                      `json:"created_at"`
}

func toRestaurantResponse(restaurant domain.Restaurant) restaurantResponse {
	out := restaurantResponse{
		ID:               restaurant.ID,
		Name:             restaurant.Name,
		TotalSeats:       restaurant.TotalSeats,
		AvgDiningMinutes: restaurant.AvgDiningMinutes,
		CreatedAt:        restaurant.CreatedAt,
	}
	if len(restaurant.Hours) > 0 {
		out.Hours = make(map[string]serviceHoursPayload, len(restaurant.Hours))
		for day, h := range restaurant.Hours {
			out.Hours[strings.ToLower(day.String())] = serviceHoursPayload{Open: h.Open, Close: h.Close}
		}
	}
	return out
}
